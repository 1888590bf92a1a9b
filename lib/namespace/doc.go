// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package namespace defines the synthetic filesystem namespace: the
// typed NodeRef for every position in the tree, and the purely
// syntactic resolver that maps a slash-delimited path to one.
//
// The grammar is the primary compatibility surface — scripts and shell
// pipelines depend on it literally:
//
//	/                                                        root
//	/{account_id}                                            account
//	/{account_id}/balance                                    balance dir
//	/{account_id}/balance/{field}                            balance field
//	/{account_id}/transactions                               transactions root
//	/{account_id}/transactions/{yyyy}                        year
//	/{account_id}/transactions/{yyyy}/{mm}                   month
//	/{account_id}/transactions/{yyyy}/{mm}/{tx_id}           transaction
//	/{account_id}/transactions/{yyyy}/{mm}/{tx_id}/{field}   transaction field
//	/{account_id}/transactions/{yyyy}/{mm}/{tx_id}/attachments
//
// Resolution never consults the remote API: an account id that does
// not exist upstream still resolves, and the miss surfaces on first
// fetch.
package namespace
