// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package monzo provides a typed Go client for the Monzo REST API.
//
// The client authenticates with a Bearer token: either a static access
// token, or an OAuth token that auto-refreshes before expiry and
// persists the rotated token to disk. It handles rate limiting (429
// with Retry-After backoff), transient server failures (bounded retry),
// pagination of the transactions endpoint (the `since` cursor is
// exhausted before results are returned), and structured error mapping.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base
// URLs.
//
// The client is the engine's Remote Resource Gateway: ListAccounts,
// GetBalance, and ListTransactions satisfy the engine.Gateway
// interface. The interactive authorization flow (Login) and the token
// store live here too, so the whole credential lifecycle stays in one
// package.
package monzo
