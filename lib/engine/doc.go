// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine exposes a bank account as a read-only hierarchical
// namespace:
//
//	/<account_id>/balance/{balance,currency,spend_today}
//	/<account_id>/transactions/<yyyy>/<mm>/<transaction_id>/<field>
//
// The engine translates path operations (stat, list, read) into
// gateway calls against the remote API, with per-resource TTL caching,
// request coalescing, and serve-stale-on-error in between. Nothing
// here touches the kernel: the fuse subpackage bridges this API to an
// actual mount, and tests drive it directly.
package engine
