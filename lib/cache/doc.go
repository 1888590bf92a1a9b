// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides a generic TTL-bounded memoization cache with
// request coalescing.
//
// The engine constructs one Cache per resource kind (accounts,
// balances, transaction lists), each with its own TTL, so freshness is
// tuned per kind rather than globally. Concurrent callers that miss on
// the same key share a single underlying fetch ("single-flight"), and
// a failed refresh serves the previous value when one exists rather
// than surfacing the error ("serve-stale-on-error").
package cache
