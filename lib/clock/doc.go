// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Everything in monzofs that observes time — cache freshness, OAuth
// token expiry, retry backoff — accepts a Clock parameter instead of
// calling the time package directly. In production, Real() provides
// the standard library behavior. In tests, Fake() provides a
// deterministic clock that advances only when Advance is called.
//
// When a goroutine calls Sleep or After on a FakeClock, it registers
// a pending waiter. Use WaitForTimers to block until a specific
// number of waiters are registered before calling Advance. This
// eliminates the race between waiter registration and time
// advancement.
package clock
