// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "errors"

// Sentinel errors for namespace operations. The fuse layer maps these
// to errnos; other callers match them with errors.Is.
var (
	// ErrNotFound means the path does not resolve to a node: it is
	// malformed, names an unknown field, or refers to a resource the
	// upstream does not have. The three cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("engine: no such node")

	// ErrIsDirectory means content was requested from a directory node.
	ErrIsDirectory = errors.New("engine: node is a directory")

	// ErrNotDirectory means children were requested from a file node.
	ErrNotDirectory = errors.New("engine: node is not a directory")
)

// UnavailableError wraps an upstream failure that could not be
// absorbed by a cached value: the remote is unreachable or erroring
// and no prior fetch succeeded.
type UnavailableError struct {
	Cause error
}

func (err *UnavailableError) Error() string {
	return "engine: upstream unavailable: " + err.Cause.Error()
}

func (err *UnavailableError) Unwrap() error { return err.Cause }

// IsUnavailable reports whether err is an upstream availability
// failure.
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}
