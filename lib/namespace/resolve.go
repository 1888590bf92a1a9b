// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package namespace

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a path does not match the grammar. A
// path that does not parse to a NodeRef is rejected outright, never
// partially resolved. Malformed segments (a 3-digit year, month "13")
// and structurally impossible paths report the same error as merely
// absent resources.
var ErrNotFound = errors.New("namespace: no such node")

// Resolve parses a slash-delimited path into a NodeRef. Resolution is
// purely syntactic: it validates segment shape (year and month digits,
// known field names) but never checks that the account or transaction
// exists upstream.
func Resolve(path string) (NodeRef, error) {
	if path == "/" || path == "" {
		return NodeRef{Kind: KindRoot}, nil
	}

	trimmed := strings.TrimPrefix(path, "/")
	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if segment == "" {
			return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
	}

	ref := NodeRef{AccountID: segments[0]}
	switch {
	case len(segments) == 1:
		ref.Kind = KindAccount
		return ref, nil

	case segments[1] == "balance":
		return resolveBalance(ref, segments, path)

	case segments[1] == "transactions":
		return resolveTransactions(ref, segments, path)
	}

	return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
}

func resolveBalance(ref NodeRef, segments []string, path string) (NodeRef, error) {
	switch len(segments) {
	case 2:
		ref.Kind = KindBalanceDir
		return ref, nil
	case 3:
		if !IsBalanceField(segments[2]) {
			return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		ref.Kind = KindBalanceField
		ref.Field = segments[2]
		return ref, nil
	}
	return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
}

func resolveTransactions(ref NodeRef, segments []string, path string) (NodeRef, error) {
	if len(segments) == 2 {
		ref.Kind = KindTransactionsRoot
		return ref, nil
	}

	if !isYear(segments[2]) {
		return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	ref.Year = segments[2]
	if len(segments) == 3 {
		ref.Kind = KindYear
		return ref, nil
	}

	if !isMonth(segments[3]) {
		return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	ref.Month = segments[3]
	if len(segments) == 4 {
		ref.Kind = KindMonth
		return ref, nil
	}

	ref.TransactionID = segments[4]
	if len(segments) == 5 {
		ref.Kind = KindTransaction
		return ref, nil
	}

	if len(segments) == 6 {
		name := segments[5]
		if name == "attachments" {
			ref.Kind = KindAttachments
			return ref, nil
		}
		if IsTransactionField(name) {
			ref.Kind = KindTransactionField
			ref.Field = name
			return ref, nil
		}
	}

	return NodeRef{}, fmt.Errorf("%w: %q", ErrNotFound, path)
}

// isYear reports whether segment is exactly 4 ASCII digits.
func isYear(segment string) bool {
	if len(segment) != 4 {
		return false
	}
	return allDigits(segment)
}

// isMonth reports whether segment is exactly 2 ASCII digits in the
// range 01–12.
func isMonth(segment string) bool {
	if len(segment) != 2 || !allDigits(segment) {
		return false
	}
	return segment >= "01" && segment <= "12"
}

func allDigits(segment string) bool {
	for i := 0; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
