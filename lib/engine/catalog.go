// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/monzofs/monzofs/lib/monzo"
	"github.com/monzofs/monzofs/lib/namespace"
)

// children returns the child names of a directory node. The grouping
// of transactions into years and months is recomputed from the cached
// list on each call rather than stored: the list is the single source
// of truth and the derivation is cheap relative to a remote fetch.
func (e *Engine) children(ctx context.Context, ref namespace.NodeRef) ([]string, error) {
	switch ref.Kind {
	case namespace.KindRoot:
		accounts, err := e.listAccounts(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(accounts))
		for _, account := range accounts {
			names = append(names, account.ID)
		}
		return names, nil

	case namespace.KindAccount:
		if err := e.checkAccount(ctx, ref.AccountID); err != nil {
			return nil, err
		}
		return []string{"balance", "transactions"}, nil

	case namespace.KindBalanceDir:
		if err := e.checkAccount(ctx, ref.AccountID); err != nil {
			return nil, err
		}
		return append([]string(nil), namespace.BalanceFields...), nil

	case namespace.KindTransactionsRoot:
		transactions, err := e.listTransactions(ctx, ref.AccountID)
		if err != nil {
			return nil, err
		}
		return distinctSorted(transactions, func(created time.Time) string {
			return created.Format("2006")
		}), nil

	case namespace.KindYear:
		transactions, err := e.transactionsInYear(ctx, ref)
		if err != nil {
			return nil, err
		}
		return distinctSorted(transactions, func(created time.Time) string {
			return created.Format("01")
		}), nil

	case namespace.KindMonth:
		transactions, err := e.transactionsInMonth(ctx, ref)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(transactions))
		for _, transaction := range transactions {
			names = append(names, transaction.ID)
		}
		return names, nil

	case namespace.KindTransaction:
		if _, err := e.lookupTransaction(ctx, ref); err != nil {
			return nil, err
		}
		return append([]string(nil), namespace.TransactionFields...), nil

	case namespace.KindAttachments:
		transaction, err := e.lookupTransaction(ctx, ref)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(transaction.Attachments))
		for _, attachment := range transaction.Attachments {
			names = append(names, attachment.ID)
		}
		return names, nil
	}

	return nil, fmt.Errorf("%w: kind %s is not a directory", ErrNotDirectory, ref.Kind)
}

// checkDir confirms that a directory node exists upstream. The root
// always exists, even when the account list is empty.
func (e *Engine) checkDir(ctx context.Context, ref namespace.NodeRef) error {
	switch ref.Kind {
	case namespace.KindRoot:
		return nil

	case namespace.KindAccount, namespace.KindBalanceDir, namespace.KindTransactionsRoot:
		return e.checkAccount(ctx, ref.AccountID)

	case namespace.KindYear:
		transactions, err := e.transactionsInYear(ctx, ref)
		if err != nil {
			return err
		}
		if len(transactions) == 0 {
			return fmt.Errorf("%w: no transactions in %s", ErrNotFound, ref.Year)
		}
		return nil

	case namespace.KindMonth:
		transactions, err := e.transactionsInMonth(ctx, ref)
		if err != nil {
			return err
		}
		if len(transactions) == 0 {
			return fmt.Errorf("%w: no transactions in %s/%s", ErrNotFound, ref.Year, ref.Month)
		}
		return nil

	case namespace.KindTransaction, namespace.KindAttachments:
		_, err := e.lookupTransaction(ctx, ref)
		return err
	}

	return fmt.Errorf("%w: kind %s is not a directory", ErrNotDirectory, ref.Kind)
}

// content renders the bytes of a file node.
func (e *Engine) content(ctx context.Context, ref namespace.NodeRef) ([]byte, error) {
	switch ref.Kind {
	case namespace.KindBalanceField:
		balance, err := e.getBalance(ctx, ref.AccountID)
		if err != nil {
			return nil, err
		}
		return renderBalanceField(balance, ref.Field)

	case namespace.KindTransactionField:
		transaction, err := e.lookupTransaction(ctx, ref)
		if err != nil {
			return nil, err
		}
		return renderTransactionField(transaction, ref.Field)
	}

	return nil, fmt.Errorf("%w: kind %s has no content", ErrIsDirectory, ref.Kind)
}

// checkAccount confirms the account id appears in the account list.
func (e *Engine) checkAccount(ctx context.Context, accountID string) error {
	accounts, err := e.listAccounts(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if account.ID == accountID {
			return nil
		}
	}
	return fmt.Errorf("%w: account %s", ErrNotFound, accountID)
}

// createdTime parses a transaction's creation timestamp in UTC.
// Transactions with a missing or unparseable timestamp cannot be
// placed in the year/month hierarchy and are excluded from it.
func createdTime(transaction monzo.Transaction) (time.Time, bool) {
	if transaction.Created == "" {
		return time.Time{}, false
	}
	created, err := time.Parse(time.RFC3339, transaction.Created)
	if err != nil {
		return time.Time{}, false
	}
	return created.UTC(), true
}

// distinctSorted formats each transaction's creation time and returns
// the distinct results in ascending order.
func distinctSorted(transactions []monzo.Transaction, format func(time.Time) string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, transaction := range transactions {
		created, ok := createdTime(transaction)
		if !ok {
			continue
		}
		name := format(created)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// transactionsInYear returns the account's transactions created in the
// referenced year, unordered.
func (e *Engine) transactionsInYear(ctx context.Context, ref namespace.NodeRef) ([]monzo.Transaction, error) {
	transactions, err := e.listTransactions(ctx, ref.AccountID)
	if err != nil {
		return nil, err
	}
	var matched []monzo.Transaction
	for _, transaction := range transactions {
		created, ok := createdTime(transaction)
		if !ok {
			continue
		}
		if created.Format("2006") == ref.Year {
			matched = append(matched, transaction)
		}
	}
	return matched, nil
}

// transactionsInMonth returns the account's transactions created in
// the referenced month, ordered by creation time (ties broken by id).
func (e *Engine) transactionsInMonth(ctx context.Context, ref namespace.NodeRef) ([]monzo.Transaction, error) {
	inYear, err := e.transactionsInYear(ctx, ref)
	if err != nil {
		return nil, err
	}

	type dated struct {
		transaction monzo.Transaction
		created     time.Time
	}
	var matched []dated
	for _, transaction := range inYear {
		created, _ := createdTime(transaction)
		if created.Format("01") == ref.Month {
			matched = append(matched, dated{transaction, created})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].created.Equal(matched[j].created) {
			return matched[i].created.Before(matched[j].created)
		}
		return matched[i].transaction.ID < matched[j].transaction.ID
	})

	ordered := make([]monzo.Transaction, 0, len(matched))
	for _, entry := range matched {
		ordered = append(ordered, entry.transaction)
	}
	return ordered, nil
}

// lookupTransaction finds the referenced transaction in the account's
// cached list. The transaction must actually live in the year and
// month named by the path: the same id under a different month does
// not resolve.
func (e *Engine) lookupTransaction(ctx context.Context, ref namespace.NodeRef) (monzo.Transaction, error) {
	transactions, err := e.listTransactions(ctx, ref.AccountID)
	if err != nil {
		return monzo.Transaction{}, err
	}

	for _, transaction := range transactions {
		if transaction.ID != ref.TransactionID {
			continue
		}
		created, ok := createdTime(transaction)
		if !ok {
			continue
		}
		if created.Format("2006") == ref.Year && created.Format("01") == ref.Month {
			return transaction, nil
		}
	}

	return monzo.Transaction{}, fmt.Errorf("%w: transaction %s in %s/%s",
		ErrNotFound, ref.TransactionID, ref.Year, ref.Month)
}
