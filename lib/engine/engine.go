// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/monzofs/monzofs/lib/cache"
	"github.com/monzofs/monzofs/lib/clock"
	"github.com/monzofs/monzofs/lib/monzo"
	"github.com/monzofs/monzofs/lib/namespace"
)

// Gateway is the upstream data source for the namespace. The monzo
// Client satisfies it; tests substitute fakes.
//
// Implementations must materialize results fully: ListTransactions
// returns every transaction for the account, never a partial page.
type Gateway interface {
	ListAccounts(ctx context.Context) ([]monzo.Account, error)
	GetBalance(ctx context.Context, accountID string) (monzo.Balance, error)
	ListTransactions(ctx context.Context, accountID string) ([]monzo.Transaction, error)
}

// Default freshness windows. Balances move faster than the transaction
// list, and the account set barely moves at all.
const (
	DefaultAccountsTTL     = time.Hour
	DefaultBalanceTTL      = 30 * time.Second
	DefaultTransactionsTTL = 5 * time.Minute
)

// Options configures an Engine.
type Options struct {
	// Gateway is the upstream data source. Required.
	Gateway Gateway

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger

	// TTLs for the three cached resource types. Zero means the default.
	// BalanceTTL must not exceed TransactionsTTL: a balance must never
	// look fresher than the transactions that produced it.
	AccountsTTL     time.Duration
	BalanceTTL      time.Duration
	TransactionsTTL time.Duration
}

// Engine answers stat, list, and read operations over the account
// namespace. All remote access goes through per-resource caches, so a
// directory listing and the file reads that follow it describe the
// same upstream snapshot within a TTL window.
type Engine struct {
	gateway Gateway
	logger  *slog.Logger

	// accounts holds the full account list under a single fixed key.
	accounts *cache.Cache[string, []monzo.Account]

	// balances and transactions are keyed by account id.
	balances     *cache.Cache[string, monzo.Balance]
	transactions *cache.Cache[string, []monzo.Transaction]
}

// accountsKey is the single key of the accounts cache.
const accountsKey = "accounts"

// New constructs an Engine.
func New(options Options) (*Engine, error) {
	if options.Gateway == nil {
		return nil, fmt.Errorf("engine: Gateway is required")
	}

	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	accountsTTL := options.AccountsTTL
	if accountsTTL == 0 {
		accountsTTL = DefaultAccountsTTL
	}
	balanceTTL := options.BalanceTTL
	if balanceTTL == 0 {
		balanceTTL = DefaultBalanceTTL
	}
	transactionsTTL := options.TransactionsTTL
	if transactionsTTL == 0 {
		transactionsTTL = DefaultTransactionsTTL
	}

	if balanceTTL > transactionsTTL {
		return nil, fmt.Errorf("engine: balance TTL (%s) must not exceed transactions TTL (%s)",
			balanceTTL, transactionsTTL)
	}

	return &Engine{
		gateway:      options.Gateway,
		logger:       logger,
		accounts:     cache.New[string, []monzo.Account](accountsTTL, clk),
		balances:     cache.New[string, monzo.Balance](balanceTTL, clk),
		transactions: cache.New[string, []monzo.Transaction](transactionsTTL, clk),
	}, nil
}

// Info describes a resolved node.
type Info struct {
	// Dir reports whether the node is a directory.
	Dir bool

	// Size is the content length in bytes for file nodes, zero for
	// directories. Reported sizes are exact: a stat and the read that
	// follows it within the TTL window agree.
	Size int64
}

// Stat resolves a path and returns its node description. The resource
// backing the node is fetched (or served from cache) to confirm
// existence and, for files, measure content.
func (e *Engine) Stat(ctx context.Context, path string) (Info, error) {
	ref, err := namespace.Resolve(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	if !ref.Kind.IsDir() {
		content, err := e.content(ctx, ref)
		if err != nil {
			return Info{}, err
		}
		return Info{Dir: false, Size: int64(len(content))}, nil
	}

	// Directory existence is confirmed by the same lookups that produce
	// its children.
	if err := e.checkDir(ctx, ref); err != nil {
		return Info{}, err
	}
	return Info{Dir: true}, nil
}

// ListChildren resolves a path and returns its child names in listing
// order. File nodes return ErrNotDirectory.
func (e *Engine) ListChildren(ctx context.Context, path string) ([]string, error) {
	ref, err := namespace.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	if !ref.Kind.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNotDirectory, path)
	}
	return e.children(ctx, ref)
}

// ReadContent resolves a path and returns its file content. Directory
// nodes return ErrIsDirectory. Content is rendered from the cached
// resource: no trailing newline is added and text is served verbatim.
func (e *Engine) ReadContent(ctx context.Context, path string) ([]byte, error) {
	ref, err := namespace.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	if ref.Kind.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrIsDirectory, path)
	}
	return e.content(ctx, ref)
}

// listAccounts returns the cached account list.
func (e *Engine) listAccounts(ctx context.Context) ([]monzo.Account, error) {
	accounts, err := e.accounts.Get(ctx, accountsKey, func(ctx context.Context) ([]monzo.Account, error) {
		e.logger.Debug("fetching accounts")
		return e.gateway.ListAccounts(ctx)
	})
	if err != nil {
		return nil, e.gatewayError(err)
	}
	return accounts, nil
}

// getBalance returns the cached balance snapshot for an account.
func (e *Engine) getBalance(ctx context.Context, accountID string) (monzo.Balance, error) {
	balance, err := e.balances.Get(ctx, accountID, func(ctx context.Context) (monzo.Balance, error) {
		e.logger.Debug("fetching balance", "account", accountID)
		return e.gateway.GetBalance(ctx, accountID)
	})
	if err != nil {
		return monzo.Balance{}, e.gatewayError(err)
	}
	return balance, nil
}

// listTransactions returns the cached full transaction list for an
// account.
func (e *Engine) listTransactions(ctx context.Context, accountID string) ([]monzo.Transaction, error) {
	transactions, err := e.transactions.Get(ctx, accountID, func(ctx context.Context) ([]monzo.Transaction, error) {
		e.logger.Debug("fetching transactions", "account", accountID)
		return e.gateway.ListTransactions(ctx, accountID)
	})
	if err != nil {
		return nil, e.gatewayError(err)
	}
	return transactions, nil
}

// gatewayError maps an upstream failure into the engine's error
// vocabulary. Upstream not-found becomes ErrNotFound; credential
// failures pass through for the caller to surface; everything else is
// an availability failure.
func (e *Engine) gatewayError(err error) error {
	switch {
	case monzo.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case monzo.IsUnauthorized(err):
		return err
	default:
		e.logger.Warn("upstream request failed", "error", err)
		return &UnavailableError{Cause: err}
	}
}
