// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package namespace

// Kind identifies the type of a resolved node.
type Kind int

const (
	// KindRoot is the filesystem root, listing account ids.
	KindRoot Kind = iota

	// KindAccount is an account directory: {balance, transactions}.
	KindAccount

	// KindBalanceDir lists the balance snapshot fields.
	KindBalanceDir

	// KindBalanceField is one scalar field of the balance snapshot.
	KindBalanceField

	// KindTransactionsRoot lists the years with transactions.
	KindTransactionsRoot

	// KindYear lists the months of a year with transactions.
	KindYear

	// KindMonth lists transaction ids in creation order.
	KindMonth

	// KindTransaction lists the advertised transaction fields.
	KindTransaction

	// KindTransactionField is one field of a transaction.
	KindTransactionField

	// KindAttachments lists a transaction's attachment ids.
	KindAttachments
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindAccount:
		return "account"
	case KindBalanceDir:
		return "balance-dir"
	case KindBalanceField:
		return "balance-field"
	case KindTransactionsRoot:
		return "transactions-root"
	case KindYear:
		return "year"
	case KindMonth:
		return "month"
	case KindTransaction:
		return "transaction"
	case KindTransactionField:
		return "transaction-field"
	case KindAttachments:
		return "attachments"
	default:
		return "unknown"
	}
}

// IsDir reports whether nodes of this kind are directories. Exactly
// the two field kinds are files; everything else lists children.
func (k Kind) IsDir() bool {
	return k != KindBalanceField && k != KindTransactionField
}

// NodeRef is a resolved, typed reference to a position in the
// namespace. It is derived purely from the path string and is
// immutable. Fields beyond those implied by Kind are empty.
type NodeRef struct {
	Kind Kind

	// AccountID is set for every kind below the root.
	AccountID string

	// Year and Month are the literal path segments ("2016", "08"),
	// set for KindYear and below on the transactions branch.
	Year  string
	Month string

	// TransactionID is set for KindTransaction and below.
	TransactionID string

	// Field is the balance or transaction field name, set for
	// KindBalanceField and KindTransactionField.
	Field string
}

// BalanceFields is the fixed child list of a balance directory. One
// snapshot fetch populates all three.
var BalanceFields = []string{"balance", "currency", "spend_today"}

// TransactionFields is the closed, ordered set of names advertised as
// children of a transaction directory. "attachments" is a
// subdirectory; every other name is a file. Lookups outside this set
// are not-found rather than falling through to a generic map access.
var TransactionFields = []string{
	"account_balance",
	"account_id",
	"amount",
	"attachments",
	"category",
	"counterparty",
	"created",
	"currency",
	"dedupe_id",
	"description",
	"id",
	"is_load",
	"json",
	"local_amount",
	"local_currency",
	"merchant",
	"metadata",
	"notes",
	"originator",
	"scheme",
	"settled",
	"updated",
}

// IsBalanceField reports whether name is a valid balance field.
func IsBalanceField(name string) bool {
	for _, field := range BalanceFields {
		if name == field {
			return true
		}
	}
	return false
}

// IsTransactionField reports whether name is in the advertised
// transaction field set (including "attachments").
func IsTransactionField(name string) bool {
	for _, field := range TransactionFields {
		if name == field {
			return true
		}
	}
	return false
}
