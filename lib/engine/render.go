// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"github.com/monzofs/monzofs/lib/monzo"
)

// Rendering contracts for file content. Values are served exactly as
// rendered, with no trailing newline:
//
//   - money: minor units formatted with two decimal places ("1.00",
//     "-55.69", "0.00")
//   - booleans: "True" or "False"
//   - timestamps and other strings: the upstream text verbatim
//   - object fields: the raw JSON sub-document
//   - missing optional values: empty content

// renderBalanceField renders one field of a balance snapshot.
func renderBalanceField(balance monzo.Balance, field string) ([]byte, error) {
	switch field {
	case "balance":
		return []byte(renderMinorUnits(balance.Balance)), nil
	case "currency":
		return []byte(balance.Currency), nil
	case "spend_today":
		return []byte(renderMinorUnits(balance.SpendToday)), nil
	}
	return nil, fmt.Errorf("%w: balance field %q", ErrNotFound, field)
}

// renderTransactionField renders one field of a transaction.
func renderTransactionField(transaction monzo.Transaction, field string) ([]byte, error) {
	switch field {
	case "account_balance":
		return []byte(renderMinorUnits(transaction.AccountBalance)), nil
	case "account_id":
		return []byte(transaction.AccountID), nil
	case "amount":
		return []byte(renderMinorUnits(transaction.Amount)), nil
	case "category":
		return []byte(transaction.Category), nil
	case "counterparty":
		return rawJSON(transaction.Counterparty), nil
	case "created":
		return []byte(transaction.Created), nil
	case "currency":
		return []byte(transaction.Currency), nil
	case "dedupe_id":
		return []byte(transaction.DedupeID), nil
	case "description":
		return []byte(transaction.Description), nil
	case "id":
		return []byte(transaction.ID), nil
	case "is_load":
		return []byte(renderBool(transaction.IsLoad)), nil
	case "json":
		return rawJSON(transaction.Raw), nil
	case "local_amount":
		return []byte(renderMinorUnits(transaction.LocalAmount)), nil
	case "local_currency":
		return []byte(transaction.LocalCurrency), nil
	case "merchant":
		return rawJSON(transaction.Merchant), nil
	case "metadata":
		return rawJSON(transaction.Metadata), nil
	case "notes":
		return []byte(transaction.Notes), nil
	case "originator":
		return []byte(renderBool(transaction.Originator)), nil
	case "scheme":
		return []byte(transaction.Scheme), nil
	case "settled":
		return []byte(transaction.Settled), nil
	case "updated":
		return []byte(transaction.Updated), nil
	}
	return nil, fmt.Errorf("%w: transaction field %q", ErrNotFound, field)
}

// renderMinorUnits formats an amount in minor units (pence) as a
// decimal string with exactly two fractional digits. The sign attaches
// to the whole number: -5569 renders as "-55.69".
func renderMinorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// renderBool renders a boolean as "True" or "False".
func renderBool(value bool) string {
	if value {
		return "True"
	}
	return "False"
}

// rawJSON returns a JSON sub-document verbatim, or empty content when
// the field was absent. A JSON null also reads as empty: to a file
// consumer an absent object and a null one are the same thing.
func rawJSON(raw []byte) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return []byte{}
	}
	return raw
}
