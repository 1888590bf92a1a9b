// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import "encoding/json"

// Account is one of the user's bank accounts. The engine treats it as
// a read-only mirror; identity is the ID.
type Account struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// Balance is a per-account balance snapshot. Monetary fields are in
// minor units (pence). One fetch yields all fields atomically.
type Balance struct {
	Balance    int64  `json:"balance"`
	Currency   string `json:"currency"`
	SpendToday int64  `json:"spend_today"`
}

// Attachment is an image attached to a transaction.
type Attachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	FileType string `json:"file_type"`
	Created  string `json:"created"`
}

// Transaction is a single transaction record. Monetary fields are in
// minor units; timestamp fields keep the API's string representation
// byte-for-byte. Raw holds the document exactly as received, so the
// canonical JSON view and the per-field views always describe the same
// record.
//
// Object-valued fields (counterparty, merchant, metadata) are kept as
// raw JSON sub-documents: merchant in particular is a bare id string
// or an expanded object depending on the request.
type Transaction struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	AccountBalance int64           `json:"account_balance"`
	Amount         int64           `json:"amount"`
	Attachments    []Attachment    `json:"attachments"`
	Category       string          `json:"category"`
	Counterparty   json.RawMessage `json:"counterparty"`
	Created        string          `json:"created"`
	Currency       string          `json:"currency"`
	DedupeID       string          `json:"dedupe_id"`
	Description    string          `json:"description"`
	IsLoad         bool            `json:"is_load"`
	LocalAmount    int64           `json:"local_amount"`
	LocalCurrency  string          `json:"local_currency"`
	Merchant       json.RawMessage `json:"merchant"`
	Metadata       json.RawMessage `json:"metadata"`
	Notes          string          `json:"notes"`
	Originator     bool            `json:"originator"`
	Scheme         string          `json:"scheme"`
	Settled        string          `json:"settled"`
	Updated        string          `json:"updated"`

	// Raw is the transaction document exactly as received from the
	// API, including fields this struct does not enumerate.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and retains the original
// document in Raw.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*t = Transaction(decoded)
	t.Raw = append(json.RawMessage(nil), data...)
	return nil
}
