// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/monzofs/monzofs/lib/clock"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestClient creates a Client backed by the given httptest.Server
// with static token auth and the given clock.
func newTestClient(t *testing.T, server *httptest.Server, clk clock.Clock) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		HTTPClient:  server.Client(),
		Clock:       clk,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientHTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{
		BaseURL:     "http://api.monzo.com",
		AccessToken: "test",
	})
	if err == nil {
		t.Fatal("expected error for HTTP URL")
	}
	if got := err.Error(); got != `monzo: API client requires HTTPS (got "http://api.monzo.com")` {
		t.Errorf("unexpected error: %s", got)
	}
}

func TestNewClientMutuallyExclusiveAuth(t *testing.T) {
	_, err := NewClient(Config{
		AccessToken:  "test",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenStore:   NewTokenStore(t.TempDir() + "/token.yaml"),
	})
	if err == nil {
		t.Fatal("expected error for both auth modes")
	}
}

func TestNewClientNoAuth(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for no auth")
	}
}

func TestNewClientPartialOAuth(t *testing.T) {
	_, err := NewClient(Config{
		ClientID: "client",
		// Missing ClientSecret and TokenStore.
	})
	if err == nil {
		t.Fatal("expected error for partial OAuth config")
	}
}

func TestListAccounts(t *testing.T) {
	var receivedAuth string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedAuth = request.Header.Get("Authorization")
		if request.URL.Path != "/accounts" {
			t.Errorf("path = %q, want /accounts", request.URL.Path)
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"accounts":[{"id":"acc_1","description":"Current"},{"id":"acc_2"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real())
	accounts, err := client.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if len(accounts) != 2 || accounts[0].ID != "acc_1" || accounts[1].ID != "acc_2" {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("account_id"); got != "acc_1" {
			t.Errorf("account_id = %q, want acc_1", got)
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"balance":5000,"currency":"GBP","spend_today":-120}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real())
	balance, err := client.GetBalance(context.Background(), "acc_1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	want := Balance{Balance: 5000, Currency: "GBP", SpendToday: -120}
	if balance != want {
		t.Errorf("balance = %+v, want %+v", balance, want)
	}
}

// transactionJSON builds a compact transaction document for test
// responses.
func transactionJSON(id, created string, amount int64) string {
	return fmt.Sprintf(`{"id":%q,"account_id":"acc_1","amount":%d,"created":%q,"currency":"GBP","is_load":false}`,
		id, amount, created)
}

func TestListTransactionsExhaustsPagination(t *testing.T) {
	var sinceParams []string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		sinceParams = append(sinceParams, request.URL.Query().Get("since"))
		if got := request.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want 100", got)
		}

		var page []string
		if len(sinceParams) == 1 {
			// Full first page: pagination must continue.
			for i := 0; i < 100; i++ {
				page = append(page, transactionJSON(fmt.Sprintf("tx_%03d", i), "2016-08-01T10:00:00Z", -100))
			}
		} else {
			// Short second page: pagination stops here.
			page = append(page, transactionJSON("tx_100", "2016-08-02T10:00:00Z", -200))
		}

		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(writer, `{"transactions":[%s]}`, strings.Join(page, ","))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real())
	transactions, err := client.ListTransactions(context.Background(), "acc_1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}

	if len(transactions) != 101 {
		t.Fatalf("len(transactions) = %d, want 101", len(transactions))
	}
	if len(sinceParams) != 2 {
		t.Fatalf("page fetches = %d, want 2", len(sinceParams))
	}
	if sinceParams[0] != "" {
		t.Errorf("first since = %q, want empty", sinceParams[0])
	}
	if sinceParams[1] != "tx_099" {
		t.Errorf("second since = %q, want tx_099 (last id of first page)", sinceParams[1])
	}
}

func TestGetTransactionMerchantExpansion(t *testing.T) {
	var receivedExpand string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/transactions/tx_1" {
			t.Errorf("path = %q, want /transactions/tx_1", request.URL.Path)
		}
		receivedExpand = request.URL.Query().Get("expand[]")
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"transaction":{"id":"tx_1","merchant":{"id":"merch_1","name":"Coffee"}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real())
	transaction, err := client.GetTransaction(context.Background(), "tx_1", true)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if receivedExpand != "merchant" {
		t.Errorf("expand[] = %q, want merchant", receivedExpand)
	}
	if transaction.ID != "tx_1" {
		t.Errorf("id = %q, want tx_1", transaction.ID)
	}
	if string(transaction.Merchant) != `{"id":"merch_1","name":"Coffee"}` {
		t.Errorf("merchant = %s", transaction.Merchant)
	}
}

func TestTransactionRetainsRawDocument(t *testing.T) {
	document := `{"id":"tx_1","amount":-5569,"created":"2016-08-01T10:00:00Z","is_load":false,"unknown_field":"kept"}`

	var transaction Transaction
	if err := json.Unmarshal([]byte(document), &transaction); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if transaction.Amount != -5569 {
		t.Errorf("amount = %d, want -5569", transaction.Amount)
	}
	if string(transaction.Raw) != document {
		t.Errorf("Raw = %s, want the document verbatim", transaction.Raw)
	}
}

func TestRateLimitedRequestRetriesAfterBackoff(t *testing.T) {
	fakeClock := clock.Fake(testEpoch)
	requestCount := 0

	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount++
		if requestCount == 1 {
			writer.Header().Set("Retry-After", "30")
			writer.WriteHeader(http.StatusTooManyRequests)
			writer.Write([]byte(`{"code":"too_many_requests","message":"slow down"}`))
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"balance":100,"currency":"GBP","spend_today":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, fakeClock)

	type result struct {
		balance Balance
		err     error
	}
	results := make(chan result, 1)
	go func() {
		balance, err := client.GetBalance(context.Background(), "acc_1")
		results <- result{balance, err}
	}()

	// The retry loop registers its backoff timer; fire it.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(30 * time.Second)

	got := <-results
	if got.err != nil {
		t.Fatalf("GetBalance: %v", got.err)
	}
	if got.balance.Balance != 100 {
		t.Errorf("balance = %d, want 100", got.balance.Balance)
	}
	if requestCount != 2 {
		t.Errorf("request count = %d, want 2", requestCount)
	}
}

func TestTransientFailureRetriesAndSucceeds(t *testing.T) {
	fakeClock := clock.Fake(testEpoch)
	requestCount := 0

	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount++
		if requestCount == 1 {
			writer.WriteHeader(http.StatusInternalServerError)
			writer.Write([]byte(`{"code":"internal_service","message":"oops"}`))
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"accounts":[{"id":"acc_1"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, fakeClock)

	results := make(chan error, 1)
	go func() {
		_, err := client.ListAccounts(context.Background())
		results <- err
	}()

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)

	if err := <-results; err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if requestCount != 2 {
		t.Errorf("request count = %d, want 2", requestCount)
	}
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	requestCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount++
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"code":"unauthorized.bad_access_token","message":"token expired"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real())
	_, err := client.ListAccounts(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnauthorized(err) {
		t.Errorf("IsUnauthorized(%v) = false, want true", err)
	}
	if IsRateLimited(err) || IsTransient(err) || IsNotFound(err) {
		t.Errorf("error misclassified: %v", err)
	}
	if requestCount != 1 {
		t.Errorf("request count = %d, want 1 (no retry)", requestCount)
	}
}

func TestNotFoundClassification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writer.Write([]byte(`{"code":"not_found","message":"no such account"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real())
	_, err := client.GetBalance(context.Background(), "acc_missing")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}
