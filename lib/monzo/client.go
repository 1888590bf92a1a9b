// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/monzofs/monzofs/lib/clock"
)

// defaultBaseURL is the base URL for the Monzo API.
const defaultBaseURL = "https://api.monzo.com"

// transactionPageLimit is the page size for the transactions endpoint.
// The API caps pages at 100 entries.
const transactionPageLimit = 100

// maxRetryAttempts bounds the retry loop for rate-limited and
// transient failures. The first attempt plus two retries.
const maxRetryAttempts = 3

// maxResponseSize bounds response body reads: 64 MB. Legitimate API
// responses are orders of magnitude smaller; the limit only guards
// against a pathological response exhausting memory.
const maxResponseSize int64 = 64 << 20

// Config holds configuration for creating a Monzo API Client.
//
// Exactly one authentication mode must be configured:
//   - Static token: set AccessToken
//   - OAuth: set ClientID, ClientSecret, and TokenStore
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// "https://api.monzo.com". Must use HTTPS.
	BaseURL string

	// AccessToken is a static Bearer token. Mutually exclusive with
	// the OAuth fields.
	AccessToken string

	// ClientID and ClientSecret identify the OAuth client. Required
	// for OAuth auth.
	ClientID     string
	ClientSecret string

	// TokenStore holds the persisted OAuth token. Required for OAuth
	// auth; the client reloads it at construction and persists each
	// rotation.
	TokenStore *TokenStore

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed Monzo REST API client with automatic token
// refresh, retry with backoff, pagination, and structured error
// handling. It satisfies the engine's Gateway interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       authenticator
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a Monzo API client from the given configuration.
// Returns an error if the configuration is invalid (bad auth config,
// non-HTTPS URL, unreadable token store).
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("monzo: API client requires HTTPS (got %q)", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hasStatic := config.AccessToken != ""
	hasOAuth := config.ClientID != "" || config.ClientSecret != "" || config.TokenStore != nil

	if hasStatic && hasOAuth {
		return nil, fmt.Errorf("monzo: cannot configure both a static access token and OAuth")
	}
	if !hasStatic && !hasOAuth {
		return nil, fmt.Errorf("monzo: no authentication configured (set AccessToken or ClientID+ClientSecret+TokenStore)")
	}

	var auth authenticator
	if hasStatic {
		auth = newStaticAuth(config.AccessToken)
	} else {
		if config.ClientID == "" {
			return nil, fmt.Errorf("monzo: ClientID is required for OAuth")
		}
		if config.ClientSecret == "" {
			return nil, fmt.Errorf("monzo: ClientSecret is required for OAuth")
		}
		if config.TokenStore == nil {
			return nil, fmt.Errorf("monzo: TokenStore is required for OAuth")
		}

		token, err := config.TokenStore.Load()
		if err != nil {
			return nil, fmt.Errorf("monzo: loading token: %w", err)
		}

		refreshing := &refreshingAuth{
			clientID:     config.ClientID,
			clientSecret: config.ClientSecret,
			store:        config.TokenStore,
			token:        token,
			clock:        clk,
			logger:       logger,
		}
		// Wire the HTTP transport for token refresh requests. The auth
		// and client have a circular dependency (client needs auth for
		// headers, auth needs the client's transport for refresh).
		refreshing.httpClient = httpClient
		refreshing.baseURL = baseURL
		auth = refreshing
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		auth:       auth,
		clock:      clk,
		logger:     logger,
	}, nil
}

// ListAccounts returns the user's accounts.
func (client *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var response struct {
		Accounts []Account `json:"accounts"`
	}
	if err := client.get(ctx, "/accounts", nil, &response); err != nil {
		return nil, err
	}
	return response.Accounts, nil
}

// GetBalance returns the balance snapshot for an account.
func (client *Client) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	query := url.Values{}
	query.Set("account_id", accountID)

	var balance Balance
	if err := client.get(ctx, "/balance", query, &balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// ListTransactions returns every transaction for an account, oldest
// page first. Pagination is exhausted here: the result is fully
// materialized and a partial page is never returned as if complete.
func (client *Client) ListTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var all []Transaction
	since := ""

	for {
		query := url.Values{}
		query.Set("account_id", accountID)
		query.Set("limit", strconv.Itoa(transactionPageLimit))
		if since != "" {
			query.Set("since", since)
		}

		var page struct {
			Transactions []Transaction `json:"transactions"`
		}
		if err := client.get(ctx, "/transactions", query, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Transactions...)
		if len(page.Transactions) < transactionPageLimit {
			return all, nil
		}

		// The next page starts after the last object id on this one.
		since = page.Transactions[len(page.Transactions)-1].ID
	}
}

// GetTransaction returns a single transaction. With expandMerchant,
// the merchant field is the expanded merchant object rather than a
// bare id.
func (client *Client) GetTransaction(ctx context.Context, transactionID string, expandMerchant bool) (Transaction, error) {
	var query url.Values
	if expandMerchant {
		query = url.Values{}
		query.Set("expand[]", "merchant")
	}

	var response struct {
		Transaction Transaction `json:"transaction"`
	}
	if err := client.get(ctx, "/transactions/"+url.PathEscape(transactionID), query, &response); err != nil {
		return Transaction{}, err
	}
	return response.Transaction, nil
}

// get executes an authenticated GET request and decodes the JSON
// response into result. Rate-limited (429) and transient (5xx,
// transport) failures are retried with backoff up to maxRetryAttempts.
func (client *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	requestURL := client.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	body, err := client.doWithRetry(ctx, requestURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("monzo: decoding %s response: %w", path, err)
	}
	return nil
}

// doWithRetry issues the request, retrying rate-limited and transient
// failures with clock-driven backoff. Retry-After is honored when
// present; otherwise the backoff doubles per attempt from one second.
func (client *Client) doWithRetry(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff(lastErr, attempt)
			client.logger.Info("retrying after failure",
				"url", requestURL,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-client.clock.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := client.doOnce(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// doOnce executes a single authenticated GET request.
func (client *Client) doOnce(ctx context.Context, requestURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("monzo: creating request: %w", err)
	}

	authHeader, err := client.auth.AuthorizationHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("monzo: authentication: %w", err)
	}
	request.Header.Set("Authorization", authHeader)
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, &transportError{url: requestURL, cause: err}
	}
	defer response.Body.Close()

	body, err := readResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("monzo: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiError := parseAPIError(response.StatusCode, body)
		apiError.retryAfter = parseRetryAfter(response.Header)
		return nil, apiError
	}

	return body, nil
}

// transportError is a network-level failure (connection refused,
// timeout). Always treated as transient.
type transportError struct {
	url   string
	cause error
}

func (err *transportError) Error() string {
	return fmt.Sprintf("monzo: GET %s: %v", err.url, err.cause)
}

func (err *transportError) Unwrap() error { return err.cause }

// retryable reports whether a failure is worth retrying: rate limits,
// server-side 5xx, and transport errors.
func retryable(err error) bool {
	if IsRateLimited(err) || IsTransient(err) {
		return true
	}
	var transport *transportError
	return errors.As(err, &transport)
}

// retryBackoff computes the wait before retry number attempt. A
// Retry-After on the failed response wins; otherwise exponential from
// one second.
func retryBackoff(err error, attempt int) time.Duration {
	var apiError *APIError
	if errors.As(err, &apiError) && apiError.retryAfter > 0 {
		return apiError.retryAfter
	}
	return time.Second << (attempt - 1)
}

// parseRetryAfter reads a Retry-After header in seconds. Returns zero
// when absent or unparseable.
func parseRetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// readResponse reads a JSON API response body up to maxResponseSize
// bytes. Used instead of io.ReadAll for every response body.
func readResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, maxResponseSize))
}
