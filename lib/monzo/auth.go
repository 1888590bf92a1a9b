// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/monzofs/monzofs/lib/clock"
)

// authenticator provides Authorization header values for Monzo API
// requests. Implementations handle token lifecycle (static for access
// tokens supplied directly, auto-refreshing for OAuth tokens).
type authenticator interface {
	// AuthorizationHeader returns a valid Authorization header value
	// (e.g., "Bearer acc_xxx"). For OAuth, this may trigger a token
	// refresh if the current token is near expiry.
	AuthorizationHeader(ctx context.Context) (string, error)
}

// refreshMargin is how far before expiry the OAuth token is refreshed.
// Refreshing early avoids races where a token expires mid-request.
const refreshMargin = time.Minute

// staticAuth is a fixed Bearer token authenticator.
type staticAuth struct {
	header string
}

func newStaticAuth(token string) *staticAuth {
	return &staticAuth{header: "Bearer " + token}
}

func (auth *staticAuth) AuthorizationHeader(_ context.Context) (string, error) {
	return auth.header, nil
}

// refreshingAuth authenticates with an OAuth token, refreshing it via
// the refresh_token grant before expiry and persisting each rotation.
// The token is swapped wholesale under the mutex — a request reading
// the current token never observes a partial update.
type refreshingAuth struct {
	clientID     string
	clientSecret string
	store        *TokenStore
	clock        clock.Clock
	logger       *slog.Logger

	// httpClient and baseURL are set by the Client after construction
	// (the client needs the auth for headers; the auth needs the
	// client's transport for the refresh request).
	httpClient *http.Client
	baseURL    string

	mu    sync.Mutex
	token Token
}

func (auth *refreshingAuth) AuthorizationHeader(ctx context.Context) (string, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()

	now := auth.clock.Now()
	if auth.token.AccessToken != "" && now.Before(auth.token.ExpiresAt.Add(-refreshMargin)) {
		return "Bearer " + auth.token.AccessToken, nil
	}

	if auth.token.RefreshToken == "" {
		return "", fmt.Errorf("monzo: access token expired and no refresh token available; re-run login")
	}

	token, err := exchangeToken(ctx, auth.httpClient, auth.baseURL, auth.clock, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {auth.clientID},
		"client_secret": {auth.clientSecret},
		"refresh_token": {auth.token.RefreshToken},
	})
	if err != nil {
		return "", fmt.Errorf("monzo: refreshing access token: %w", err)
	}

	auth.token = token
	if auth.store != nil {
		if err := auth.store.Save(token); err != nil {
			// A failed save is not fatal for this request — the token
			// is valid in memory — but the next process start will
			// have to refresh again.
			auth.logger.Warn("persisting refreshed token failed", "error", err)
		}
	}

	auth.logger.Info("access token refreshed", "expires_at", token.ExpiresAt)
	return "Bearer " + token.AccessToken, nil
}

// exchangeToken POSTs to the /oauth2/token endpoint and returns the
// resulting token with its absolute expiry computed from expires_in.
// Used by both the refresh path and the interactive login flow.
func exchangeToken(ctx context.Context, httpClient *http.Client, baseURL string, clk clock.Clock, form url.Values) (Token, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("creating token request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := httpClient.Do(request)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer response.Body.Close()

	body, err := readResponse(response.Body)
	if err != nil {
		return Token{}, fmt.Errorf("reading token response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return Token{}, parseAPIError(response.StatusCode, body)
	}

	var wire struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Token{}, fmt.Errorf("decoding token response: %w", err)
	}
	if wire.AccessToken == "" {
		return Token{}, fmt.Errorf("token response contained no access_token")
	}

	return Token{
		AccessToken:  wire.AccessToken,
		RefreshToken: wire.RefreshToken,
		UserID:       wire.UserID,
		ExpiresAt:    clk.Now().Add(time.Duration(wire.ExpiresIn) * time.Second),
	}, nil
}
