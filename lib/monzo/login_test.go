// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/monzofs/monzofs/lib/clock"
)

// syncBuffer is a bytes.Buffer safe for concurrent writes. Login
// writes the prompt from its own goroutine while the test reads it.
type syncBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(data)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// promptedAuthURL polls the login output until the authorization URL
// appears and returns it parsed.
func promptedAuthURL(t *testing.T, output *syncBuffer) *url.URL {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, line := range strings.Split(output.String(), "\n") {
			line = strings.TrimSpace(line)
			if strings.Contains(line, "client_id=") {
				parsed, err := url.Parse(line)
				if err != nil {
					t.Fatalf("parsing prompted URL %q: %v", line, err)
				}
				return parsed
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("authorization URL never appeared in login output")
	return nil
}

func TestLoginExchangesCallbackCode(t *testing.T) {
	fakeClock := clock.Fake(testEpoch)

	var exchangeForm map[string]string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/oauth2/token" {
			t.Errorf("path = %q, want /oauth2/token", request.URL.Path)
		}
		if err := request.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		exchangeForm = map[string]string{
			"grant_type": request.PostForm.Get("grant_type"),
			"client_id":  request.PostForm.Get("client_id"),
			"code":       request.PostForm.Get("code"),
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","user_id":"user_1","expires_in":21600}`))
	}))
	defer server.Close()

	output := &syncBuffer{}

	type result struct {
		token Token
		err   error
	}
	results := make(chan result, 1)
	go func() {
		token, err := Login(context.Background(), LoginOptions{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AuthURL:      "https://auth.example.test",
			APIBaseURL:   server.URL,
			RedirectAddr: "127.0.0.1:0",
			HTTPClient:   server.Client(),
			Clock:        fakeClock,
			Output:       output,
		})
		results <- result{token, err}
	}()

	authURL := promptedAuthURL(t, output)
	if got := authURL.Query().Get("client_id"); got != "client-id" {
		t.Errorf("client_id = %q, want client-id", got)
	}
	if got := authURL.Query().Get("response_type"); got != "code" {
		t.Errorf("response_type = %q, want code", got)
	}
	state := authURL.Query().Get("state")
	if len(state) != 64 {
		t.Errorf("state length = %d, want 64", len(state))
	}
	redirectURI := authURL.Query().Get("redirect_uri")
	if !strings.HasPrefix(redirectURI, "http://127.0.0.1:") {
		t.Fatalf("redirect_uri = %q, want a loopback URL", redirectURI)
	}

	// Simulate the provider redirecting the user's browser back.
	response, err := http.Get(redirectURI + "?code=test-code&state=" + state)
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("callback status = %d, want 200", response.StatusCode)
	}

	got := <-results
	if got.err != nil {
		t.Fatalf("Login: %v", got.err)
	}
	if got.token.AccessToken != "new-access" || got.token.RefreshToken != "new-refresh" {
		t.Errorf("token = %+v", got.token)
	}
	if want := testEpoch.Add(21600 * time.Second); !got.token.ExpiresAt.Equal(want) {
		t.Errorf("expiry = %v, want %v", got.token.ExpiresAt, want)
	}

	want := map[string]string{
		"grant_type": "authorization_code",
		"client_id":  "client-id",
		"code":       "test-code",
	}
	for key, value := range want {
		if exchangeForm[key] != value {
			t.Errorf("exchange form %s = %q, want %q", key, exchangeForm[key], value)
		}
	}
}

func TestLoginRejectsStateMismatch(t *testing.T) {
	output := &syncBuffer{}

	results := make(chan error, 1)
	go func() {
		_, err := Login(context.Background(), LoginOptions{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AuthURL:      "https://auth.example.test",
			APIBaseURL:   "https://api.example.test",
			RedirectAddr: "127.0.0.1:0",
			Clock:        clock.Fake(testEpoch),
			Output:       output,
		})
		results <- err
	}()

	authURL := promptedAuthURL(t, output)
	redirectURI := authURL.Query().Get("redirect_uri")

	response, err := http.Get(redirectURI + "?code=test-code&state=forged")
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	response.Body.Close()

	if err := <-results; err == nil || !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("error = %v, want state mismatch", err)
	}
}

func TestLoginCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	output := &syncBuffer{}

	results := make(chan error, 1)
	go func() {
		_, err := Login(ctx, LoginOptions{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectAddr: "127.0.0.1:0",
			Clock:        clock.Fake(testEpoch),
			Output:       output,
		})
		results <- err
	}()

	promptedAuthURL(t, output)
	cancel()

	if err := <-results; err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	if _, err := Login(context.Background(), LoginOptions{ClientSecret: "secret"}); err == nil {
		t.Error("expected error for missing ClientID")
	}
	if _, err := Login(context.Background(), LoginOptions{ClientID: "client"}); err == nil {
		t.Error("expected error for missing ClientSecret")
	}
}
