// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/monzofs/monzofs/lib/clock"
	"golang.org/x/term"
)

// defaultAuthURL is the Monzo authorization page.
const defaultAuthURL = "https://auth.monzo.com"

// defaultRedirectAddr is where the loopback callback server listens.
// Port 0 picks an ephemeral port (useful in tests); the redirect URI
// always reflects the actual bound address.
const defaultRedirectAddr = "127.0.0.1:21234"

// LoginOptions configures the interactive authorization flow.
type LoginOptions struct {
	// ClientID and ClientSecret identify the OAuth client. Required.
	ClientID     string
	ClientSecret string

	// AuthURL is the authorization page base URL. Defaults to
	// "https://auth.monzo.com".
	AuthURL string

	// APIBaseURL is the API base URL used for the code exchange.
	// Defaults to "https://api.monzo.com".
	APIBaseURL string

	// RedirectAddr is the loopback listen address for the OAuth
	// callback. Defaults to "127.0.0.1:21234".
	RedirectAddr string

	// HTTPClient is used for the code exchange. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Output receives the user-facing authorization prompt. Defaults
	// to os.Stdout. The URL is ANSI-highlighted only when Output is
	// the process stdout and stdout is a terminal.
	Output io.Writer

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Login runs the OAuth authorization-code flow: it prints the
// authorization URL for the user, waits for the provider to redirect
// the user's browser to the loopback callback, verifies the state
// token, and exchanges the code for an OAuth token. The caller is
// responsible for persisting the result.
//
// Login blocks until the callback arrives or ctx is cancelled.
func Login(ctx context.Context, options LoginOptions) (Token, error) {
	if options.ClientID == "" {
		return Token{}, fmt.Errorf("monzo: ClientID is required for login")
	}
	if options.ClientSecret == "" {
		return Token{}, fmt.Errorf("monzo: ClientSecret is required for login")
	}

	authURL := options.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	apiBaseURL := options.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultBaseURL
	}
	redirectAddr := options.RedirectAddr
	if redirectAddr == "" {
		redirectAddr = defaultRedirectAddr
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	output := options.Output
	if output == nil {
		output = os.Stdout
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	expectedState, err := randomState()
	if err != nil {
		return Token{}, fmt.Errorf("monzo: generating state token: %w", err)
	}

	// Bind the callback listener before printing the URL so the
	// redirect URI reflects the actual bound address.
	listener, err := net.Listen("tcp", redirectAddr)
	if err != nil {
		return Token{}, fmt.Errorf("monzo: listening on %s for OAuth callback: %w", redirectAddr, err)
	}
	defer listener.Close()

	redirectURI := "http://" + listener.Addr().String() + "/"

	query := url.Values{}
	query.Set("client_id", options.ClientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("response_type", "code")
	query.Set("state", expectedState)
	fullAuthURL := strings.TrimRight(authURL, "/") + "/?" + query.Encode()

	fmt.Fprintln(output, "Please go to the URL below to authorize this app.")
	fmt.Fprintln(output)
	fmt.Fprintln(output, highlight(output, fullAuthURL))
	fmt.Fprintln(output)
	fmt.Fprintln(output, "You'll need to give Monzo your email, and they'll send you a")
	fmt.Fprintln(output, "confirmation email that you can use to sign in to this app.")

	callback, err := waitForCallback(ctx, listener, logger)
	if err != nil {
		return Token{}, err
	}

	if subtle.ConstantTimeCompare([]byte(callback.state), []byte(expectedState)) != 1 {
		return Token{}, fmt.Errorf("monzo: OAuth state mismatch")
	}

	token, err := exchangeToken(ctx, httpClient, apiBaseURL, clk, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {options.ClientID},
		"client_secret": {options.ClientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {callback.code},
	})
	if err != nil {
		return Token{}, fmt.Errorf("monzo: exchanging authorization code: %w", err)
	}

	logger.Info("authorization complete", "user_id", token.UserID, "expires_at", token.ExpiresAt)
	return token, nil
}

type callbackResult struct {
	code  string
	state string
}

// waitForCallback serves the loopback HTTP endpoint until the OAuth
// redirect arrives or ctx is cancelled.
func waitForCallback(ctx context.Context, listener net.Listener, logger *slog.Logger) (callbackResult, error) {
	results := make(chan callbackResult, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			code := request.URL.Query().Get("code")
			state := request.URL.Query().Get("state")
			if code == "" || state == "" {
				http.Error(writer, "missing code or state", http.StatusBadRequest)
				return
			}

			writer.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(writer, successPage)

			select {
			case results <- callbackResult{code: code, state: state}:
			default:
			}
		}),
	}

	serveErrors := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErrors <- err
		}
	}()
	defer server.Close()

	select {
	case result := <-results:
		return result, nil
	case err := <-serveErrors:
		return callbackResult{}, fmt.Errorf("monzo: OAuth callback server: %w", err)
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}

// randomState returns a 64-hex-character state token.
func randomState() (string, error) {
	buffer := make([]byte, 32)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}

// highlight wraps the URL in ANSI yellow when writing to a terminal,
// and returns it unchanged otherwise.
func highlight(output io.Writer, text string) string {
	if file, ok := output.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return "\033[93m" + text + "\033[0m"
	}
	return text
}

// successPage is shown in the user's browser after the callback.
const successPage = `<!DOCTYPE html>
<html>
  <head><title>monzofs authorized</title></head>
  <body>
    <h1>Success!</h1>
    <p>You've authorized monzofs. Navigate to the mount point in your
    favorite file browser to try it out. You can close this tab.</p>
  </body>
</html>
`
