// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package monzo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Token is an OAuth token with its absolute expiry. The zero Token is
// "no credential".
type Token struct {
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	UserID       string    `yaml:"user_id,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at"`
}

// Valid reports whether the token holds an access token that has not
// expired at the given time.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Refreshable reports whether the token can be refreshed without an
// interactive login.
func (t Token) Refreshable() bool {
	return t.RefreshToken != ""
}

// TokenStore persists an OAuth token as a YAML file with 0600
// permissions. The file is replaced wholesale on each save.
type TokenStore struct {
	path string
}

// NewTokenStore returns a store backed by the given file path. The
// file need not exist yet.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path.
func (store *TokenStore) Path() string { return store.path }

// Load reads the persisted token. A missing file is not an error: it
// returns the zero Token, meaning no credential has been stored yet.
func (store *TokenStore) Load() (Token, error) {
	data, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Token{}, nil
	}
	if err != nil {
		return Token{}, fmt.Errorf("reading token file %s: %w", store.path, err)
	}

	var token Token
	if err := yaml.Unmarshal(data, &token); err != nil {
		return Token{}, fmt.Errorf("parsing token file %s: %w", store.path, err)
	}
	return token, nil
}

// Save writes the token, creating parent directories as needed. The
// file is written with owner-only permissions.
func (store *TokenStore) Save(token Token) error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	data, err := yaml.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.WriteFile(store.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %s: %w", store.path, err)
	}
	return nil
}
