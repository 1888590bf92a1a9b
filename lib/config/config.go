// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for monzofs.
//
// Configuration is loaded from a single YAML file specified by:
//   - MONZOFS_CONFIG environment variable, or
//   - --config flag passed to the command
//
// The config file is the single source of truth; command-line flags
// override individual values on top of it. The only expansion
// performed is ${HOME} and similar path variables for portability.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for monzofs.
type Config struct {
	// API configures the Monzo API client and OAuth credentials.
	API APIConfig `yaml:"api"`

	// Mount configures the filesystem mount.
	Mount MountConfig `yaml:"mount"`

	// Cache configures the freshness windows for fetched resources.
	Cache CacheConfig `yaml:"cache"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// APIConfig configures the Monzo API client.
type APIConfig struct {
	// BaseURL is the API base URL.
	// Default: https://api.monzo.com
	BaseURL string `yaml:"base_url"`

	// AuthURL is the OAuth authorization page base URL.
	// Default: https://auth.monzo.com
	AuthURL string `yaml:"auth_url"`

	// ClientID and ClientSecret identify the registered OAuth client.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// AccessToken is a static Bearer token. When set, the OAuth flow is
	// bypassed entirely. Mutually exclusive with ClientID/ClientSecret.
	AccessToken string `yaml:"access_token"`

	// TokenFile is where the OAuth token is persisted.
	// Default: ${HOME}/.config/monzofs/token.yaml
	TokenFile string `yaml:"token_file"`
}

// MountConfig configures the filesystem mount.
type MountConfig struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string `yaml:"mountpoint"`

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	// Default: false
	AllowOther bool `yaml:"allow_other"`
}

// CacheConfig configures resource freshness windows. Durations are Go
// duration strings ("30s", "5m", "1h").
type CacheConfig struct {
	// AccountsTTL is how long the account list stays fresh.
	// Default: 1h
	AccountsTTL string `yaml:"accounts_ttl"`

	// BalanceTTL is how long a balance snapshot stays fresh. Must not
	// exceed TransactionsTTL: a balance must never look fresher than
	// the transactions that produced it.
	// Default: 30s
	BalanceTTL string `yaml:"balance_ttl"`

	// TransactionsTTL is how long a transaction list stays fresh.
	// Default: 5m
	TransactionsTTL string `yaml:"transactions_ttl"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// File is where log output is written. Empty means stderr.
	File string `yaml:"file"`

	// Verbose enables debug-level logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file, so every field has a
// sensible value even when the file only sets a few.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.monzo.com",
			AuthURL:   "https://auth.monzo.com",
			TokenFile: "${HOME}/.config/monzofs/token.yaml",
		},
		Cache: CacheConfig{
			AccountsTTL:     "1h",
			BalanceTTL:      "30s",
			TransactionsTTL: "5m",
		},
	}
}

// Load loads configuration from the MONZOFS_CONFIG environment
// variable. Returns defaults when the variable is not set: unlike a
// server deployment, a personal mount works fine with flags alone.
func Load() (*Config, error) {
	configPath := os.Getenv("MONZOFS_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging the
// file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.API.TokenFile = expandVars(c.API.TokenFile, vars)
	c.Mount.Mountpoint = expandVars(c.Mount.Mountpoint, vars)
	c.Log.File = expandVars(c.Log.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// TTLs holds the parsed cache durations.
type TTLs struct {
	Accounts     time.Duration
	Balance      time.Duration
	Transactions time.Duration
}

// ParseTTLs parses the cache duration strings. Call Validate first;
// ParseTTLs assumes the strings are well-formed.
func (c *Config) ParseTTLs() (TTLs, error) {
	accounts, err := time.ParseDuration(c.Cache.AccountsTTL)
	if err != nil {
		return TTLs{}, fmt.Errorf("cache.accounts_ttl: %w", err)
	}
	balance, err := time.ParseDuration(c.Cache.BalanceTTL)
	if err != nil {
		return TTLs{}, fmt.Errorf("cache.balance_ttl: %w", err)
	}
	transactions, err := time.ParseDuration(c.Cache.TransactionsTTL)
	if err != nil {
		return TTLs{}, fmt.Errorf("cache.transactions_ttl: %w", err)
	}
	return TTLs{Accounts: accounts, Balance: balance, Transactions: transactions}, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Mount.Mountpoint == "" {
		errs = append(errs, fmt.Errorf("mount.mountpoint is required"))
	} else if !filepath.IsAbs(c.Mount.Mountpoint) {
		errs = append(errs, fmt.Errorf("mount.mountpoint must be an absolute path"))
	}

	hasStatic := c.API.AccessToken != ""
	hasOAuth := c.API.ClientID != "" || c.API.ClientSecret != ""
	if hasStatic && hasOAuth {
		errs = append(errs, fmt.Errorf("api.access_token and api.client_id/client_secret are mutually exclusive"))
	}
	if !hasStatic && !hasOAuth {
		errs = append(errs, fmt.Errorf("api credentials required: set api.access_token, or api.client_id and api.client_secret"))
	}
	if hasOAuth {
		if c.API.ClientID == "" {
			errs = append(errs, fmt.Errorf("api.client_id is required for OAuth"))
		}
		if c.API.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("api.client_secret is required for OAuth"))
		}
		if c.API.TokenFile == "" {
			errs = append(errs, fmt.Errorf("api.token_file is required for OAuth"))
		}
	}

	ttls, err := c.ParseTTLs()
	if err != nil {
		errs = append(errs, err)
	} else {
		if ttls.Accounts <= 0 || ttls.Balance <= 0 || ttls.Transactions <= 0 {
			errs = append(errs, fmt.Errorf("cache TTLs must be positive"))
		}
		// A balance reflects the transactions at fetch time; letting it
		// outlive the transaction window would show a balance no visible
		// transaction explains.
		if ttls.Balance > ttls.Transactions {
			errs = append(errs, fmt.Errorf("cache.balance_ttl (%s) must not exceed cache.transactions_ttl (%s)",
				c.Cache.BalanceTTL, c.Cache.TransactionsTTL))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
