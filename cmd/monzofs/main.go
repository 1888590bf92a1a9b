// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// monzofs mounts a Monzo bank account as a read-only filesystem:
//
//	<mountpoint>/<account_id>/balance/{balance,currency,spend_today}
//	<mountpoint>/<account_id>/transactions/<yyyy>/<mm>/<tx_id>/<field>
//
// Configuration comes from a YAML file (--config or MONZOFS_CONFIG)
// with individual values overridable by flags. First-time OAuth setup:
//
//	monzofs --login --client-id ... --client-secret ...
//
// which walks the browser authorization flow and stores the token for
// subsequent mounts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/monzofs/monzofs/lib/config"
	"github.com/monzofs/monzofs/lib/engine"
	enginefuse "github.com/monzofs/monzofs/lib/engine/fuse"
	"github.com/monzofs/monzofs/lib/monzo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		mountpoint   string
		clientID     string
		clientSecret string
		accessToken  string
		tokenFile    string
		allowOther   bool
		logFile      string
		verbose      bool
		login        bool
	)

	flagSet := pflag.NewFlagSet("monzofs", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $MONZOFS_CONFIG)")
	flagSet.StringVar(&mountpoint, "mountpoint", "", "directory to mount the filesystem at")
	flagSet.StringVar(&clientID, "client-id", "", "OAuth client id")
	flagSet.StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	flagSet.StringVar(&accessToken, "access-token", "", "static API access token (bypasses OAuth)")
	flagSet.StringVar(&tokenFile, "token-file", "", "path for the persisted OAuth token")
	flagSet.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	flagSet.StringVar(&logFile, "log-file", "", "write log output to this file instead of stderr")
	flagSet.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flagSet.BoolVar(&login, "login", false, "run the browser authorization flow and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		// A bare positional argument is taken as the mountpoint, the
		// way mount helpers conventionally accept it.
		if len(args) > 1 {
			return fmt.Errorf("unexpected argument: %s", args[1])
		}
		mountpoint = args[0]
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Flags override file values.
	if mountpoint != "" {
		cfg.Mount.Mountpoint = mountpoint
	}
	if clientID != "" {
		cfg.API.ClientID = clientID
	}
	if clientSecret != "" {
		cfg.API.ClientSecret = clientSecret
	}
	if accessToken != "" {
		cfg.API.AccessToken = accessToken
	}
	if tokenFile != "" {
		cfg.API.TokenFile = tokenFile
	}
	if allowOther {
		cfg.Mount.AllowOther = true
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if verbose {
		cfg.Log.Verbose = true
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if login {
		return runLogin(ctx, cfg, logger)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return mount(ctx, cfg, logger)
}

// loadConfig loads the config file named by --config, falling back to
// MONZOFS_CONFIG and then to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger builds the process logger per the log configuration. The
// returned close function releases the log file, if one was opened.
func newLogger(logConfig config.LogConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if logConfig.Verbose {
		level = slog.LevelDebug
	}

	output := os.Stderr
	closeLog := func() {}
	if logConfig.File != "" {
		file, err := os.OpenFile(logConfig.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		output = file
		closeLog = func() { file.Close() }
	}

	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})), closeLog, nil
}

// runLogin walks the OAuth authorization flow and persists the token.
func runLogin(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.API.ClientID == "" || cfg.API.ClientSecret == "" {
		return fmt.Errorf("--login requires a client id and secret (--client-id/--client-secret or the config file)")
	}
	if cfg.API.TokenFile == "" {
		return fmt.Errorf("--login requires a token file path")
	}

	token, err := monzo.Login(ctx, monzo.LoginOptions{
		ClientID:     cfg.API.ClientID,
		ClientSecret: cfg.API.ClientSecret,
		AuthURL:      cfg.API.AuthURL,
		APIBaseURL:   cfg.API.BaseURL,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	store := monzo.NewTokenStore(cfg.API.TokenFile)
	if err := store.Save(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Printf("Authorized. Token saved to %s.\n", store.Path())
	return nil
}

// mount builds the client and engine, mounts the filesystem, and
// blocks until a shutdown signal arrives.
func mount(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	clientConfig := monzo.Config{
		BaseURL: cfg.API.BaseURL,
		Logger:  logger,
	}
	if cfg.API.AccessToken != "" {
		clientConfig.AccessToken = cfg.API.AccessToken
	} else {
		store := monzo.NewTokenStore(cfg.API.TokenFile)

		// A token that is neither valid nor refreshable can only be
		// replaced interactively; do that now rather than mounting a
		// filesystem that EACCESes every operation.
		token, err := store.Load()
		if err != nil {
			return err
		}
		if !token.Valid(time.Now()) && !token.Refreshable() {
			if err := runLogin(ctx, cfg, logger); err != nil {
				return err
			}
		}

		clientConfig.ClientID = cfg.API.ClientID
		clientConfig.ClientSecret = cfg.API.ClientSecret
		clientConfig.TokenStore = store
	}

	client, err := monzo.NewClient(clientConfig)
	if err != nil {
		return err
	}

	ttls, err := cfg.ParseTTLs()
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Options{
		Gateway:         client,
		Logger:          logger,
		AccountsTTL:     ttls.Accounts,
		BalanceTTL:      ttls.Balance,
		TransactionsTTL: ttls.Transactions,
	})
	if err != nil {
		return err
	}

	server, err := enginefuse.Mount(enginefuse.Options{
		Mountpoint: cfg.Mount.Mountpoint,
		Engine:     eng,
		AllowOther: cfg.Mount.AllowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	// Unmount on SIGINT/SIGTERM; Wait returns once the kernel lets go.
	go func() {
		<-ctx.Done()
		logger.Info("shutting down", "mountpoint", cfg.Mount.Mountpoint)
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed; is the mountpoint busy?", "error", err)
		}
	}()

	server.Wait()
	return nil
}
