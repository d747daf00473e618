// Command devtoken mints a development password reset grant for one account.
//
//	go run ./cmd/devtoken -email user@example.com
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/config"
)

func main() {
	email := flag.String("email", "", "account email the grant is issued for")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if !cfg.DevResetEnabled() {
		logger.Error("development reset is disabled", slog.String("env", cfg.Server.Env))
		os.Exit(1)
	}

	token, err := auth.NewResetTokenManager(cfg.Dev.ResetSecret, cfg.Dev.ResetTokenTTL).Issue(*email)
	if err != nil {
		logger.Error("failed to issue reset token", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Println(token)
}
