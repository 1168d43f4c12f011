package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/Naranpurev/devcamper/auth"
	"github.com/Naranpurev/devcamper/bootcamp"
	"github.com/Naranpurev/devcamper/config"
	"github.com/Naranpurev/devcamper/database"
	"github.com/Naranpurev/devcamper/mailer"
	"github.com/Naranpurev/devcamper/server"
)

func main() {
	var configFile string

	cmd := &cli.Command{
		Name:  "devcamper",
		Usage: "bootcamp directory API server",
		Flags: config.Flags(&configFile),
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, config.NewFromCLI(c))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	repos := auth.NewRepositoryManager(db)
	if err := repos.Validate(); err != nil {
		return err
	}
	users := repos.Users()
	camps := bootcamp.NewRepository(db)

	tokens := auth.NewTokenService([]byte(cfg.Auth.SigningKey), cfg.Auth.TokenTTL, cfg.Auth.Issuer, logger)
	resets := auth.NewResetTokenGenerator(cfg.Auth.ResetTokenTTL)

	auther := auth.NewAuthenticator(users, tokens, resets).WithLogger(logger)

	if cfg.SMTP.Host != "" {
		smtp, err := mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			TLS:      cfg.SMTP.TLS,
		})
		if err != nil {
			return fmt.Errorf("configure mailer: %w", err)
		}
		auther = auther.WithMailer(smtp)
	} else {
		logger.Warn("smtp is not configured, password reset emails will fail")
	}

	app := server.New(server.Options{
		Auther:      auther,
		Users:       users,
		Bootcamps:   camps,
		Geocoder:    bootcamp.NewNominatimGeocoder(),
		Logger:      logger,
		TokenLookup: cfg.Auth.TokenLookup,
		Cookie: server.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Server.Production(),
		},
		ResetURLBase: cfg.Server.BaseURL + "/api/v1/auth/resetpassword",
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr(), "env", cfg.Server.Env)
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.Shutdown()
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	}
	return slog.New(handler)
}
