// Package config carries all runtime settings as explicit structs. Nothing
// in the application reads the environment directly; the CLI layer binds
// flags, env vars, and the optional TOML file into a Config that gets
// passed down.
package config

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
	Env     string // development, production
}

// Production reports whether the server runs with production hardening
// (secure cookies).
func (s ServerConfig) Production() bool {
	return s.Env == "production"
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type AuthConfig struct {
	SigningKey    string
	Issuer        string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	CookieName    string
	// TokenLookup lists token sources in precedence order,
	// e.g. "cookie:token,header:Authorization".
	TokenLookup string
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// NewFromCLI materializes the Config from parsed command flags.
func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:    cmd.String("host"),
			Port:    int(cmd.Int("port")),
			BaseURL: cmd.String("base-url"),
			Env:     cmd.String("env"),
		},
		Auth: AuthConfig{
			SigningKey:    cmd.String("jwt-secret"),
			Issuer:        cmd.String("jwt-issuer"),
			TokenTTL:      time.Duration(cmd.Int("jwt-expire-hours")) * time.Hour,
			ResetTokenTTL: time.Duration(cmd.Int("reset-expire-minutes")) * time.Minute,
			CookieName:    cmd.String("cookie-name"),
			TokenLookup:   cmd.String("token-lookup"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("jwt signing secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("jwt expiry must be positive")
	}
	return nil
}
