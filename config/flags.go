package config

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// sources creates a value source chain combining env vars and TOML config.
func sources(envKey, tomlKey string, tomlSrc altsrc.Sourcer) cli.ValueSourceChain {
	chain := cli.EnvVars(envKey)
	chain.Chain = append(chain.Chain, toml.TOML(tomlKey, tomlSrc))
	return chain
}

// Flags returns the CLI flag set, each flag resolvable from the command
// line, an env var, or the TOML config file, in that order.
func Flags(configFile *string) []cli.Flag {
	tomlSrc := altsrc.NewStringPtrSourcer(configFile)

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.toml",
			Usage:       "Path to configuration file",
			Destination: configFile,
			Sources:     cli.EnvVars("CONFIG"),
		},

		&cli.StringFlag{
			Name:    "host",
			Value:   "0.0.0.0",
			Usage:   "Server host",
			Sources: sources("HOST", "server.host", tomlSrc),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   5000,
			Usage:   "Server port",
			Sources: sources("PORT", "server.port", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Value:   "http://localhost:5000",
			Usage:   "Base URL used in reset-password links",
			Sources: sources("BASE_URL", "server.base_url", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "env",
			Value:   "development",
			Usage:   "Runtime environment: development, production",
			Sources: sources("APP_ENV", "server.env", tomlSrc),
		},

		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/devcamper.db",
			Usage:   "SQLite database path",
			Sources: sources("DATABASE_DSN", "database.dsn", tomlSrc),
		},

		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret key for signing session tokens",
			Sources: sources("JWT_SECRET", "auth.jwt_secret", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "jwt-issuer",
			Value:   "devcamper",
			Usage:   "Issuer claim on session tokens",
			Sources: sources("JWT_ISSUER", "auth.jwt_issuer", tomlSrc),
		},
		&cli.IntFlag{
			Name:    "jwt-expire-hours",
			Value:   720,
			Usage:   "Session token lifetime in hours",
			Sources: sources("JWT_EXPIRE_HOURS", "auth.jwt_expire_hours", tomlSrc),
		},
		&cli.IntFlag{
			Name:    "reset-expire-minutes",
			Value:   10,
			Usage:   "Password reset token lifetime in minutes",
			Sources: sources("RESET_EXPIRE_MINUTES", "auth.reset_expire_minutes", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "cookie-name",
			Value:   "token",
			Usage:   "Session cookie name",
			Sources: sources("COOKIE_NAME", "auth.cookie_name", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "token-lookup",
			Value:   "cookie:token,header:Authorization",
			Usage:   "Token sources in precedence order",
			Sources: sources("TOKEN_LOOKUP", "auth.token_lookup", tomlSrc),
		},

		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP relay host",
			Sources: sources("SMTP_HOST", "smtp.host", tomlSrc),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP relay port",
			Sources: sources("SMTP_PORT", "smtp.port", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: sources("SMTP_USERNAME", "smtp.username", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: sources("SMTP_PASSWORD", "smtp.password", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@devcamper.io",
			Usage:   "From address on outgoing mail",
			Sources: sources("SMTP_FROM", "smtp.from", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "DevCamper",
			Usage:   "From display name on outgoing mail",
			Sources: sources("SMTP_FROM_NAME", "smtp.from_name", tomlSrc),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS when talking to the SMTP relay",
			Sources: sources("SMTP_TLS", "smtp.tls", tomlSrc),
		},

		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level: debug, info, warn, error",
			Sources: sources("LOG_LEVEL", "log.level", tomlSrc),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format: text, json",
			Sources: sources("LOG_FORMAT", "log.format", tomlSrc),
		},
	}
}
