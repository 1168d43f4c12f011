package auth

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the auth package needs. It matches
// the method set of *slog.Logger so callers can pass one straight through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Mailer delivers the reset token to the account's registered email.
// Implementations block until the message is accepted or rejected; the
// forgot-password flow compensates on failure.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DefaultLogger returns the printf fallback used when no logger is wired.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (defLogger) print(level, msg string, args ...any) {
	if len(args) == 0 {
		fmt.Printf("[%s] AUTH %s\n", level, msg)
		return
	}
	fmt.Printf("[%s] AUTH %s %v\n", level, msg, args)
}
