package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so API clients can branch on
// failure kind without parsing messages.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenBadSignature  = "TOKEN_BAD_SIGNATURE"
	TextCodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeDeliveryFailed     = "DELIVERY_FAILED"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
)

// ErrMismatchedHashAndPassword is returned both when the user does not exist
// and when the password does not match, so a caller cannot tell which check
// failed.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("there is no user with that email", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrTokenExpired marks a session token past its expiry
var ErrTokenExpired = goerrors.New("authentication token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed marks a structurally invalid session token
var ErrTokenMalformed = goerrors.New("authentication token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenBadSignature marks a token whose signature does not verify
// against the server key
var ErrTokenBadSignature = goerrors.New("authentication token signature is invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenBadSignature)

// ErrInvalidResetToken covers both an unknown reset token and an expired
// one; the two cases are indistinguishable to the caller.
var ErrInvalidResetToken = goerrors.New("invalid or expired reset token", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidResetToken)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrDeliveryFailed is returned when the reset email could not be sent;
// the reset-token fields have already been rolled back when it surfaces.
var ErrDeliveryFailed = goerrors.New("email could not be sent", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeDeliveryFailed)

// ErrUnauthenticated is the guard's catch-all for requests without a usable
// session token
var ErrUnauthenticated = goerrors.New("not authorized to access this route", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeSessionNotFound)

// ErrForbidden rejects an authenticated user whose role is not allowed
var ErrForbidden = goerrors.New("user role is not authorized to access this route", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrDuplicateEmail maps the store's unique constraint on email
var ErrDuplicateEmail = goerrors.New("a user with that email already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeDuplicateEmail)

// IsUniqueViolation detects the driver's unique-constraint error. The
// sqlite shim does not expose a typed error for it, so we match on the
// message the same way we match token errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
