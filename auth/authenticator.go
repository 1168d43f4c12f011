package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// operationTimeout caps every flow's store and mail I/O.
const operationTimeout = 10 * time.Second

// Auther orchestrates the account flows: register, login, detail and
// password updates, and the two-step password recovery. It holds no state
// beyond its collaborators; "logged in" is possession of a valid token.
type Auther struct {
	store  UserStore
	tokens *TokenService
	resets *ResetTokenGenerator
	mailer Mailer
	logger Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(store UserStore, tokens *TokenService, resets *ResetTokenGenerator) *Auther {
	return &Auther{
		store:  store,
		tokens: tokens,
		resets: resets,
		mailer: noopMailer{},
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Auther) WithMailer(mailer Mailer) *Auther {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// TokenService returns the token service used by this Auther.
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// Register creates the user with a hashed password and issues a session
// token. An admin role cannot be claimed through self-registration.
func (s *Auther) Register(ctx context.Context, name, email, password string, role UserRole) (*User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if role == "" {
		role = RoleUser
	}
	if !AssignableRole(role) {
		return nil, "", goerrors.New("role cannot be assigned on registration", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": role})
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.Register(ctx, &User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login verifies the credentials and issues a session token. A missing user
// and a wrong password produce the exact same error so the response does
// not reveal which accounts exist.
func (s *Auther) Login(ctx context.Context, email, password string) (*User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	user, err := s.store.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, "", ErrMismatchedHashAndPassword
		}
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, "", ErrMismatchedHashAndPassword
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

// UpdateDetails changes name and email for the authenticated user.
func (s *Auther) UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	user, err := s.store.UpdateDetails(ctx, id, name, email)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		if IsRecordNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user details")
	}
	return user, nil
}

// UpdatePassword verifies the current password, stores the new hash, and
// issues a fresh session token.
func (s *Auther) UpdatePassword(ctx context.Context, id uuid.UUID, current, next string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	user, err := s.store.GetByIDWithPassword(ctx, id)
	if err != nil {
		if IsRecordNotFound(err) {
			return "", ErrUnauthenticated
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during password update")
	}

	if err := ComparePasswordAndHash(current, user.PasswordHash); err != nil {
		return "", ErrMismatchedHashAndPassword
	}

	hash, err := HashPassword(next)
	if err != nil {
		return "", err
	}

	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new password")
	}

	return s.tokens.Issue(user.ID.String(), user.Role)
}

// ForgotPassword generates a reset token, persists its hash and expiry,
// and mails the raw token. When delivery fails the stored pair is cleared
// again so the failed attempt leaves no live token behind.
func (s *Auther) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	raw, hash, expire, err := s.resets.Generate()
	if err != nil {
		return err
	}

	if err := s.store.SaveResetToken(ctx, user.ID, hash, expire); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset token")
	}

	body := fmt.Sprintf(
		"You are receiving this email because you (or someone else) has requested the reset of a password. "+
			"Please make a PUT request to:\n\n%s/%s",
		resetURLBase, raw,
	)

	if err := s.mailer.Send(ctx, user.Email, "Password reset token", body); err != nil {
		s.logger.Error("reset token delivery failed", "error", err, "user_id", user.ID.String())

		// The send may have died by exhausting ctx, so the rollback gets
		// its own deadline; otherwise a live token hash stays persisted.
		rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), operationTimeout)
		defer cancel()

		if clearErr := s.store.ClearResetToken(rollbackCtx, user.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset token", "error", clearErr, "user_id", user.ID.String())
		}
		return ErrDeliveryFailed
	}

	return nil
}

// ResetPassword exchanges a valid raw reset token for a new password and a
// fresh session token. An unknown and an expired token fail identically.
func (s *Auther) ResetPassword(ctx context.Context, rawToken, password string) (*User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	user, err := s.store.GetByResetToken(ctx, HashResetToken(rawToken), time.Now())
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, "", ErrInvalidResetToken
		}
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	if err := s.store.ResetPassword(ctx, user.ID, hash); err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset password")
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, subject, body string) error {
	return goerrors.New("no mailer configured", goerrors.CategoryInternal)
}
