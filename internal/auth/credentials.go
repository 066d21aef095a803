package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskhub.org/internal/obs"
)

// CredentialStore verifies email and password pairs against stored hashes.
type CredentialStore struct {
	users  UserStore
	logger *slog.Logger
}

// NewCredentialStore constructs a CredentialStore. A nil logger uses the shared one.
func NewCredentialStore(users UserStore, logger *slog.Logger) *CredentialStore {
	return &CredentialStore{users: users, logger: obs.ResolveLogger(logger)}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Verify returns the user owning email when password matches. An unknown
// email and a wrong password both yield ErrInvalidCredentials.
func (c *CredentialStore) Verify(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	user, err := c.users.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Burn the same hashing cost as a real comparison.
		_, _ = VerifyPassword(password, dummyHash)
		obs.CredentialChecked(false)
		c.logger.DebugContext(ctx, "credential check failed", slog.String("reason", "unknown_email"))
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("loading user by email: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		c.logger.WarnContext(ctx, "stored password hash unusable",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
		ok = false
	}
	obs.CredentialChecked(ok)
	if !ok {
		c.logger.DebugContext(ctx, "credential check failed",
			slog.String("reason", "password_mismatch"), slog.String("user_id", user.ID))
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}
