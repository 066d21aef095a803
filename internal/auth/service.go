package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"taskhub.org/internal/ids"
	"taskhub.org/internal/obs"
)

// Service implements the account operations exposed to transports:
// register, login, refresh, logout, logout everywhere and profile lookup.
type Service struct {
	users       UserStore
	credentials *CredentialStore
	tokens      *TokenService
	now         func() time.Time
	logger      *slog.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source used for new users.
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs Service.
func NewService(users UserStore, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if users == nil || tokens == nil {
		return nil, errors.New("auth: user store and token service are required")
	}
	svc := &Service{
		users:  users,
		tokens: tokens,
		now:    time.Now,
		logger: obs.Logger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.credentials = NewCredentialStore(users, svc.logger)
	return svc, nil
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

func (in RegisterInput) validate() error {
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.ContainsAny(in.Email, "<> ") {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if n := len(strings.TrimSpace(in.Name)); n < 2 || n > 100 {
		return fmt.Errorf("%w: name must be between 2 and 100 characters", ErrInvalidInput)
	}
	return ValidatePassword(in.Password)
}

// Register creates a user and signs them in. A taken email is ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, TokenPair, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return User{}, TokenPair{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, TokenPair{}, fmt.Errorf("hashing password: %w", err)
	}
	now := s.now().UTC()
	user := User{
		ID:           ids.New(),
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, ErrConflict) {
			return User{}, TokenPair{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return User{}, TokenPair{}, fmt.Errorf("creating user: %w", err)
	}

	pair, err := s.tokens.IssuePair(ctx, user.ID, user.Email)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return user, pair, nil
}

// Login verifies credentials and issues a new pair. Other sessions of the
// user stay valid.
func (s *Service) Login(ctx context.Context, email, password string) (User, TokenPair, error) {
	user, err := s.credentials.Verify(ctx, email, password)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	pair, err := s.tokens.IssuePair(ctx, user.ID, user.Email)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh rotates refreshToken into a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, ErrUnauthorized
	}
	return s.tokens.Rotate(ctx, refreshToken)
}

// Logout revokes one refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// LogoutAll revokes every live refresh token of the user.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "user signed out everywhere",
		slog.String("user_id", userID), slog.Int64("revoked", n))
	return n, nil
}

// Profile returns the non-deleted user with id userID.
func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}
