package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskhub.org/internal/ids"
	"taskhub.org/internal/obs"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the JWT payload of both token kinds.
type Claims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues, verifies and rotates bearer token pairs and owns the
// refresh token ledger.
type TokenService struct {
	ledger        RefreshTokenStore
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithIssuer sets the iss claim and requires it on verification.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithLogger sets the logger used for rejection reasons.
func WithLogger(l *slog.Logger) TokenOption {
	return func(s *TokenService) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// NewTokenService constructs a TokenService. The two secrets must be set and differ.
func NewTokenService(ledger RefreshTokenStore, accessSecret, refreshSecret string, opts ...TokenOption) (*TokenService, error) {
	if ledger == nil {
		return nil, errors.New("auth: refresh token store is required")
	}
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	s := &TokenService{
		ledger:        ledger,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
		logger:        obs.Logger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// HashToken returns the hex SHA-256 digest stored in the ledger for a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssuePair mints a new access and refresh token for the user and records the
// refresh token in the ledger. Existing refresh tokens are left untouched.
func (s *TokenService) IssuePair(ctx context.Context, userID, email string) (TokenPair, error) {
	pair, rec, err := s.mint(userID, email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.ledger.CreateRefreshToken(ctx, rec); err != nil {
		return TokenPair{}, fmt.Errorf("creating refresh token: %w", err)
	}
	return pair, nil
}

// VerifyAccess checks signature, expiry, issuer and the access type tag. It
// never consults storage. Every failure is ErrUnauthorized.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parse(token, s.accessSecret)
	if err != nil {
		obs.TokenVerified(false)
		return Identity{}, s.reject(ctx, tokenTypeAccess, rejectReason(err))
	}
	if claims.Type != tokenTypeAccess {
		obs.TokenVerified(false)
		return Identity{}, s.reject(ctx, tokenTypeAccess, "wrong_type")
	}
	obs.TokenVerified(true)
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Rotate exchanges a live refresh token for a brand-new pair. The presented
// token is revoked in the same transaction that records its replacement, so
// of several concurrent rotations of one token exactly one succeeds.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parse(refreshToken, s.refreshSecret)
	if err != nil {
		obs.RefreshRotated(false)
		return TokenPair{}, s.reject(ctx, tokenTypeRefresh, rejectReason(err))
	}
	if claims.Type != tokenTypeRefresh {
		obs.RefreshRotated(false)
		return TokenPair{}, s.reject(ctx, tokenTypeRefresh, "wrong_type")
	}

	rec, err := s.ledger.RefreshTokenByHash(ctx, HashToken(refreshToken))
	if errors.Is(err, ErrNotFound) {
		obs.RefreshRotated(false)
		return TokenPair{}, s.reject(ctx, tokenTypeRefresh, "not_in_ledger")
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("loading refresh token: %w", err)
	}

	now := s.now().UTC()
	switch {
	case rec.ID != claims.ID || rec.UserID != claims.Subject:
		obs.RefreshRotated(false)
		return TokenPair{}, s.reject(ctx, tokenTypeRefresh, "ledger_mismatch")
	case rec.Revoked():
		obs.RefreshRotated(false)
		obs.RefreshReplayed()
		s.logger.WarnContext(ctx, "revoked refresh token presented",
			slog.String("token_id", rec.ID), slog.String("user_id", rec.UserID),
			slog.String("replaced_by", rec.ReplacedBy))
		return TokenPair{}, ErrUnauthorized
	case !now.Before(rec.ExpiresAt):
		obs.RefreshRotated(false)
		return TokenPair{}, s.reject(ctx, tokenTypeRefresh, "ledger_expired")
	}

	pair, next, err := s.mint(rec.UserID, claims.Email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.ledger.RotateRefreshToken(ctx, rec.ID, now, next); err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			obs.RefreshRotated(false)
			obs.RefreshReplayed()
			return TokenPair{}, s.reject(ctx, tokenTypeRefresh, "lost_rotation_race")
		}
		return TokenPair{}, fmt.Errorf("rotating refresh token: %w", err)
	}
	obs.RefreshRotated(true)
	return pair, nil
}

// Revoke marks the ledger row for refreshToken revoked. Unknown and already
// revoked tokens are not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.ledger.RevokeRefreshToken(ctx, HashToken(refreshToken), s.now().UTC()); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// RevokeAll revokes every live refresh token of userID and returns how many were revoked.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.ledger.RevokeUserRefreshTokens(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoking refresh tokens for user: %w", err)
	}
	return n, nil
}

func (s *TokenService) mint(userID, email string) (TokenPair, *RefreshToken, error) {
	if userID == "" {
		return TokenPair{}, nil, errors.New("auth: user id is required to issue tokens")
	}
	// JWT timestamps have second precision; keep the ledger in step.
	now := s.now().UTC().Truncate(time.Second)
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access, err := s.sign(s.accessSecret, Claims{
		Email: email,
		Type:  tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	if err != nil {
		return TokenPair{}, nil, err
	}

	rowID := ids.New()
	refresh, err := s.sign(s.refreshSecret, Claims{
		Email: email,
		Type:  tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rowID,
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	if err != nil {
		return TokenPair{}, nil, err
	}

	rec := &RefreshToken{
		ID:        rowID,
		UserID:    userID,
		TokenHash: HashToken(refresh),
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, rec, nil
}

func (s *TokenService) sign(secret []byte, claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", claims.Type, err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string, secret []byte) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (s *TokenService) reject(ctx context.Context, kind, reason string) error {
	s.logger.DebugContext(ctx, "token rejected",
		slog.String("token_type", kind), slog.String("reason", reason))
	return ErrUnauthorized
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong_issuer"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not_yet_valid"
	default:
		return "invalid"
	}
}
