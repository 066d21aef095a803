package auth

import "errors"

// Error kinds surfaced to callers. Internal causes are logged, never wrapped
// into the returned error for token failures.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUnauthorized       = errors.New("auth: unauthorized")
	ErrForbidden          = errors.New("auth: forbidden")
	ErrNotFound           = errors.New("auth: not found")
	ErrConflict           = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
)

// ErrTokenRevoked is returned by a RefreshTokenStore when a conditional revoke
// finds the row already revoked. Callers outside the store see ErrUnauthorized.
var ErrTokenRevoked = errors.New("auth: refresh token already revoked")
