package auth

import (
	"context"
	"time"
)

// UserStore loads and creates users. Lookups only see non-deleted users and
// return ErrNotFound otherwise; CreateUser returns ErrConflict for a taken email.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}

// RefreshTokenStore is the refresh token ledger. Rows are never deleted.
type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, tok *RefreshToken) error
	RefreshTokenByHash(ctx context.Context, hash string) (RefreshToken, error)
	// RotateRefreshToken revokes oldID only if it is still unrevoked and inserts
	// next in the same transaction. A lost race returns ErrTokenRevoked.
	RotateRefreshToken(ctx context.Context, oldID string, revokedAt time.Time, next *RefreshToken) error
	// RevokeRefreshToken is a no-op for unknown or already revoked hashes.
	RevokeRefreshToken(ctx context.Context, hash string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
}

// MembershipStore exposes the point lookups the membership resolver needs.
// Organizations and projects are matched by slug or id and soft-deleted rows
// are invisible.
type MembershipStore interface {
	OrganizationByIdentifier(ctx context.Context, ident string) (Organization, error)
	OrganizationMember(ctx context.Context, orgID, userID string) (OrganizationMember, error)
	ProjectByIdentifier(ctx context.Context, orgID, ident string) (Project, error)
	ProjectMember(ctx context.Context, projectID, userID string) (ProjectMember, error)
}
