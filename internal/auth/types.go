package auth

import "time"

// User is a local password identity.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// Organization is the tenant boundary.
type Organization struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// OrganizationMember joins a user to an organization with a role.
type OrganizationMember struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           OrgRole   `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Project belongs to exactly one organization.
type Project struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`
}

// ProjectMember is a persisted project membership row.
type ProjectMember struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"project_id"`
	UserID    string      `json:"user_id"`
	Role      ProjectRole `json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`
}

// RefreshToken is a ledger row. Only the hash of the token is stored.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string
}

// Revoked reports whether the row reached its terminal state.
func (t RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// TokenPair represents access and refresh tokens along with their expirations.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Identity is the authenticated caller extracted from an access token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// OrgContext is the result of a successful organization membership check.
type OrgContext struct {
	Identity     Identity
	Organization Organization
	Membership   OrganizationMember
}

// Role returns the caller's organization role.
func (c OrgContext) Role() OrgRole { return c.Membership.Role }

// ProjectContext is the result of a successful project membership check.
type ProjectContext struct {
	Org        OrgContext
	Project    Project
	Membership ProjectMembership
}

// Role returns the caller's effective project role.
func (c ProjectContext) Role() ProjectRole { return c.Membership.Role() }
