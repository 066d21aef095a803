package tenancy

import (
	"context"
	"time"

	"taskhub.org/internal/auth"
)

// OrganizationSummary is an organization as seen by one of its members.
type OrganizationSummary struct {
	auth.Organization
	Role auth.OrgRole `json:"role"`
}

// MemberDetail is an organization membership joined with the user's profile.
type MemberDetail struct {
	auth.OrganizationMember
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ProjectSummary is a project with the caller's persisted role, if any.
type ProjectSummary struct {
	auth.Project
	Role auth.ProjectRole `json:"role,omitempty"`
}

// Store persists organizations, projects and memberships. Reads never return
// soft-deleted organizations or projects.
type Store interface {
	auth.MembershipStore

	OrganizationSlugTaken(ctx context.Context, slug string) (bool, error)
	// CreateOrganization writes the organization and its owner membership atomically.
	CreateOrganization(ctx context.Context, org *auth.Organization, owner *auth.OrganizationMember) error
	OrganizationsForUser(ctx context.Context, userID string) ([]OrganizationSummary, error)
	RenameOrganization(ctx context.Context, orgID, name string, at time.Time) error
	SoftDeleteOrganization(ctx context.Context, orgID string, at time.Time) error

	OrganizationMembers(ctx context.Context, orgID string) ([]MemberDetail, error)
	UpdateOrganizationMemberRole(ctx context.Context, orgID, userID string, role auth.OrgRole) error
	// DeleteOrganizationMember also drops the user's memberships in the organization's projects.
	DeleteOrganizationMember(ctx context.Context, orgID, userID string) error

	ProjectSlugTaken(ctx context.Context, orgID, slug string) (bool, error)
	// CreateProject writes the project and its creator's MANAGER membership atomically.
	CreateProject(ctx context.Context, p *auth.Project, manager *auth.ProjectMember) error
	// ProjectsForOrganization lists every live project when all is set, otherwise
	// only those where userID holds a membership row.
	ProjectsForOrganization(ctx context.Context, orgID, userID string, all bool) ([]ProjectSummary, error)
	UpdateProject(ctx context.Context, projectID, name, description string, at time.Time) error
	SoftDeleteProject(ctx context.Context, projectID string, at time.Time) error
	CreateProjectMember(ctx context.Context, m *auth.ProjectMember) error
	UpdateProjectMemberRole(ctx context.Context, projectID, userID string, role auth.ProjectRole) error
	DeleteProjectMember(ctx context.Context, projectID, userID string) error
}
