package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskhub.org/internal/obs"
)

// ProjectMembership is the caller's effective membership in a project. It is
// either PersistedMembership, backed by a stored row, or SynthesizedMembership,
// granted by an elevated organization role and never stored.
type ProjectMembership interface {
	Role() ProjectRole
	UserID() string
	ProjectID() string
	projectMembership()
}

// PersistedMembership wraps a stored project membership row.
type PersistedMembership struct {
	Member ProjectMember
}

func (m PersistedMembership) Role() ProjectRole { return m.Member.Role }
func (m PersistedMembership) UserID() string { return m.Member.UserID }
func (m PersistedMembership) ProjectID() string { return m.Member.ProjectID }
func (PersistedMembership) projectMembership() {}

// SynthesizedMembership is the implicit MANAGER grant held by organization
// owners and admins on every project of their organization.
type SynthesizedMembership struct {
	User       string
	Project    string
	SourceRole OrgRole
}

func (m SynthesizedMembership) Role() ProjectRole { return ProjectRoleManager }
func (m SynthesizedMembership) UserID() string { return m.User }
func (m SynthesizedMembership) ProjectID() string { return m.Project }
func (SynthesizedMembership) projectMembership() {}

// Resolver loads a caller's organization and project memberships.
// It only reads from the store.
type Resolver struct {
	store  MembershipStore
	logger *slog.Logger
}

// NewResolver constructs a Resolver. A nil logger uses the shared one.
func NewResolver(store MembershipStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: obs.ResolveLogger(logger)}
}

// ResolveOrgMembership finds the organization named by slug or id and the
// user's membership in it. A missing or deleted organization is ErrNotFound;
// an existing one without a membership row is ErrForbidden.
func (r *Resolver) ResolveOrgMembership(ctx context.Context, userID, orgIdent string) (Organization, OrganizationMember, error) {
	orgIdent = strings.TrimSpace(orgIdent)
	if orgIdent == "" {
		return Organization{}, OrganizationMember{}, ErrNotFound
	}
	org, err := r.store.OrganizationByIdentifier(ctx, orgIdent)
	if err != nil {
		return Organization{}, OrganizationMember{}, lookupError("organization", err)
	}
	member, err := r.store.OrganizationMember(ctx, org.ID, userID)
	if errors.Is(err, ErrNotFound) {
		r.logger.DebugContext(ctx, "organization membership missing",
			slog.String("organization_id", org.ID), slog.String("user_id", userID))
		return Organization{}, OrganizationMember{}, ErrForbidden
	}
	if err != nil {
		return Organization{}, OrganizationMember{}, fmt.Errorf("loading organization member: %w", err)
	}
	return org, member, nil
}

// ResolveProjectMembership finds the project named by slug or id inside the
// organization of orgMember and the user's effective membership in it.
// Elevated organization roles receive a SynthesizedMembership whether or not
// a row exists; everyone else needs a row or gets ErrForbidden.
func (r *Resolver) ResolveProjectMembership(ctx context.Context, userID string, orgMember OrganizationMember, projectIdent string) (Project, ProjectMembership, error) {
	projectIdent = strings.TrimSpace(projectIdent)
	if projectIdent == "" {
		return Project{}, nil, ErrNotFound
	}
	project, err := r.store.ProjectByIdentifier(ctx, orgMember.OrganizationID, projectIdent)
	if err != nil {
		return Project{}, nil, lookupError("project", err)
	}

	if orgMember.Role.Elevated() {
		return project, SynthesizedMembership{
			User:       userID,
			Project:    project.ID,
			SourceRole: orgMember.Role,
		}, nil
	}

	member, err := r.store.ProjectMember(ctx, project.ID, userID)
	if errors.Is(err, ErrNotFound) {
		r.logger.DebugContext(ctx, "project membership missing",
			slog.String("project_id", project.ID), slog.String("user_id", userID))
		return Project{}, nil, ErrForbidden
	}
	if err != nil {
		return Project{}, nil, fmt.Errorf("loading project member: %w", err)
	}
	return project, PersistedMembership{Member: member}, nil
}

func lookupError(what string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("loading %s: %w", what, err)
}
