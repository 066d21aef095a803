// Package tenancy manages organizations, projects and their memberships on
// top of the contexts produced by the authorization gate.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/ids"
	"taskhub.org/internal/obs"
)

const slugAttempts = 5

// Service implements organization and project management. Callers are
// expected to have passed the matching gate stages; Service applies only the
// role-ordering rules that depend on the target member.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, logger: obs.Logger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrganizationInput describes a new organization. Slug is optional.
type CreateOrganizationInput struct {
	Name string
	Slug string
}

// CreateOrganization creates an organization owned by the caller. A taken
// slug is replaced by one with a random suffix.
func (s *Service) CreateOrganization(ctx context.Context, id auth.Identity, in CreateOrganizationInput) (OrganizationSummary, error) {
	name, err := validName(in.Name)
	if err != nil {
		return OrganizationSummary{}, err
	}
	base, err := requestedSlug(in.Slug, name)
	if err != nil {
		return OrganizationSummary{}, err
	}

	now := s.now().UTC()
	org := auth.Organization{ID: ids.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	owner := auth.OrganizationMember{
		ID:             ids.New(),
		OrganizationID: org.ID,
		UserID:         id.UserID,
		Role:           auth.OrgRoleOwner,
		JoinedAt:       now,
	}

	slug := base
	for attempt := 0; attempt < slugAttempts; attempt++ {
		taken, err := s.store.OrganizationSlugTaken(ctx, slug)
		if err != nil {
			return OrganizationSummary{}, fmt.Errorf("checking organization slug: %w", err)
		}
		if taken {
			slug = withSuffix(base)
			continue
		}
		org.Slug = slug
		err = s.store.CreateOrganization(ctx, &org, &owner)
		if errors.Is(err, auth.ErrConflict) {
			slug = withSuffix(base)
			continue
		}
		if err != nil {
			return OrganizationSummary{}, fmt.Errorf("creating organization: %w", err)
		}
		s.logger.InfoContext(ctx, "organization created",
			slog.String("organization_id", org.ID), slog.String("owner_id", id.UserID))
		return OrganizationSummary{Organization: org, Role: auth.OrgRoleOwner}, nil
	}
	return OrganizationSummary{}, fmt.Errorf("%w: could not allocate a unique slug", auth.ErrConflict)
}

// ListOrganizations returns the caller's live organizations with their role.
func (s *Service) ListOrganizations(ctx context.Context, id auth.Identity) ([]OrganizationSummary, error) {
	orgs, err := s.store.OrganizationsForUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

// RenameOrganization changes the organization's display name.
func (s *Service) RenameOrganization(ctx context.Context, oc auth.OrgContext, name string) (auth.Organization, error) {
	name, err := validName(name)
	if err != nil {
		return auth.Organization{}, err
	}
	now := s.now().UTC()
	if err := s.store.RenameOrganization(ctx, oc.Organization.ID, name, now); err != nil {
		return auth.Organization{}, fmt.Errorf("renaming organization: %w", err)
	}
	org := oc.Organization
	org.Name = name
	org.UpdatedAt = now
	return org, nil
}

// DeleteOrganization soft-deletes the organization.
func (s *Service) DeleteOrganization(ctx context.Context, oc auth.OrgContext) error {
	if err := s.store.SoftDeleteOrganization(ctx, oc.Organization.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("deleting organization: %w", err)
	}
	s.logger.InfoContext(ctx, "organization deleted",
		slog.String("organization_id", oc.Organization.ID), slog.String("actor_id", oc.Identity.UserID))
	return nil
}

// ListMembers returns every member of the organization.
func (s *Service) ListMembers(ctx context.Context, oc auth.OrgContext) ([]MemberDetail, error) {
	members, err := s.store.OrganizationMembers(ctx, oc.Organization.ID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

// UpdateMemberRole changes another member's organization role.
func (s *Service) UpdateMemberRole(ctx context.Context, oc auth.OrgContext, targetUserID string, role auth.OrgRole) error {
	target, err := s.store.OrganizationMember(ctx, oc.Organization.ID, targetUserID)
	if err != nil {
		return memberLookupError(err)
	}
	if err := auth.CheckRoleChange(oc.Role(), target.Role, role); err != nil {
		return err
	}
	if err := s.store.UpdateOrganizationMemberRole(ctx, oc.Organization.ID, targetUserID, role); err != nil {
		return fmt.Errorf("updating member role: %w", err)
	}
	s.logger.InfoContext(ctx, "organization member role changed",
		slog.String("organization_id", oc.Organization.ID),
		slog.String("user_id", targetUserID),
		slog.String("from", string(target.Role)),
		slog.String("to", string(role)))
	return nil
}

// RemoveMember removes a member from the organization, or the caller themself.
func (s *Service) RemoveMember(ctx context.Context, oc auth.OrgContext, targetUserID string) error {
	target, err := s.store.OrganizationMember(ctx, oc.Organization.ID, targetUserID)
	if err != nil {
		return memberLookupError(err)
	}
	if err := auth.CheckMemberRemoval(oc.Identity.UserID, oc.Role(), targetUserID, target.Role); err != nil {
		return err
	}
	if err := s.store.DeleteOrganizationMember(ctx, oc.Organization.ID, targetUserID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return nil
}

// CreateProjectInput describes a new project. Slug and Description are optional.
type CreateProjectInput struct {
	Name        string
	Slug        string
	Description string
}

// CreateProject creates a project in the caller's organization with the
// caller as its persisted MANAGER.
func (s *Service) CreateProject(ctx context.Context, oc auth.OrgContext, in CreateProjectInput) (auth.Project, error) {
	name, err := validName(in.Name)
	if err != nil {
		return auth.Project{}, err
	}
	base, err := requestedSlug(in.Slug, name)
	if err != nil {
		return auth.Project{}, err
	}
	desc, err := validDescription(in.Description)
	if err != nil {
		return auth.Project{}, err
	}

	now := s.now().UTC()
	project := auth.Project{
		ID:             ids.New(),
		OrganizationID: oc.Organization.ID,
		Name:           name,
		Description:    desc,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	manager := auth.ProjectMember{
		ID:        ids.New(),
		ProjectID: project.ID,
		UserID:    oc.Identity.UserID,
		Role:      auth.ProjectRoleManager,
		JoinedAt:  now,
	}

	slug := base
	for attempt := 0; attempt < slugAttempts; attempt++ {
		taken, err := s.store.ProjectSlugTaken(ctx, oc.Organization.ID, slug)
		if err != nil {
			return auth.Project{}, fmt.Errorf("checking project slug: %w", err)
		}
		if taken {
			slug = withSuffix(base)
			continue
		}
		project.Slug = slug
		err = s.store.CreateProject(ctx, &project, &manager)
		if errors.Is(err, auth.ErrConflict) {
			slug = withSuffix(base)
			continue
		}
		if err != nil {
			return auth.Project{}, fmt.Errorf("creating project: %w", err)
		}
		return project, nil
	}
	return auth.Project{}, fmt.Errorf("%w: could not allocate a unique slug", auth.ErrConflict)
}

// ListProjects returns every project for elevated roles, otherwise only the
// projects the caller is a member of.
func (s *Service) ListProjects(ctx context.Context, oc auth.OrgContext) ([]ProjectSummary, error) {
	projects, err := s.store.ProjectsForOrganization(ctx, oc.Organization.ID, oc.Identity.UserID, oc.Role().Elevated())
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectInput carries the project fields to change. Nil fields keep
// their current value.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// UpdateProject changes the project's name and description. The slug never
// changes, so existing links keep resolving.
func (s *Service) UpdateProject(ctx context.Context, pc auth.ProjectContext, in UpdateProjectInput) (auth.Project, error) {
	if in.Name == nil && in.Description == nil {
		return auth.Project{}, fmt.Errorf("%w: nothing to update", auth.ErrInvalidInput)
	}
	project := pc.Project
	if in.Name != nil {
		name, err := validName(*in.Name)
		if err != nil {
			return auth.Project{}, err
		}
		project.Name = name
	}
	if in.Description != nil {
		desc, err := validDescription(*in.Description)
		if err != nil {
			return auth.Project{}, err
		}
		project.Description = desc
	}
	project.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, project.ID, project.Name, project.Description, project.UpdatedAt); err != nil {
		return auth.Project{}, fmt.Errorf("updating project: %w", err)
	}
	return project, nil
}

// DeleteProject soft-deletes the project.
func (s *Service) DeleteProject(ctx context.Context, pc auth.ProjectContext) error {
	if err := s.store.SoftDeleteProject(ctx, pc.Project.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

// AddProjectMember grants userID a role on the project. The user must already
// belong to the project's organization.
func (s *Service) AddProjectMember(ctx context.Context, pc auth.ProjectContext, userID string, role auth.ProjectRole) (auth.ProjectMember, error) {
	if !ids.Valid(userID) {
		return auth.ProjectMember{}, fmt.Errorf("%w: invalid user id", auth.ErrInvalidInput)
	}
	if role == "" {
		role = auth.ProjectRoleMember
	}
	role, err := auth.ParseProjectRole(string(role))
	if err != nil {
		return auth.ProjectMember{}, err
	}

	_, err = s.store.OrganizationMember(ctx, pc.Project.OrganizationID, userID)
	if errors.Is(err, auth.ErrNotFound) {
		return auth.ProjectMember{}, fmt.Errorf("%w: user is not a member of the organization", auth.ErrConflict)
	}
	if err != nil {
		return auth.ProjectMember{}, fmt.Errorf("loading organization member: %w", err)
	}

	member := auth.ProjectMember{
		ID:        ids.New(),
		ProjectID: pc.Project.ID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  s.now().UTC(),
	}
	if err := s.store.CreateProjectMember(ctx, &member); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return auth.ProjectMember{}, fmt.Errorf("%w: user is already a member of this project", auth.ErrConflict)
		}
		return auth.ProjectMember{}, fmt.Errorf("adding project member: %w", err)
	}
	return member, nil
}

// UpdateProjectMemberRole changes the role of a stored project membership.
// Members who only hold an inherited grant have no row and are ErrNotFound.
func (s *Service) UpdateProjectMemberRole(ctx context.Context, pc auth.ProjectContext, targetUserID string, role auth.ProjectRole) (auth.ProjectMember, error) {
	role, err := auth.ParseProjectRole(string(role))
	if err != nil {
		return auth.ProjectMember{}, err
	}
	target, err := s.store.ProjectMember(ctx, pc.Project.ID, targetUserID)
	if err != nil {
		return auth.ProjectMember{}, projectMemberLookupError(err)
	}
	if err := s.store.UpdateProjectMemberRole(ctx, pc.Project.ID, targetUserID, role); err != nil {
		return auth.ProjectMember{}, fmt.Errorf("updating project member role: %w", err)
	}
	s.logger.InfoContext(ctx, "project member role changed",
		slog.String("project_id", pc.Project.ID),
		slog.String("user_id", targetUserID),
		slog.String("from", string(target.Role)),
		slog.String("to", string(role)))
	target.Role = role
	return target, nil
}

// RemoveProjectMember deletes a stored project membership. Organization
// membership is untouched.
func (s *Service) RemoveProjectMember(ctx context.Context, pc auth.ProjectContext, targetUserID string) error {
	if _, err := s.store.ProjectMember(ctx, pc.Project.ID, targetUserID); err != nil {
		return projectMemberLookupError(err)
	}
	if err := s.store.DeleteProjectMember(ctx, pc.Project.ID, targetUserID); err != nil {
		return fmt.Errorf("removing project member: %w", err)
	}
	return nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 100 {
		return "", fmt.Errorf("%w: name must be between 2 and 100 characters", auth.ErrInvalidInput)
	}
	return name, nil
}

func validDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if len(desc) > 500 {
		return "", fmt.Errorf("%w: description must be at most 500 characters", auth.ErrInvalidInput)
	}
	return desc, nil
}

func requestedSlug(slug, name string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
		if len(slug) < minSlugLength {
			slug = withSuffix(slug)
		}
		return slug, nil
	}
	if !ValidSlug(slug) {
		return "", fmt.Errorf("%w: slug must be 2-50 lowercase letters, numbers or hyphens", auth.ErrInvalidInput)
	}
	return slug, nil
}

func memberLookupError(err error) error {
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("%w: member not found", auth.ErrNotFound)
	}
	return fmt.Errorf("loading organization member: %w", err)
}

func projectMemberLookupError(err error) error {
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("%w: project member not found", auth.ErrNotFound)
	}
	return fmt.Errorf("loading project member: %w", err)
}
