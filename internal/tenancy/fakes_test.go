package tenancy

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskhub.org/internal/auth"
)

type memStore struct {
	mu       sync.Mutex
	users    map[string]auth.User
	orgs     map[string]auth.Organization
	orgMems  map[string]auth.OrganizationMember
	projects map[string]auth.Project
	projMems map[string]auth.ProjectMember
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]auth.User{},
		orgs:     map[string]auth.Organization{},
		orgMems:  map[string]auth.OrganizationMember{},
		projects: map[string]auth.Project{},
		projMems: map[string]auth.ProjectMember{},
	}
}

func (m *memStore) OrganizationByIdentifier(_ context.Context, ident string) (auth.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if (o.Slug == ident || o.ID == ident) && o.DeletedAt == nil {
			return o, nil
		}
	}
	return auth.Organization{}, auth.ErrNotFound
}

func (m *memStore) OrganizationMember(_ context.Context, orgID, userID string) (auth.OrganizationMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.orgMems[orgID+"/"+userID]
	if !ok {
		return auth.OrganizationMember{}, auth.ErrNotFound
	}
	return mem, nil
}

func (m *memStore) ProjectByIdentifier(_ context.Context, orgID, ident string) (auth.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OrganizationID == orgID && (p.Slug == ident || p.ID == ident) && p.DeletedAt == nil {
			return p, nil
		}
	}
	return auth.Project{}, auth.ErrNotFound
}

func (m *memStore) ProjectMember(_ context.Context, projectID, userID string) (auth.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.projMems[projectID+"/"+userID]
	if !ok {
		return auth.ProjectMember{}, auth.ErrNotFound
	}
	return mem, nil
}

func (m *memStore) OrganizationSlugTaken(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateOrganization(_ context.Context, org *auth.Organization, owner *auth.OrganizationMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Slug == org.Slug {
			return auth.ErrConflict
		}
	}
	m.orgs[org.ID] = *org
	m.orgMems[org.ID+"/"+owner.UserID] = *owner
	return nil
}

func (m *memStore) OrganizationsForUser(_ context.Context, userID string) ([]OrganizationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OrganizationSummary
	for _, mem := range m.orgMems {
		o, ok := m.orgs[mem.OrganizationID]
		if mem.UserID != userID || !ok || o.DeletedAt != nil {
			continue
		}
		out = append(out, OrganizationSummary{Organization: o, Role: mem.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *memStore) RenameOrganization(_ context.Context, orgID, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[orgID]
	if !ok || o.DeletedAt != nil {
		return auth.ErrNotFound
	}
	o.Name = name
	o.UpdatedAt = at
	m.orgs[orgID] = o
	return nil
}

func (m *memStore) SoftDeleteOrganization(_ context.Context, orgID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[orgID]
	if !ok || o.DeletedAt != nil {
		return auth.ErrNotFound
	}
	o.DeletedAt = &at
	m.orgs[orgID] = o
	return nil
}

func (m *memStore) OrganizationMembers(_ context.Context, orgID string) ([]MemberDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MemberDetail
	for _, mem := range m.orgMems {
		if mem.OrganizationID != orgID {
			continue
		}
		u := m.users[mem.UserID]
		out = append(out, MemberDetail{OrganizationMember: mem, Email: u.Email, Name: u.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) UpdateOrganizationMemberRole(_ context.Context, orgID, userID string, role auth.OrgRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.orgMems[orgID+"/"+userID]
	if !ok {
		return auth.ErrNotFound
	}
	mem.Role = role
	m.orgMems[orgID+"/"+userID] = mem
	return nil
}

func (m *memStore) DeleteOrganizationMember(_ context.Context, orgID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgMems[orgID+"/"+userID]; !ok {
		return auth.ErrNotFound
	}
	delete(m.orgMems, orgID+"/"+userID)
	for key, pm := range m.projMems {
		if pm.UserID == userID && m.projects[pm.ProjectID].OrganizationID == orgID {
			delete(m.projMems, key)
		}
	}
	return nil
}

func (m *memStore) ProjectSlugTaken(_ context.Context, orgID, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OrganizationID == orgID && p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateProject(_ context.Context, p *auth.Project, manager *auth.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects {
		if existing.OrganizationID == p.OrganizationID && existing.Slug == p.Slug {
			return auth.ErrConflict
		}
	}
	m.projects[p.ID] = *p
	m.projMems[p.ID+"/"+manager.UserID] = *manager
	return nil
}

func (m *memStore) ProjectsForOrganization(_ context.Context, orgID, userID string, all bool) ([]ProjectSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ProjectSummary
	for _, p := range m.projects {
		if p.OrganizationID != orgID || p.DeletedAt != nil {
			continue
		}
		mem, member := m.projMems[p.ID+"/"+userID]
		if !all && !member {
			continue
		}
		out = append(out, ProjectSummary{Project: p, Role: mem.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *memStore) SoftDeleteProject(_ context.Context, projectID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.DeletedAt != nil {
		return auth.ErrNotFound
	}
	p.DeletedAt = &at
	m.projects[projectID] = p
	return nil
}

func (m *memStore) CreateProjectMember(_ context.Context, pm *auth.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pm.ProjectID + "/" + pm.UserID
	if _, ok := m.projMems[key]; ok {
		return auth.ErrConflict
	}
	m.projMems[key] = *pm
	return nil
}

func (m *memStore) UpdateProject(_ context.Context, projectID, name, description string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.DeletedAt != nil {
		return auth.ErrNotFound
	}
	p.Name = name
	p.Description = description
	p.UpdatedAt = at
	m.projects[projectID] = p
	return nil
}

func (m *memStore) UpdateProjectMemberRole(_ context.Context, projectID, userID string, role auth.ProjectRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := projectID + "/" + userID
	pm, ok := m.projMems[key]
	if !ok {
		return auth.ErrNotFound
	}
	pm.Role = role
	m.projMems[key] = pm
	return nil
}

func (m *memStore) DeleteProjectMember(_ context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := projectID + "/" + userID
	if _, ok := m.projMems[key]; !ok {
		return auth.ErrNotFound
	}
	delete(m.projMems, key)
	return nil
}

func (m *memStore) addUser(u auth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) addOrgMember(orgID, userID string, role auth.OrgRole) auth.OrganizationMember {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem := auth.OrganizationMember{ID: "om-" + userID, OrganizationID: orgID, UserID: userID, Role: role}
	m.orgMems[orgID+"/"+userID] = mem
	return mem
}
