package auth

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory implementation of every store interface in this
// package. Soft-deleted rows are invisible to lookups.
type memStore struct {
	mu       sync.Mutex
	users    map[string]User
	tokens   map[string]RefreshToken
	orgs     map[string]Organization
	orgMems  map[string]OrganizationMember
	projects map[string]Project
	projMems map[string]ProjectMember
}

var (
	_ UserStore         = (*memStore)(nil)
	_ RefreshTokenStore = (*memStore)(nil)
	_ MembershipStore   = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]User{},
		tokens:   map[string]RefreshToken{},
		orgs:     map[string]Organization{},
		orgMems:  map[string]OrganizationMember{},
		projects: map[string]Project{},
		projMems: map[string]ProjectMember{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateRefreshToken(_ context.Context, tok *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tok.ID] = *tok
	return nil
}

func (m *memStore) RefreshTokenByHash(_ context.Context, hash string) (RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return RefreshToken{}, ErrNotFound
}

func (m *memStore) RotateRefreshToken(_ context.Context, oldID string, revokedAt time.Time, next *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.tokens[oldID]
	if !ok || old.RevokedAt != nil {
		return ErrTokenRevoked
	}
	at := revokedAt
	old.RevokedAt = &at
	old.ReplacedBy = next.ID
	m.tokens[oldID] = old
	m.tokens[next.ID] = *next
	return nil
}

func (m *memStore) RevokeRefreshToken(_ context.Context, hash string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.TokenHash == hash && t.RevokedAt == nil {
			at := revokedAt
			t.RevokedAt = &at
			m.tokens[id] = t
		}
	}
	return nil
}

func (m *memStore) RevokeUserRefreshTokens(_ context.Context, userID string, revokedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			at := revokedAt
			t.RevokedAt = &at
			m.tokens[id] = t
			n++
		}
	}
	return n, nil
}

func (m *memStore) OrganizationByIdentifier(_ context.Context, ident string) (Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if (o.Slug == ident || o.ID == ident) && o.DeletedAt == nil {
			return o, nil
		}
	}
	return Organization{}, ErrNotFound
}

func (m *memStore) OrganizationMember(_ context.Context, orgID, userID string) (OrganizationMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.orgMems[orgID+"/"+userID]
	if !ok {
		return OrganizationMember{}, ErrNotFound
	}
	return mem, nil
}

func (m *memStore) ProjectByIdentifier(_ context.Context, orgID, ident string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OrganizationID == orgID && (p.Slug == ident || p.ID == ident) && p.DeletedAt == nil {
			return p, nil
		}
	}
	return Project{}, ErrNotFound
}

func (m *memStore) ProjectMember(_ context.Context, projectID, userID string) (ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.projMems[projectID+"/"+userID]
	if !ok {
		return ProjectMember{}, ErrNotFound
	}
	return mem, nil
}

func (m *memStore) addOrg(id, slug string) Organization {
	m.mu.Lock()
	defer m.mu.Unlock()
	org := Organization{ID: id, Name: slug, Slug: slug}
	m.orgs[id] = org
	return org
}

func (m *memStore) addOrgMember(orgID, userID string, role OrgRole) OrganizationMember {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem := OrganizationMember{ID: "om-" + userID, OrganizationID: orgID, UserID: userID, Role: role}
	m.orgMems[orgID+"/"+userID] = mem
	return mem
}

func (m *memStore) addProject(id, orgID, slug string) Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Project{ID: id, OrganizationID: orgID, Name: slug, Slug: slug}
	m.projects[id] = p
	return p
}

func (m *memStore) addProjectMember(projectID, userID string, role ProjectRole) ProjectMember {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem := ProjectMember{ID: "pm-" + userID, ProjectID: projectID, UserID: userID, Role: role}
	m.projMems[projectID+"/"+userID] = mem
	return mem
}

func (m *memStore) softDeleteOrg(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orgs[id]
	now := time.Now()
	o.DeletedAt = &now
	m.orgs[id] = o
}

func (m *memStore) softDeleteProject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.projects[id]
	now := time.Now()
	p.DeletedAt = &now
	m.projects[id] = p
}

func (m *memStore) token(id string) RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[id]
}

const (
	testAccessSecret  = "access-secret-for-tests-0123456789abcdef"
	testRefreshSecret = "refresh-secret-for-tests-0123456789abcdef"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
