package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/tenancy"
)

const projectColumns = `p.id, p.organization_id, p.name, p.slug, p.description, p.created_at, p.updated_at`

// ProjectByIdentifier matches a live project in orgID by slug, falling back to id.
func (s *Store) ProjectByIdentifier(ctx context.Context, orgID, ident string) (auth.Project, error) {
	var p auth.Project
	err := s.db.QueryRowContext(ctx, `
		select `+projectColumns+`
		from projects p
		where p.organization_id = $1 and (p.slug = $2 or p.id = $2) and `+live("p")+`
		order by case when p.slug = $2 then 0 else 1 end
		limit 1
	`, orgID, ident).Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return auth.Project{}, mapError(err)
	}
	return p, nil
}

func (s *Store) ProjectMember(ctx context.Context, projectID, userID string) (auth.ProjectMember, error) {
	var m auth.ProjectMember
	err := s.db.QueryRowContext(ctx, `
		select id, project_id, user_id, role, joined_at
		from project_members
		where project_id = $1 and user_id = $2
	`, projectID, userID).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return auth.ProjectMember{}, mapError(err)
	}
	return m, nil
}

// ProjectSlugTaken also counts soft-deleted projects.
func (s *Store) ProjectSlugTaken(ctx context.Context, orgID, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from projects where organization_id = $1 and slug = $2
	`, orgID, slug).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreateProject(ctx context.Context, p *auth.Project, manager *auth.ProjectMember) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			insert into projects (id, organization_id, name, slug, description, created_at, updated_at)
			values ($1, $2, $3, $4, $5, $6, $7)
		`, p.ID, p.OrganizationID, p.Name, p.Slug, p.Description, p.CreatedAt, p.UpdatedAt); err != nil {
			return err
		}
		return insertProjectMember(ctx, tx, manager)
	})
	return mapError(err)
}

func (s *Store) ProjectsForOrganization(ctx context.Context, orgID, userID string, all bool) ([]tenancy.ProjectSummary, error) {
	join := "join"
	if all {
		join = "left join"
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+projectColumns+`, coalesce(pm.role, '')
		from projects p
		`+join+` project_members pm on pm.project_id = p.id and pm.user_id = $1
		where p.organization_id = $2 and `+live("p")+`
		order by p.name, p.id
	`, userID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenancy.ProjectSummary
	for rows.Next() {
		var p tenancy.ProjectSummary
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.Role); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, projectID, name, description string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update projects set name = $1, description = $2, updated_at = $3
		where id = $4 and `+live(""), name, description, at, projectID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) SoftDeleteProject(ctx context.Context, projectID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update projects set deleted_at = $1, updated_at = $1
		where id = $2 and `+live(""), at, projectID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) CreateProjectMember(ctx context.Context, m *auth.ProjectMember) error {
	return mapError(insertProjectMember(ctx, s.db, m))
}

func (s *Store) UpdateProjectMemberRole(ctx context.Context, projectID, userID string, role auth.ProjectRole) error {
	res, err := s.db.ExecContext(ctx, `
		update project_members set role = $1
		where project_id = $2 and user_id = $3
	`, string(role), projectID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) DeleteProjectMember(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from project_members where project_id = $1 and user_id = $2
	`, projectID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func insertProjectMember(ctx context.Context, db execer, m *auth.ProjectMember) error {
	_, err := db.ExecContext(ctx, `
		insert into project_members (id, project_id, user_id, role, joined_at)
		values ($1, $2, $3, $4, $5)
	`, m.ID, m.ProjectID, m.UserID, string(m.Role), m.JoinedAt)
	return err
}
