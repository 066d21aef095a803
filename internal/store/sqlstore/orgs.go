package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/tenancy"
)

// OrganizationByIdentifier matches a live organization by slug, falling back to id.
func (s *Store) OrganizationByIdentifier(ctx context.Context, ident string) (auth.Organization, error) {
	var (
		org     auth.Organization
		deleted sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select o.id, o.name, o.slug, o.created_at, o.updated_at, o.deleted_at
		from organizations o
		where (o.slug = $1 or o.id = $1) and `+live("o")+`
		order by case when o.slug = $1 then 0 else 1 end
		limit 1
	`, ident).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt, &deleted)
	if err != nil {
		return auth.Organization{}, mapError(err)
	}
	org.DeletedAt = nullTime(deleted)
	return org, nil
}

func (s *Store) OrganizationMember(ctx context.Context, orgID, userID string) (auth.OrganizationMember, error) {
	var m auth.OrganizationMember
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, user_id, role, joined_at
		from organization_members
		where organization_id = $1 and user_id = $2
	`, orgID, userID).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return auth.OrganizationMember{}, mapError(err)
	}
	return m, nil
}

// OrganizationSlugTaken also counts soft-deleted organizations, whose slugs stay reserved.
func (s *Store) OrganizationSlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from organizations where slug = $1`, slug).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreateOrganization(ctx context.Context, org *auth.Organization, owner *auth.OrganizationMember) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			insert into organizations (id, name, slug, created_at, updated_at)
			values ($1, $2, $3, $4, $5)
		`, org.ID, org.Name, org.Slug, org.CreatedAt, org.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			insert into organization_members (id, organization_id, user_id, role, joined_at)
			values ($1, $2, $3, $4, $5)
		`, owner.ID, owner.OrganizationID, owner.UserID, string(owner.Role), owner.JoinedAt)
		return err
	})
	return mapError(err)
}

func (s *Store) OrganizationsForUser(ctx context.Context, userID string) ([]tenancy.OrganizationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		select o.id, o.name, o.slug, o.created_at, o.updated_at, m.role
		from organization_members m
		join organizations o on o.id = m.organization_id
		where m.user_id = $1 and `+live("o")+`
		order by o.name, o.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenancy.OrganizationSummary
	for rows.Next() {
		var o tenancy.OrganizationSummary
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt, &o.Role); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) RenameOrganization(ctx context.Context, orgID, name string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update organizations set name = $1, updated_at = $2
		where id = $3 and `+live(""), name, at, orgID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) SoftDeleteOrganization(ctx context.Context, orgID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update organizations set deleted_at = $1, updated_at = $1
		where id = $2 and `+live(""), at, orgID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) OrganizationMembers(ctx context.Context, orgID string) ([]tenancy.MemberDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		select m.id, m.organization_id, m.user_id, m.role, m.joined_at, u.email, u.name
		from organization_members m
		join users u on u.id = m.user_id
		where m.organization_id = $1
		order by m.joined_at, m.user_id
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenancy.MemberDetail
	for rows.Next() {
		var m tenancy.MemberDetail
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt, &m.Email, &m.Name); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) UpdateOrganizationMemberRole(ctx context.Context, orgID, userID string, role auth.OrgRole) error {
	res, err := s.db.ExecContext(ctx, `
		update organization_members set role = $1
		where organization_id = $2 and user_id = $3
	`, string(role), orgID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) DeleteOrganizationMember(ctx context.Context, orgID, userID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			delete from project_members
			where user_id = $1 and project_id in (select id from projects where organization_id = $2)
		`, userID, orgID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			delete from organization_members where organization_id = $1 and user_id = $2
		`, orgID, userID)
		if err != nil {
			return err
		}
		return expectOne(res)
	})
}
