package sqlstore

import (
	"context"
	"database/sql"

	"taskhub.org/internal/auth"
)

const userColumns = `u.id, u.email, u.name, u.password_hash, u.created_at, u.updated_at, u.deleted_at`

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, email, name, password_hash, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return mapError(err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users u
		where u.email = $1 and `+live("u"), email))
}

func (s *Store) UserByID(ctx context.Context, id string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users u
		where u.id = $1 and `+live("u"), id))
}

func scanUser(row *sql.Row) (auth.User, error) {
	var (
		u       auth.User
		deleted sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &deleted); err != nil {
		return auth.User{}, mapError(err)
	}
	u.DeletedAt = nullTime(deleted)
	return u, nil
}
