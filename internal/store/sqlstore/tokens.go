package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"taskhub.org/internal/auth"
)

func (s *Store) CreateRefreshToken(ctx context.Context, tok *auth.RefreshToken) error {
	return mapError(insertRefreshToken(ctx, s.db, tok))
}

func (s *Store) RefreshTokenByHash(ctx context.Context, hash string) (auth.RefreshToken, error) {
	var (
		tok        auth.RefreshToken
		revoked    sql.NullTime
		replacedBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by
		from refresh_tokens
		where token_hash = $1
	`, hash).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &revoked, &replacedBy)
	if err != nil {
		return auth.RefreshToken{}, mapError(err)
	}
	tok.RevokedAt = nullTime(revoked)
	tok.ReplacedBy = replacedBy.String
	return tok, nil
}

// RotateRefreshToken revokes oldID with a compare-and-set on revoked_at and
// inserts next in the same transaction.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, revokedAt time.Time, next *auth.RefreshToken) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update refresh_tokens
			set revoked_at = $1, replaced_by = $2
			where id = $3 and revoked_at is null
		`, revokedAt, next.ID, oldID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return auth.ErrTokenRevoked
		}
		return mapError(insertRefreshToken(ctx, tx, next))
	})
}

func (s *Store) RevokeRefreshToken(ctx context.Context, hash string, revokedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked_at = $1
		where token_hash = $2 and revoked_at is null
	`, revokedAt, hash)
	return err
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked_at = $1
		where user_id = $2 and revoked_at is null
	`, revokedAt, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRefreshToken(ctx context.Context, db execer, tok *auth.RefreshToken) error {
	_, err := db.ExecContext(ctx, `
		insert into refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		values ($1, $2, $3, $4, $5)
	`, tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt)
	return err
}
