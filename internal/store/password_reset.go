package store

import (
	"context"
	"time"
)

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1,$2,$3)`,
		tokenHash, userID, expiresAt,
	)
	return err
}

// ResetPassword consumes a reset token and writes the new hash in one
// transaction. Unknown, used or expired tokens yield ErrNotFound.
func (s *Store) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx,
		`UPDATE password_resets SET used = true
		 WHERE token_hash = $1 AND used = false AND expires_at > $2
		 RETURNING user_id`, tokenHash, now,
	).Scan(&userID)
	if err != nil {
		return "", mapErr(err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`, passwordHash, userID,
	); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`, userID,
	); err != nil {
		return "", err
	}

	return userID, tx.Commit(ctx)
}

func (s *Store) PurgePasswordResets(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at < $1 OR used`, now)
	return tag.RowsAffected(), err
}
