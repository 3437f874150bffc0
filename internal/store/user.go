package store

import (
	"context"

	"association-admin-api/internal/model"
)

const userColumns = `id, email, password_hash, name, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, name, role) VALUES ($1,$2,$3,$4,$5)
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) ListUsers(ctx context.Context, name string) ([]model.User, error) {
	w := &where{}
	if name != "" {
		w.add(`name ILIKE ?`, like(name))
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY name`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateUser writes name, email and role. The password hash is only written
// when non-empty.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET name=$1, email=$2, role=$3,
		        password_hash = COALESCE(NULLIF($4, ''), password_hash), updated_at=NOW()
		 WHERE id=$5 RETURNING created_at, updated_at`,
		u.Name, u.Email, u.Role, u.PasswordHash, u.ID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id))
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "users", &where{})
}
