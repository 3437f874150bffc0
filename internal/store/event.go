package store

import (
	"context"
	"time"

	"association-admin-api/internal/model"
)

type EventFilter struct {
	Page
	Name     string
	From, To *time.Time
}

const eventColumns = `id, name, description, location, date, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	e := &model.Event{}
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]model.Event, int, error) {
	w := &where{}
	if f.Name != "" {
		w.add(`name ILIKE ?`, like(f.Name))
	}
	rangeConds(w, "date", f.From, f.To)

	total, err := s.count(ctx, "events", w)
	if err != nil {
		return nil, 0, err
	}

	limit, args := w.paged(f.Page)
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events`+w.String()+` ORDER BY date DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (id, name, description, location, date)
		 VALUES ($1,$2,$3,$4,$5) RETURNING created_at, updated_at`,
		e.ID, e.Name, e.Description, e.Location, e.Date,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateEvent(ctx context.Context, e *model.Event) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE events SET name=$1, description=$2, location=$3, date=$4, updated_at=NOW()
		 WHERE id=$5 RETURNING created_at, updated_at`,
		e.Name, e.Description, e.Location, e.Date, e.ID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM events WHERE id=$1`, id))
}
