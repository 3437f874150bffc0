package store

import (
	"context"
	"time"

	"association-admin-api/internal/datefmt"
	"association-admin-api/internal/model"
)

type LawsuitFilter struct {
	Page
	Client   string
	From, To *time.Time
	Archived *bool
}

const lawsuitColumns = `id, client, associate_id, number, court, subject, status, opened_at, archived,
	notes, created_at, updated_at`

func scanLawsuit(row interface{ Scan(...any) error }) (*model.Lawsuit, error) {
	l := &model.Lawsuit{}
	var opened *time.Time
	err := row.Scan(&l.ID, &l.Client, &l.AssociateID, &l.Number, &l.Court, &l.Subject, &l.Status,
		&opened, &l.Archived, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	l.OpenedAt = datefmt.FromPtr(opened)
	return l, nil
}

// ListLawsuits filters the period on created_at, which is when the case file
// was registered.
func (s *Store) ListLawsuits(ctx context.Context, f LawsuitFilter) ([]model.Lawsuit, int, error) {
	w := &where{}
	if f.Client != "" {
		w.add(`client ILIKE ?`, like(f.Client))
	}
	rangeConds(w, "created_at", f.From, f.To)
	if f.Archived != nil {
		w.add(`archived = ?`, *f.Archived)
	}

	total, err := s.count(ctx, "lawsuits", w)
	if err != nil {
		return nil, 0, err
	}

	limit, args := w.paged(f.Page)
	rows, err := s.pool.Query(ctx,
		`SELECT `+lawsuitColumns+` FROM lawsuits`+w.String()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Lawsuit{}
	for rows.Next() {
		l, err := scanLawsuit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (s *Store) LawsuitSummary(ctx context.Context) (*model.LawsuitSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, archived, COUNT(*) FROM lawsuits GROUP BY status, archived`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := &model.LawsuitSummary{ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var archived bool
		var n int
		if err := rows.Scan(&status, &archived, &n); err != nil {
			return nil, err
		}
		sum.Total += n
		sum.ByStatus[status] += n
		if archived {
			sum.Archived += n
		} else {
			sum.Open += n
		}
	}
	return sum, rows.Err()
}

func (s *Store) GetLawsuit(ctx context.Context, id string) (*model.Lawsuit, error) {
	return scanLawsuit(s.pool.QueryRow(ctx, `SELECT `+lawsuitColumns+` FROM lawsuits WHERE id = $1`, id))
}

func (s *Store) CreateLawsuit(ctx context.Context, l *model.Lawsuit) error {
	if l.Status == "" {
		l.Status = "open"
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lawsuits (id, client, associate_id, number, court, subject, status, opened_at, archived, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING created_at, updated_at`,
		l.ID, l.Client, l.AssociateID, l.Number, l.Court, l.Subject, l.Status, l.OpenedAt.Ptr(),
		l.Archived, l.Notes,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateLawsuit(ctx context.Context, l *model.Lawsuit) error {
	if l.Status == "" {
		l.Status = "open"
	}
	err := s.pool.QueryRow(ctx,
		`UPDATE lawsuits SET client=$1, associate_id=$2, number=$3, court=$4, subject=$5, status=$6,
		        opened_at=$7, archived=$8, notes=$9, updated_at=NOW()
		 WHERE id=$10 RETURNING created_at, updated_at`,
		l.Client, l.AssociateID, l.Number, l.Court, l.Subject, l.Status, l.OpenedAt.Ptr(),
		l.Archived, l.Notes, l.ID,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteLawsuit(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM lawsuits WHERE id=$1`, id))
}
