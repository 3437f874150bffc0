package store

import (
	"context"
	"time"

	"association-admin-api/internal/model"
)

// Report counts records created or dated inside [from, to). Nil bounds are open.
func (s *Store) Report(ctx context.Context, from, to *time.Time) (*model.Report, error) {
	r := &model.Report{From: from, To: to}
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM appointments
		     WHERE ($1::timestamptz IS NULL OR date >= $1) AND ($2::timestamptz IS NULL OR date < $2)),
		   (SELECT COUNT(*) FROM lawsuits
		     WHERE ($1::timestamptz IS NULL OR created_at >= $1) AND ($2::timestamptz IS NULL OR created_at < $2)),
		   (SELECT COUNT(*) FROM lawsuits
		     WHERE archived AND ($1::timestamptz IS NULL OR updated_at >= $1) AND ($2::timestamptz IS NULL OR updated_at < $2)),
		   (SELECT COUNT(*) FROM associates
		     WHERE ($1::timestamptz IS NULL OR created_at >= $1) AND ($2::timestamptz IS NULL OR created_at < $2)),
		   (SELECT COUNT(*) FROM tasks
		     WHERE status = 'done' AND ($1::timestamptz IS NULL OR updated_at >= $1) AND ($2::timestamptz IS NULL OR updated_at < $2)),
		   (SELECT COUNT(*) FROM tasks WHERE status <> 'done'),
		   (SELECT COUNT(*) FROM events
		     WHERE ($1::timestamptz IS NULL OR date >= $1) AND ($2::timestamptz IS NULL OR date < $2))`,
		from, to,
	).Scan(&r.Appointments, &r.Lawsuits, &r.ArchivedLawsuits, &r.NewAssociates,
		&r.TasksDone, &r.TasksPending, &r.Events)
	if err != nil {
		return nil, err
	}
	return r, nil
}
