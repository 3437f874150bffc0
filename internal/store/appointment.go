package store

import (
	"context"
	"time"

	"association-admin-api/internal/model"
)

type AppointmentFilter struct {
	Page
	Client   string
	From, To *time.Time
}

const appointmentColumns = `id, client, associate_id, date, subject, status, notes, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := row.Scan(&a.ID, &a.Client, &a.AssociateID, &a.Date, &a.Subject, &a.Status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func rangeConds(w *where, col string, from, to *time.Time) {
	if from != nil {
		w.add(col+` >= ?`, *from)
	}
	if to != nil {
		w.add(col+` < ?`, *to)
	}
}

func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, int, error) {
	w := &where{}
	if f.Client != "" {
		w.add(`client ILIKE ?`, like(f.Client))
	}
	rangeConds(w, "date", f.From, f.To)

	total, err := s.count(ctx, "appointments", w)
	if err != nil {
		return nil, 0, err
	}

	limit, args := w.paged(f.Page)
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments`+w.String()+` ORDER BY date DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, client, associate_id, date, subject, status, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`,
		a.ID, a.Client, a.AssociateID, a.Date, a.Subject, a.Status, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}
	err := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET client=$1, associate_id=$2, date=$3, subject=$4, status=$5, notes=$6, updated_at=NOW()
		 WHERE id=$7 RETURNING created_at, updated_at`,
		a.Client, a.AssociateID, a.Date, a.Subject, a.Status, a.Notes, a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id))
}
