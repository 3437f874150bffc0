package store

import (
	"context"
	"time"

	"association-admin-api/internal/datefmt"
	"association-admin-api/internal/model"
)

type TaskFilter struct {
	Page
	Client   string
	Status   string
	Priority string
}

const taskColumns = `id, title, client, description, status, priority, due_date, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	t := &model.Task{}
	var due *time.Time
	err := row.Scan(&t.ID, &t.Title, &t.Client, &t.Description, &t.Status, &t.Priority, &due,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	t.DueDate = datefmt.FromPtr(due)
	return t, nil
}

func taskDefaults(t *model.Task) {
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
}

func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, int, error) {
	w := &where{}
	if f.Client != "" {
		w.add(`client ILIKE ?`, like(f.Client))
	}
	if f.Status != "" {
		w.add(`status = ?`, f.Status)
	}
	if f.Priority != "" {
		w.add(`priority = ?`, f.Priority)
	}

	total, err := s.count(ctx, "tasks", w)
	if err != nil {
		return nil, 0, err
	}

	limit, args := w.paged(f.Page)
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks`+w.String()+
			` ORDER BY due_date NULLS LAST, created_at DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	taskDefaults(t)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, title, client, description, status, priority, due_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`,
		t.ID, t.Title, t.Client, t.Description, t.Status, t.Priority, t.DueDate.Ptr(),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateTask(ctx context.Context, t *model.Task) error {
	taskDefaults(t)
	err := s.pool.QueryRow(ctx,
		`UPDATE tasks SET title=$1, client=$2, description=$3, status=$4, priority=$5, due_date=$6,
		        updated_at=NOW()
		 WHERE id=$7 RETURNING created_at, updated_at`,
		t.Title, t.Client, t.Description, t.Status, t.Priority, t.DueDate.Ptr(), t.ID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id))
}
