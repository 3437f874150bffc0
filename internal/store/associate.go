package store

import (
	"context"
	"time"

	"association-admin-api/internal/datefmt"
	"association-admin-api/internal/model"
)

type AssociateFilter struct {
	Page
	Name string
	// Birthday matches associates whose birth month and day equal this date.
	Birthday *time.Time
}

const associateColumns = `id, name, document, birth_date, phone, email, address, city, state,
	zip_code, profession, marital_status, affiliation_date, expiry_date, notes, created_at, updated_at`

func scanAssociate(row interface{ Scan(...any) error }) (*model.Associate, error) {
	a := &model.Associate{}
	var birth, affiliation, expiry *time.Time
	err := row.Scan(&a.ID, &a.Name, &a.Document, &birth, &a.Phone, &a.Email, &a.Address, &a.City,
		&a.State, &a.ZipCode, &a.Profession, &a.MaritalStatus, &affiliation, &expiry, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	a.BirthDate = datefmt.FromPtr(birth)
	a.AffiliationDate = datefmt.FromPtr(affiliation)
	a.ExpiryDate = datefmt.FromPtr(expiry)
	return a, nil
}

func (s *Store) queryAssociates(ctx context.Context, q string, args ...any) ([]model.Associate, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Associate{}
	for rows.Next() {
		a, err := scanAssociate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// birthdayOn matches birth dates falling on day's month and day. In common
// years 29 February birthdays are celebrated on 28 February.
func birthdayOn(w *where, day time.Time) {
	if day.Month() == time.February && day.Day() == 28 && !isLeap(day.Year()) {
		w.add(`EXTRACT(MONTH FROM birth_date) = 2 AND EXTRACT(DAY FROM birth_date) IN (28, 29)`)
		return
	}
	w.add(`EXTRACT(MONTH FROM birth_date) = ? AND EXTRACT(DAY FROM birth_date) = ?`,
		int(day.Month()), day.Day())
}

func isLeap(year int) bool {
	return time.Date(year, time.February, 29, 0, 0, 0, 0, time.UTC).Day() == 29
}

func (s *Store) ListAssociates(ctx context.Context, f AssociateFilter) ([]model.Associate, int, error) {
	w := &where{}
	if f.Name != "" {
		w.add(`name ILIKE ?`, like(f.Name))
	}
	if f.Birthday != nil {
		birthdayOn(w, *f.Birthday)
	}

	total, err := s.count(ctx, "associates", w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.paged(f.Page)
	out, err := s.queryAssociates(ctx,
		`SELECT `+associateColumns+` FROM associates`+w.String()+` ORDER BY name`+limit, args...)
	return out, total, err
}

// ExpiringAssociates lists members whose expiry date falls in [from, to).
// A nil from includes memberships that have already expired.
func (s *Store) ExpiringAssociates(ctx context.Context, from *time.Time, to time.Time) ([]model.Associate, error) {
	w := &where{}
	w.add(`expiry_date IS NOT NULL`)
	if from != nil {
		w.add(`expiry_date >= ?`, *from)
	}
	w.add(`expiry_date < ?`, to)
	return s.queryAssociates(ctx,
		`SELECT `+associateColumns+` FROM associates`+w.String()+` ORDER BY expiry_date, name`, w.args...)
}

func (s *Store) AssociateSummary(ctx context.Context, now time.Time, soon time.Duration) (*model.AssociateSummary, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())

	sum := &model.AssociateSummary{}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE created_at >= $1),
		        COUNT(*) FILTER (WHERE expiry_date < $2),
		        COUNT(*) FILTER (WHERE expiry_date >= $2 AND expiry_date < $3)
		 FROM associates`, monthStart, today, today.Add(soon),
	).Scan(&sum.Total, &sum.NewThisMonth, &sum.Expired, &sum.ExpiringSoon)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) GetAssociate(ctx context.Context, id string) (*model.Associate, error) {
	return scanAssociate(s.pool.QueryRow(ctx, `SELECT `+associateColumns+` FROM associates WHERE id = $1`, id))
}

func (s *Store) CreateAssociate(ctx context.Context, a *model.Associate) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO associates (id, name, document, birth_date, phone, email, address, city, state,
		        zip_code, profession, marital_status, affiliation_date, expiry_date, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Document, a.BirthDate.Ptr(), a.Phone, a.Email, a.Address, a.City, a.State,
		a.ZipCode, a.Profession, a.MaritalStatus, a.AffiliationDate.Ptr(), a.ExpiryDate.Ptr(), a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateAssociate(ctx context.Context, a *model.Associate) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE associates SET name=$1, document=$2, birth_date=$3, phone=$4, email=$5, address=$6,
		        city=$7, state=$8, zip_code=$9, profession=$10, marital_status=$11,
		        affiliation_date=$12, expiry_date=$13, notes=$14, updated_at=NOW()
		 WHERE id=$15 RETURNING created_at, updated_at`,
		a.Name, a.Document, a.BirthDate.Ptr(), a.Phone, a.Email, a.Address, a.City, a.State,
		a.ZipCode, a.Profession, a.MaritalStatus, a.AffiliationDate.Ptr(), a.ExpiryDate.Ptr(), a.Notes, a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeleteAssociate(ctx context.Context, id string) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM associates WHERE id=$1`, id))
}
