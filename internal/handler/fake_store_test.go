package handler_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"association-admin-api/internal/handler"
	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

// memStore keeps just enough state in memory for the handler tests.
// Methods it does not override panic through the nil embedded interface.
type memStore struct {
	handler.Store

	mu         sync.Mutex
	pingErr    error
	users      map[string]*model.User
	tokens     map[string]*store.RefreshToken
	resets     map[string]*reset
	associates map[string]*model.Associate
	appts      map[string]*model.Appointment
	lawsuits   map[string]*model.Lawsuit
	tasks      map[string]*model.Task
	events     map[string]*model.Event
	reports    int

	associateFilter   store.AssociateFilter
	expiringFrom      *time.Time
	expiringTo        time.Time
	appointmentFilter store.AppointmentFilter
	lawsuitFilter     store.LawsuitFilter
	taskFilter        store.TaskFilter
	eventFilter       store.EventFilter
}

type reset struct {
	userID  string
	expires time.Time
	used    bool
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]*model.User{},
		tokens:     map[string]*store.RefreshToken{},
		resets:     map[string]*reset{},
		associates: map[string]*model.Associate{},
		appts:      map[string]*model.Appointment{},
		lawsuits:   map[string]*model.Lawsuit{},
		tasks:      map[string]*model.Task{},
		events:     map[string]*model.Event{},
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return store.ErrConflict
		}
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) ListUsers(_ context.Context, name string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(name)) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	hash := cur.PasswordHash
	if u.PasswordHash != "" {
		hash = u.PasswordHash
	}
	cp := *u
	cp.PasswordHash = hash
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) CreateRefreshToken(_ context.Context, userID, hash string, exp time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.tokens[hash] = &store.RefreshToken{ID: id, UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return id, nil
}

func (m *memStore) GetRefreshTokenByHash(_ context.Context, hash string) (*store.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (m *memStore) RotateRefreshToken(_ context.Context, oldID, userID, newHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.tokens {
		if rt.ID == oldID {
			if rt.Revoked {
				return store.ErrNotFound
			}
			rt.Revoked = true
			id := uuid.New().String()
			rt.ReplacedBy = &id
			m.tokens[newHash] = &store.RefreshToken{ID: id, UserID: userID, TokenHash: newHash, ExpiresAt: exp}
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.tokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (m *memStore) activeTokens(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rt := range m.tokens {
		if rt.UserID == userID && !rt.Revoked {
			n++
		}
	}
	return n
}

func (m *memStore) CreatePasswordReset(_ context.Context, userID, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[hash] = &reset{userID: userID, expires: exp}
	return nil
}

func (m *memStore) ResetPassword(_ context.Context, hash, pwHash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resets[hash]
	if !ok || rs.used || !now.Before(rs.expires) {
		return "", store.ErrNotFound
	}
	rs.used = true
	m.users[rs.userID].PasswordHash = pwHash
	return rs.userID, nil
}

func (m *memStore) ListAssociates(_ context.Context, f store.AssociateFilter) ([]model.Associate, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.associateFilter = f
	out := []model.Associate{}
	for _, a := range m.associates {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *memStore) ExpiringAssociates(_ context.Context, from *time.Time, to time.Time) ([]model.Associate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiringFrom, m.expiringTo = from, to
	return []model.Associate{}, nil
}

func (m *memStore) AssociateSummary(context.Context, time.Time, time.Duration) (*model.AssociateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.AssociateSummary{Total: len(m.associates)}, nil
}

func (m *memStore) GetAssociate(_ context.Context, id string) (*model.Associate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.associates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateAssociate(_ context.Context, a *model.Associate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.associates[a.ID] = &cp
	return nil
}

func (m *memStore) UpdateAssociate(_ context.Context, a *model.Associate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.associates[a.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *a
	m.associates[a.ID] = &cp
	return nil
}

func (m *memStore) DeleteAssociate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.associates[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.associates, id)
	return nil
}

func (m *memStore) ListAppointments(_ context.Context, f store.AppointmentFilter) ([]model.Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointmentFilter = f
	out := []model.Appointment{}
	for _, a := range m.appts {
		out = append(out, *a)
	}
	return out, len(out), nil
}

// knownAssociate mirrors the associate_id foreign key. Callers hold mu.
func (m *memStore) knownAssociate(id *string) bool {
	if id == nil {
		return true
	}
	_, ok := m.associates[*id]
	return ok
}

func (m *memStore) CreateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.knownAssociate(a.AssociateID) {
		return store.ErrInvalidReference
	}
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memStore) ListLawsuits(_ context.Context, f store.LawsuitFilter) ([]model.Lawsuit, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lawsuitFilter = f
	out := []model.Lawsuit{}
	for _, l := range m.lawsuits {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *memStore) GetLawsuit(_ context.Context, id string) (*model.Lawsuit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lawsuits[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) CreateLawsuit(_ context.Context, l *model.Lawsuit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.knownAssociate(l.AssociateID) {
		return store.ErrInvalidReference
	}
	if l.Status == "" {
		l.Status = "open"
	}
	cp := *l
	m.lawsuits[l.ID] = &cp
	return nil
}

func (m *memStore) UpdateLawsuit(_ context.Context, l *model.Lawsuit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lawsuits[l.ID]; !ok {
		return store.ErrNotFound
	}
	if !m.knownAssociate(l.AssociateID) {
		return store.ErrInvalidReference
	}
	cp := *l
	m.lawsuits[l.ID] = &cp
	return nil
}

func (m *memStore) DeleteLawsuit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lawsuits[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.lawsuits, id)
	return nil
}

func (m *memStore) ListTasks(_ context.Context, f store.TaskFilter) ([]model.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskFilter = f
	out := []model.Task{}
	for _, t := range m.tasks {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *memStore) GetTask(_ context.Context, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func taskDefaults(t *model.Task) {
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
}

func (m *memStore) CreateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	taskDefaults(t)
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) UpdateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return store.ErrNotFound
	}
	taskDefaults(t)
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStore) ListEvents(_ context.Context, f store.EventFilter) ([]model.Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventFilter = f
	out := []model.Event{}
	for _, e := range m.events {
		if !strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.Name)) {
			continue
		}
		if (f.From != nil && e.Date.Before(*f.From)) || (f.To != nil && !e.Date.Before(*f.To)) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, len(out), nil
}

func (m *memStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memStore) UpdateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) Report(_ context.Context, from, to *time.Time) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports++
	return &model.Report{From: from, To: to, NewAssociates: len(m.associates)}, nil
}

// memCache is an in-process cache.Reports.
type memCache struct {
	mu    sync.Mutex
	items map[string]*model.Report
}

func (c *memCache) Get(_ context.Context, k string) (*model.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[k]
	return r, ok, nil
}

func (c *memCache) Set(_ context.Context, k string, r *model.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string]*model.Report{}
	}
	c.items[k] = r
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return nil
}

type sent struct {
	to      []string
	subject string
	body    string
}

type mailbox struct {
	mu   sync.Mutex
	msgs []sent
}

func (m *mailbox) Send(to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, sent{to: to, subject: subject, body: body})
	return nil
}
