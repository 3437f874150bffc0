// Package handler implements the REST API consumed by the admin console.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"association-admin-api/internal/auth"
	"association-admin-api/internal/cache"
	"association-admin-api/internal/files"
	"association-admin-api/internal/mail"
	"association-admin-api/internal/metrics"
	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, name string) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error

	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)

	ListAssociates(ctx context.Context, f store.AssociateFilter) ([]model.Associate, int, error)
	ExpiringAssociates(ctx context.Context, from *time.Time, to time.Time) ([]model.Associate, error)
	AssociateSummary(ctx context.Context, now time.Time, soon time.Duration) (*model.AssociateSummary, error)
	GetAssociate(ctx context.Context, id string) (*model.Associate, error)
	CreateAssociate(ctx context.Context, a *model.Associate) error
	UpdateAssociate(ctx context.Context, a *model.Associate) error
	DeleteAssociate(ctx context.Context, id string) error

	ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, int, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	ListLawsuits(ctx context.Context, f store.LawsuitFilter) ([]model.Lawsuit, int, error)
	LawsuitSummary(ctx context.Context) (*model.LawsuitSummary, error)
	GetLawsuit(ctx context.Context, id string) (*model.Lawsuit, error)
	CreateLawsuit(ctx context.Context, l *model.Lawsuit) error
	UpdateLawsuit(ctx context.Context, l *model.Lawsuit) error
	DeleteLawsuit(ctx context.Context, id string) error

	ListTasks(ctx context.Context, f store.TaskFilter) ([]model.Task, int, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, t *model.Task) error
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, id string) error

	ListEvents(ctx context.Context, f store.EventFilter) ([]model.Event, int, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	CreateEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error

	Report(ctx context.Context, from, to *time.Time) (*model.Report, error)
}

type Options struct {
	Issuer     *auth.Issuer
	RefreshTTL time.Duration
	Files      *files.Storage
	Reports    cache.Reports
	Mail       mail.Sender
	Metrics    *metrics.Metrics
	Log        *zap.Logger
	Location   *time.Location
	// BaseURL is the console origin used in password reset links.
	BaseURL string
	// SecureCookies sets the Secure flag on session cookies.
	SecureCookies bool
}

type Handler struct {
	store    Store
	opts     Options
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(st Store, opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Reports == nil {
		opts.Reports = cache.Nop{}
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		store:    st,
		opts:     opts,
		log:      opts.Log,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Router registers every route. mws run on matched routes, after metrics
// instrumentation. Fixed sub-paths are registered before /{id}.
func (h *Handler) Router(mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if h.opts.Metrics != nil {
		r.Use(h.opts.Metrics.Instrument)
		r.Handle("/metrics", h.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(mws...)
	r.Use(validID)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("", h.CurrentUser).Methods(http.MethodGet)
	a.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	a.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	a.HandleFunc("/forgot-password/{email}", h.ForgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)
	a.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	a.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)

	as := r.PathPrefix("/associates").Subrouter()
	as.HandleFunc("", h.ListAssociates).Methods(http.MethodGet)
	as.HandleFunc("", h.CreateAssociate).Methods(http.MethodPost)
	as.HandleFunc("/summary", h.AssociateSummary).Methods(http.MethodGet)
	as.HandleFunc("/expiry-date", h.ExpiringAssociates).Methods(http.MethodGet)
	as.HandleFunc("/{id}", h.GetAssociate).Methods(http.MethodGet)
	as.HandleFunc("/{id}", h.UpdateAssociate).Methods(http.MethodPut)
	as.HandleFunc("/{id}", h.DeleteAssociate).Methods(http.MethodDelete)

	ap := r.PathPrefix("/appointments").Subrouter()
	ap.HandleFunc("", h.ListAppointments).Methods(http.MethodGet)
	ap.HandleFunc("", h.CreateAppointment).Methods(http.MethodPost)
	ap.HandleFunc("/{id}", h.GetAppointment).Methods(http.MethodGet)
	ap.HandleFunc("/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	ap.HandleFunc("/{id}", h.DeleteAppointment).Methods(http.MethodDelete)

	l := r.PathPrefix("/lawsuits").Subrouter()
	l.HandleFunc("", h.ListLawsuits).Methods(http.MethodGet)
	l.HandleFunc("", h.CreateLawsuit).Methods(http.MethodPost)
	l.HandleFunc("/summary", h.LawsuitSummary).Methods(http.MethodGet)
	l.HandleFunc("/{id}", h.GetLawsuit).Methods(http.MethodGet)
	l.HandleFunc("/{id}", h.UpdateLawsuit).Methods(http.MethodPut)
	l.HandleFunc("/{id}", h.DeleteLawsuit).Methods(http.MethodDelete)

	t := r.PathPrefix("/tasks").Subrouter()
	t.HandleFunc("", h.ListTasks).Methods(http.MethodGet)
	t.HandleFunc("", h.CreateTask).Methods(http.MethodPost)
	t.HandleFunc("/{id}", h.GetTask).Methods(http.MethodGet)
	t.HandleFunc("/{id}", h.UpdateTask).Methods(http.MethodPut)
	t.HandleFunc("/{id}", h.DeleteTask).Methods(http.MethodDelete)

	e := r.PathPrefix("/events").Subrouter()
	e.HandleFunc("", h.ListEvents).Methods(http.MethodGet)
	e.HandleFunc("", h.CreateEvent).Methods(http.MethodPost)
	e.HandleFunc("/{id}", h.GetEvent).Methods(http.MethodGet)
	e.HandleFunc("/{id}", h.UpdateEvent).Methods(http.MethodPut)
	e.HandleFunc("/{id}", h.DeleteEvent).Methods(http.MethodDelete)

	u := r.PathPrefix("/users").Subrouter()
	u.HandleFunc("", h.ListUsers).Methods(http.MethodGet)
	u.HandleFunc("", h.CreateUser).Methods(http.MethodPost)
	u.HandleFunc("/{id}", h.GetUser).Methods(http.MethodGet)
	u.HandleFunc("/{id}", h.UpdateUser).Methods(http.MethodPut)
	u.HandleFunc("/{id}", h.DeleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/reports", h.Report).Methods(http.MethodGet)

	if h.opts.Files != nil {
		r.HandleFunc("/files/upload", h.Upload).Methods(http.MethodPost)
		r.HandleFunc("/files/download/{name}", h.Download).Methods(http.MethodGet)
	}

	return r
}

// Unauthorized is the 401 responder for the auth middleware.
func (h *Handler) Unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

// TooManyRequests is the 429 responder for the rate limiter.
func (h *Handler) TooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health: database unreachable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// invalidate drops cached reports after a write. Failures only cost freshness.
func (h *Handler) invalidate(ctx context.Context) {
	if err := h.opts.Reports.Invalidate(ctx); err != nil {
		h.log.Warn("report cache invalidation failed", zap.Error(err))
	}
}
