package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"association-admin-api/internal/period"
	"association-admin-api/internal/store"
)

const maxBodySize = 1 << 20

type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
}

type pagedEnvelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
	Page    int    `json:"page"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, envelope{Data: data, Message: msg, Status: status})
}

func writePage(w http.ResponseWriter, data any, p store.Page, total int) {
	p = p.Normalize()
	writeJSON(w, http.StatusOK, pagedEnvelope{
		Data: data, Status: http.StatusOK, Page: p.Page, Total: total, Limit: p.Limit,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Message: msg, Status: status})
}

// badRequest is a client error whose message is safe to return.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func errBadRequest(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// fail maps an error to a response. Unknown errors are logged and hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br *badRequest
	var fe fieldErrors
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, envelope{Data: fe, Message: "validation failed", Status: http.StatusBadRequest})
	case errors.As(err, &br):
		writeError(w, http.StatusBadRequest, br.msg)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrInvalidReference):
		writeJSON(w, http.StatusBadRequest, envelope{
			Data:    fieldErrors{"associateId": "does not exist"},
			Message: "validation failed",
			Status:  http.StatusBadRequest,
		})
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// fieldErrors maps JSON field names to messages for inline form errors.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string { return "validation failed" }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fe := fieldErrors{}
	for _, e := range ves {
		fe[e.Field()] = fieldMessage(e)
	}
	return fe
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "uuid":
		return "must be a valid id"
	}
	return "is invalid"
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is required")
		}
		return errBadRequest("invalid JSON: %v", err)
	}
	return h.check(v)
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// validID answers 404 for an {id} that is not a uuid, so no lookup can
// reach the database with it.
func validID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := mux.Vars(r)["id"]; ok {
			if _, err := uuid.Parse(id); err != nil {
				writeError(w, http.StatusNotFound, "not found")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errBadRequest("%s must be a number", key)
	}
	return n, nil
}

func queryPage(r *http.Request) (store.Page, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return store.Page{}, err
	}
	limit, err := queryInt(r, "limit", store.DefaultLimit)
	if err != nil {
		return store.Page{}, err
	}
	return store.Page{Page: page, Limit: limit}.Normalize(), nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errBadRequest("%s must be true or false", key)
	}
	return &b, nil
}

// periodRange resolves the period query around anchor. Both bounds are nil
// for "all".
func periodRange(r *http.Request, anchor time.Time) (from, to *time.Time, err error) {
	p, err := period.Parse(r.URL.Query().Get("period"))
	if err != nil {
		return nil, nil, errBadRequest("%v", err)
	}
	f, t, ok := p.Range(anchor)
	if !ok {
		return nil, nil, nil
	}
	return &f, &t, nil
}

func oneOf(r *http.Request, key string, allowed ...string) (string, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return "", nil
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", errBadRequest("%s must be one of: %s", key, strings.Join(allowed, ", "))
}
