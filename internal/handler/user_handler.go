package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"association-admin-api/internal/auth"
	"association-admin-api/internal/middleware"
	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

type updateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

// caller loads the authenticated user.
func (h *Handler) caller(r *http.Request) (*model.User, error) {
	return h.store.UserByID(r.Context(), middleware.UserID(r.Context()))
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	me, err := h.caller(r)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Unauthorized(w, r)
		} else {
			h.fail(w, r, err)
		}
		return nil, false
	}
	if !me.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin only")
		return nil, false
	}
	return me, true
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users, "")
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.UserByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u, "")
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	var req createUserRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, u, "user created")
}

// UpdateUser lets admins edit anyone. Other users may edit their own
// profile but not their role.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	me, err := h.caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := pathID(r)
	if !me.IsAdmin() && me.ID != id {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}

	var req updateUserRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.store.UserByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Role != "" && req.Role != u.Role {
		if !me.IsAdmin() {
			writeError(w, http.StatusForbidden, "only admins can change roles")
			return
		}
		u.Role = req.Role
	}
	u.Name = strings.TrimSpace(req.Name)
	u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	u.PasswordHash = ""
	if req.Password != "" {
		if u.PasswordHash, err = auth.HashPassword(req.Password); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		h.fail(w, r, err)
		return
	}
	u.PasswordHash = ""
	writeData(w, http.StatusOK, u, "user updated")
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	me, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id := pathID(r)
	if id == me.ID {
		writeError(w, http.StatusBadRequest, "you cannot delete your own account")
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("user deleted", zap.String("user_id", id), zap.String("by", me.ID))
	writeData(w, http.StatusOK, nil, "user deleted")
}
