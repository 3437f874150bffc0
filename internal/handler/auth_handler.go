package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"association-admin-api/internal/auth"
	"association-admin-api/internal/middleware"
	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

const resetTTL = time.Hour

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type session struct {
	User         *model.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.UserByID(r.Context(), middleware.UserID(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		// token outlived the account
		h.Unauthorized(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u, "")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, r, err)
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s, err := h.startSession(w, r, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("login", zap.String("user_id", u.ID))
	writeData(w, http.StatusOK, s, "")
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
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
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         model.RoleUser,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.fail(w, r, err)
		return
	}

	s, err := h.startSession(w, r, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, s, "account created")
}

// ForgotPassword always answers 200 so callers cannot probe for accounts.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const msg = "if the account exists, a reset link has been sent"
	email := strings.ToLower(strings.TrimSpace(mux.Vars(r)["email"]))

	u, err := h.store.UserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error("forgot password lookup", zap.Error(err))
		}
		writeData(w, http.StatusOK, nil, msg)
		return
	}

	raw, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		h.log.Error("forgot password token", zap.Error(err))
		writeData(w, http.StatusOK, nil, msg)
		return
	}
	if err := h.store.CreatePasswordReset(r.Context(), u.ID, hash, h.now().Add(resetTTL)); err != nil {
		h.log.Error("forgot password store", zap.Error(err))
		writeData(w, http.StatusOK, nil, msg)
		return
	}

	link := strings.TrimRight(h.opts.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(raw)
	if h.opts.Mail != nil {
		body := fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in one hour.\n\n%s\n",
			u.Name, link)
		if err := h.opts.Mail.Send([]string{u.Email}, "Password reset", body); err != nil {
			h.log.Warn("reset mail not sent", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	writeData(w, http.StatusOK, nil, msg)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	uid, err := h.store.ResetPassword(r.Context(), auth.HashOpaqueToken(req.Token), hash, h.now())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("password reset", zap.String("user_id", uid))
	writeData(w, http.StatusOK, nil, "password updated")
}

// Logout revokes the caller's refresh tokens. The caller is taken from the
// access token or, once that has expired, from the refresh cookie. Logging
// out without either only clears cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := middleware.UserID(ctx)
	if uid == "" {
		if c, err := r.Cookie(middleware.RefreshCookie); err == nil && c.Value != "" {
			rt, err := h.store.GetRefreshTokenByHash(ctx, auth.HashOpaqueToken(c.Value))
			switch {
			case err == nil:
				uid = rt.UserID
			case !errors.Is(err, store.ErrNotFound):
				h.fail(w, r, err)
				return
			}
		}
	}
	if uid != "" {
		if err := h.store.RevokeAllRefreshTokens(ctx, uid); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	h.clearCookies(w)
	writeData(w, http.StatusOK, nil, "logged out")
}

// Refresh rotates the refresh token. Presenting a revoked token revokes the
// whole family, since it means the token was stolen or replayed.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(middleware.RefreshCookie); err == nil {
		raw = c.Value
	} else if r.ContentLength > 0 {
		var req refreshRequest
		if err := h.decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		raw = req.RefreshToken
	}
	if raw == "" {
		h.Unauthorized(w, r)
		return
	}

	ctx := r.Context()
	rt, err := h.store.GetRefreshTokenByHash(ctx, auth.HashOpaqueToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		h.Unauthorized(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if rt.Revoked {
		h.log.Warn("refresh token reuse", zap.String("user_id", rt.UserID))
		if err := h.store.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			h.log.Error("revoking token family", zap.Error(err))
		}
		h.clearCookies(w)
		h.Unauthorized(w, r)
		return
	}
	if h.now().After(rt.ExpiresAt) {
		h.clearCookies(w)
		h.Unauthorized(w, r)
		return
	}

	u, err := h.store.UserByID(ctx, rt.UserID)
	if errors.Is(err, store.ErrNotFound) {
		h.Unauthorized(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	newRaw, newHash, err := auth.GenerateOpaqueToken()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	exp := h.now().Add(h.opts.RefreshTTL)
	if err := h.store.RotateRefreshToken(ctx, rt.ID, rt.UserID, newHash, exp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// lost a race with a concurrent refresh
			h.Unauthorized(w, r)
			return
		}
		h.fail(w, r, err)
		return
	}

	s, err := h.issueAccess(w, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s.RefreshToken = newRaw
	h.setCookie(w, middleware.RefreshCookie, newRaw, h.opts.RefreshTTL)
	writeData(w, http.StatusOK, s, "")
}

// startSession issues an access token and a fresh refresh token and sets both
// cookies.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u *model.User) (*session, error) {
	raw, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), u.ID, hash, h.now().Add(h.opts.RefreshTTL)); err != nil {
		return nil, err
	}
	s, err := h.issueAccess(w, u)
	if err != nil {
		return nil, err
	}
	s.RefreshToken = raw
	h.setCookie(w, middleware.RefreshCookie, raw, h.opts.RefreshTTL)
	return s, nil
}

func (h *Handler) issueAccess(w http.ResponseWriter, u *model.User) (*session, error) {
	tok, err := h.opts.Issuer.MakeToken(u.ID)
	if err != nil {
		return nil, err
	}
	ttl := h.opts.Issuer.TTL()
	h.setCookie(w, middleware.AccessCookie, tok, ttl)
	return &session{User: u, Token: tok, ExpiresAt: h.now().Add(ttl)}, nil
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.opts.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
