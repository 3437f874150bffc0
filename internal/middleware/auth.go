package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"association-admin-api/internal/auth"
)

var errNoToken = errors.New("no access token")

type ctxKey string

const UserIDKey ctxKey = "uid"

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// skip auth for these
var open = map[string]bool{
	"/auth/login":          true,
	"/auth/signup":         true,
	"/auth/reset-password": true,
	"/auth/refresh":        true,
	"/health":              true,
	"/metrics":             true,
}

// logout may arrive with an expired access token; the handler falls back
// to the refresh cookie.
const logoutPath = "/auth/logout"

func isOpen(path string) bool {
	return open[path] || strings.HasPrefix(path, "/auth/forgot-password/")
}

// UserID returns the authenticated user id, or "" outside an authed request.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// WithUserID is used by tests and the auth middleware.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UserIDKey, uid)
}

// Auth accepts the access token from the access_token cookie or an
// Authorization: Bearer header and rejects everything else with 401.
func Auth(iss *auth.Issuer, unauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isOpen(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			raw := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			} else if c, err := r.Cookie(AccessCookie); err == nil {
				raw = c.Value
			}

			var claims *auth.Claims
			err := errNoToken
			if raw != "" {
				claims, err = iss.ParseToken(raw)
			}
			if err != nil {
				if r.URL.Path == logoutPath {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}
