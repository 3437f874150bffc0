package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"association-admin-api/internal/model"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, extra map[string]any) {
	body := map[string]any{"data": data, "status": status}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func loginHandler(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "cookie-tok", Path: "/", HttpOnly: true})
	writeEnvelope(w, http.StatusOK, map[string]any{
		"user":  map[string]string{"id": "u1", "name": "Ana", "email": "ana@test.org", "role": "admin"},
		"token": "jwt-tok",
	}, nil)
}

func TestRequestHeadersAndPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/associates", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "ana", r.URL.Query().Get("name"))
		writeEnvelope(w, http.StatusOK, []map[string]string{{"id": "a1", "name": "Ana"}},
			map[string]any{"page": 2, "total": 11, "limit": 10})
	}))
	defer srv.Close()

	c := New(srv.URL)
	p, err := c.Associates().List(context.Background(), ListOptions{Page: 2, Name: "ana"})
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Ana", p.Items[0].Name)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 11, p.Total)
	assert.Equal(t, 10, p.Limit)
}

func TestLoginPersistsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", loginHandler)
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-tok", r.Header.Get("Authorization"))
		c, err := r.Cookie("access_token")
		if assert.NoError(t, err) {
			assert.Equal(t, "cookie-tok", c.Value)
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"id": "u1", "name": "Ana Maria"}, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	sess, err := OpenSession(path)
	require.NoError(t, err)
	c := New(srv.URL, WithSession(sess))

	u, err := c.Login(context.Background(), "ana@test.org", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, u.IsAdmin())

	_, err = c.CurrentUser(context.Background())
	require.NoError(t, err)

	reopened, err := OpenSession(path)
	require.NoError(t, err)
	require.NotNil(t, reopened.User())
	assert.Equal(t, "Ana Maria", reopened.User().Name)
	assert.False(t, reopened.Expired())
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	var sawAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", loginHandler)
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusUnauthorized, nil, map[string]any{"message": "unauthorized"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	sess, err := OpenSession(path)
	require.NoError(t, err)
	require.NoError(t, sess.SetNotifications(true, false))

	var expired int32
	c := New(srv.URL, WithSession(sess), OnSessionExpired(func() { atomic.AddInt32(&expired, 1) }))
	_, err = c.Login(context.Background(), "ana@test.org", "password123")
	require.NoError(t, err)

	_, err = c.Tasks().List(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, "Bearer jwt-tok", sawAuth.Load())
	assert.Equal(t, int32(1), atomic.LoadInt32(&expired))
	assert.Nil(t, sess.User())
	assert.True(t, sess.Expired())

	// the token is gone for later requests
	_, _ = c.Tasks().List(context.Background(), ListOptions{})
	assert.Equal(t, "", sawAuth.Load())

	reopened, err := OpenSession(path)
	require.NoError(t, err)
	assert.True(t, reopened.Expired())
	birthday, expiry := reopened.Notifications()
	assert.True(t, birthday)
	assert.False(t, expiry)
}

func TestLoginUnauthorizedKeepsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, map[string]any{"message": "invalid credentials"})
	}))
	defer srv.Close()

	called := false
	c := New(srv.URL, OnSessionExpired(func() { called = true }))
	_, err := c.Login(context.Background(), "ana@test.org", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.False(t, called)
	assert.False(t, c.Session().Expired())
}

func TestLogoutDoesNotExpireSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", loginHandler)
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, map[string]any{"message": "unauthorized"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	called := false
	c := New(srv.URL, OnSessionExpired(func() { called = true }))
	_, err := c.Login(context.Background(), "ana@test.org", "password123")
	require.NoError(t, err)

	err = c.Logout(context.Background())
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.False(t, called)
	assert.False(t, c.Session().Expired())
	assert.Nil(t, c.Session().User())
}

func TestValidationErrorFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, map[string]string{"name": "is required"},
			map[string]any{"message": "validation failed"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Events().Create(context.Background(), map[string]string{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "is required", apiErr.Fields["name"])
}

func TestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/lawsuits/x1", r.URL.Path)
		writeEnvelope(w, http.StatusNotFound, nil, map[string]any{"message": "not found"})
	}))
	defer srv.Close()

	err := New(srv.URL).Lawsuits().Delete(context.Background(), "x1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestPollCurrentUserStopsOnExpiry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth", r.URL.Path)
		if atomic.AddInt32(&calls, 1) >= 3 {
			writeEnvelope(w, http.StatusUnauthorized, nil, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"id": "u1"}, nil)
	}))
	defer srv.Close()

	c := New(srv.URL, WithPollInterval(5*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.PollCurrentUser(ctx, nil)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, c.Session().Expired())
}

func TestPollCurrentUserReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, nil, map[string]any{"message": "internal error"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithPollInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int32
	err := c.PollCurrentUser(ctx, func(err error) {
		var apiErr *APIError
		if errors.As(err, &apiErr) && atomic.AddInt32(&seen, 1) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&seen), int32(2))
}

func TestReportQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-06-10", r.URL.Query().Get("date"))
		assert.Equal(t, "week", r.URL.Query().Get("period"))
		writeEnvelope(w, http.StatusOK, model.Report{Appointments: 4}, nil)
	}))
	defer srv.Close()

	r, err := New(srv.URL).Report(context.Background(), time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "week")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Appointments)
}

func TestUploadDownload(t *testing.T) {
	stored := map[string][]byte{}
	mux := http.NewServeMux()
	mux.HandleFunc("/files/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		b, _ := io.ReadAll(f)
		stored["abc.txt"] = b
		writeEnvelope(w, http.StatusCreated, model.File{Name: "abc.txt", OriginalName: hdr.Filename, Size: int64(len(b))}, nil)
	})
	mux.HandleFunc("/files/download/", func(w http.ResponseWriter, r *http.Request) {
		b, ok := stored[filepath.Base(r.URL.Path)]
		if !ok {
			writeEnvelope(w, http.StatusNotFound, nil, map[string]any{"message": "file not found"})
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="abc.txt"`)
		_, _ = w.Write(b)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	f, err := c.Upload(context.Background(), "notes.txt", bytes.NewBufferString("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.OriginalName)
	assert.Equal(t, int64(5), f.Size)

	var out bytes.Buffer
	n, err := c.Download(context.Background(), f.Name, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", out.String())

	_, err = c.Download(context.Background(), "missing.txt", &out)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
