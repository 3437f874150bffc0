package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New(false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func serve(t *testing.T, path string, status int) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	h := RequestLogger(zap.New(core))(inner)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	return logs
}

func TestRequestLogger(t *testing.T) {
	logs := serve(t, "/associates", http.StatusOK)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/associates", fields["path"])
	assert.EqualValues(t, 200, fields["status"])
}

func TestRequestLoggerLevels(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, serve(t, "/missing", http.StatusNotFound).All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, serve(t, "/boom", http.StatusInternalServerError).All()[0].Level)
}

func TestRequestLoggerSkipsProbes(t *testing.T) {
	assert.Equal(t, 0, serve(t, "/health", http.StatusOK).Len())
	assert.Equal(t, 0, serve(t, "/metrics", http.StatusOK).Len())
}
