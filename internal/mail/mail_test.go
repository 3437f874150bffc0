package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"association-admin-api/internal/config"
)

func TestBuild(t *testing.T) {
	msg := string(Build("noreply@assoc.org", []string{"a@x.com", "b@x.com"}, "Hi", "body"))
	assert.True(t, strings.HasPrefix(msg, "From: noreply@assoc.org\r\n"))
	assert.Contains(t, msg, "To: a@x.com, b@x.com\r\n")
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody"))
}

func TestDevModeLogsInsteadOfSending(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := New(config.SMTP{}, true, zap.New(core))

	assert.NoError(t, m.Send([]string{"a@x.com"}, "Reset", "link"))
	assert.Equal(t, 1, logs.FilterMessage("mail (not sent)").Len())
}

func TestUnconfiguredFails(t *testing.T) {
	m := New(config.SMTP{}, false, zap.NewNop())
	assert.ErrorIs(t, m.Send([]string{"a@x.com"}, "s", "b"), ErrNotConfigured)
	assert.NoError(t, m.Send(nil, "s", "b"))
}
