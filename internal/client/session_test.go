package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"association-admin-api/internal/model"
)

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := OpenSession(path)
	require.NoError(t, err)
	assert.Nil(t, s.User())

	require.NoError(t, s.SetUser(&model.User{ID: "u1", Name: "Ana"}))
	require.NoError(t, s.SetNotifications(true, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"birthdayNotifications": true`)
	assert.Contains(t, string(data), `"expiredSession": false`)

	s2, err := OpenSession(path)
	require.NoError(t, err)
	assert.Equal(t, "Ana", s2.User().Name)

	require.NoError(t, s2.Expire())
	assert.Nil(t, s2.User())
	assert.True(t, s2.Expired())
	b, e := s2.Notifications()
	assert.True(t, b)
	assert.True(t, e)

	// logging in again clears the flag
	require.NoError(t, s2.SetUser(&model.User{ID: "u1"}))
	assert.False(t, s2.Expired())
}

func TestSessionClearKeepsFlags(t *testing.T) {
	s, err := OpenSession("")
	require.NoError(t, err)
	require.NoError(t, s.SetUser(&model.User{ID: "u1"}))
	require.NoError(t, s.Clear())
	assert.Nil(t, s.User())
	assert.False(t, s.Expired())
}

func TestSessionCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenSession(path)
	assert.Error(t, err)
}
