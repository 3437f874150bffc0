package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("testpass123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "testpass123"))
	assert.False(t, CheckPassword(hash, "wrongpassword"))
}

func TestAccessTokenExpiry(t *testing.T) {
	iss := NewIssuer("secret", 15*time.Minute)

	tok, err := iss.MakeToken("test-uid")
	require.NoError(t, err)

	claims, err := iss.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "test-uid", claims.UserID)

	// verify expiry is ~15 min from now
	diff := time.Until(claims.ExpiresAt.Time)
	assert.True(t, diff > 14*time.Minute && diff <= 15*time.Minute, "expiry %v", diff)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, 15*time.Minute, NewIssuer("s", 0).TTL())
}

func TestAlgorithmConfusion(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)

	tok, _ := iss.MakeToken("uid")
	_, err := iss.ParseToken(tok)
	require.NoError(t, err)

	// wrong secret fails
	_, err = NewIssuer("wrong-secret", time.Hour).ParseToken(tok)
	assert.Error(t, err)

	// garbage token fails
	_, err = iss.ParseToken("not.a.token")
	assert.Error(t, err)

	// unsigned token fails
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "uid"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.ParseToken(none)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	iss := NewIssuer("secret", -time.Minute)
	// negative ttl falls back to the default, so sign an expired one by hand
	c := Claims{UserID: "uid", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = iss.ParseToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestOpaqueToken(t *testing.T) {
	raw, hash, err := GenerateOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64) // 32 bytes hex
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashOpaqueToken(raw))

	raw2, _, _ := GenerateOpaqueToken()
	assert.NotEqual(t, raw, raw2)
}
