// internal/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomPasswordRoundTrip(t *testing.T) {
	hash, err := HashRoomPassword("hunter2")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashRoomPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts differ")
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("x", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = VerifyPassword("x", "$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestJWTRoundTrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	id := models.Identity{UserID: uuid.New(), DisplayName: "alice", IsRegistered: true}
	token, err := CreateJWT(id)
	require.NoError(t, err)

	got, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWTExpiredAndForeignTokensFail(t *testing.T) {
	require.NoError(t, Init(time.Hour))

	expired := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString(privateKey)
	require.NoError(t, err)
	_, err = AuthenticateJWT(signed)
	assert.Error(t, err)

	token, err := CreateJWT(models.Identity{UserID: uuid.New(), DisplayName: "bob"})
	require.NoError(t, err)
	require.NoError(t, Init(time.Hour)) // rotate keys
	_, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestParseExpireTime(t *testing.T) {
	d, err := ParseExpireTime("never")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseExpireTime("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseExpireTime("soon")
	assert.Error(t, err)
}
