package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01Justinnguyen/chirper-api/internal/user"
)

func testJWTCodec(t *testing.T) *JWTCodec {
	t.Helper()
	return NewJWTCodec(map[TokenPurpose]TokenConfig{
		PurposeAccess:         {Secret: "access-secret-at-least-32-bytes-long!!", Lifetime: 15 * time.Minute},
		PurposeRefresh:        {Secret: "refresh-secret-at-least-32-bytes-long!", Lifetime: 7 * 24 * time.Hour},
		PurposeEmailVerify:    {Secret: "verify-secret-at-least-32-bytes-long!!", Lifetime: 24 * time.Hour},
		PurposeForgotPassword: {Secret: "forgot-secret-at-least-32-bytes-long!!", Lifetime: time.Hour},
	})
}

func TestJWTCodec_RoundTrip(t *testing.T) {
	codec := testJWTCodec(t)

	token, err := codec.Sign(PurposeAccess, "11111111-2222-3333-4444-555555555555", user.Verified)
	require.NoError(t, err)

	claims, err := codec.Verify(token, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", claims.UserID)
	assert.Equal(t, PurposeAccess, claims.TokenType)
	assert.Equal(t, user.Verified, claims.Verify)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestJWTCodec_WireShape(t *testing.T) {
	codec := testJWTCodec(t)

	token, err := codec.Sign(PurposeRefresh, "user-1", user.Unverified)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))

	assert.Equal(t, "user-1", raw["user_id"])
	assert.Equal(t, float64(PurposeRefresh), raw["token_type"])
	assert.Equal(t, float64(user.Unverified), raw["verify"])
	assert.Contains(t, raw, "iat")
	assert.Contains(t, raw, "exp")
}

func TestJWTCodec_RejectsWrongPurpose(t *testing.T) {
	codec := testJWTCodec(t)

	// Well-signed refresh token presented as an access token
	token, err := codec.Sign(PurposeRefresh, "user-1", user.Verified)
	require.NoError(t, err)

	_, err = codec.Verify(token, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_RejectsTampered(t *testing.T) {
	codec := testJWTCodec(t)

	token, err := codec.Sign(PurposeAccess, "user-1", user.Unverified)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = codec.Verify(tampered, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_ExpiredToken(t *testing.T) {
	codec := NewJWTCodec(map[TokenPurpose]TokenConfig{
		PurposeAccess: {Secret: "access-secret-at-least-32-bytes-long!!", Lifetime: -time.Minute},
	})

	token, err := codec.Sign(PurposeAccess, "user-1", user.Verified)
	require.NoError(t, err)

	_, err = codec.Verify(token, PurposeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTCodec_MissingSecret(t *testing.T) {
	codec := NewJWTCodec(map[TokenPurpose]TokenConfig{
		PurposeAccess: {Secret: "", Lifetime: time.Minute},
	})

	_, err := codec.Sign(PurposeAccess, "user-1", user.Unverified)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = codec.Sign(PurposeRefresh, "user-1", user.Unverified)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestJWTCodec_VerifySnapshotIsCarried(t *testing.T) {
	codec := testJWTCodec(t)

	unverified, err := codec.Sign(PurposeAccess, "user-1", user.Unverified)
	require.NoError(t, err)
	verified, err := codec.Sign(PurposeAccess, "user-1", user.Verified)
	require.NoError(t, err)

	c1, err := codec.Verify(unverified, PurposeAccess)
	require.NoError(t, err)
	c2, err := codec.Verify(verified, PurposeAccess)
	require.NoError(t, err)

	assert.Equal(t, user.Unverified, c1.Verify)
	assert.Equal(t, user.Verified, c2.Verify)
}
