package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/pkg/config"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "giftbox", ExpirationMinutes: 30}

func TestMintThenParse(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	userID := uuid.New()

	token, err := MintAccessToken(testCfg, now, AccessTokenPayload{UserID: userID, Email: "asha@example.com", JTI: "jti-1"})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, now.Add(30*time.Minute), claims.ExpiresAt.Time.UTC())
}

func TestParseRejectsTampering(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, token+"x")
	assert.Error(t, err)

	other := testCfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestExpiredTokenStillYieldsSessionID(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(testCfg, token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestMintValidatesInput(t *testing.T) {
	_, err := MintAccessToken(testCfg, time.Now(), AccessTokenPayload{})
	assert.ErrorIs(t, err, ErrNoSubject)

	_, err = MintAccessToken(config.JWTConfig{Secret: "s"}, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrMisconfigured)
}
