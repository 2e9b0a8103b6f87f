package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/singroom-server/internal/identity"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{Secret: []byte("secret"), Issuer: "singroom", Audience: "clients", TTL: time.Minute}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	ident := identity.Identity{Name: "alice", Kind: identity.KindGuest, Level: 7}

	token, err := GenerateToken(cfg, "jti-1", ident)
	require.NoError(t, err)

	claims, err := ValidateToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, int(identity.KindGuest), claims.Kind)
	assert.Equal(t, 7, claims.Level)
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := testJWTConfig()
	ident := identity.Identity{Name: "alice"}

	expired := *cfg
	expired.TTL = -time.Minute
	token, err := GenerateToken(&expired, "jti", ident)
	require.NoError(t, err)
	_, err = ValidateToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAud := *cfg
	otherAud.Audience = "someone-else"
	token, err = GenerateToken(&otherAud, "jti", ident)
	require.NoError(t, err)
	_, err = ValidateToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err = GenerateToken(cfg, "", ident)
	require.NoError(t, err)
	_, err = ValidateToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey := *cfg
	wrongKey.Secret = []byte("other")
	token, err = GenerateToken(&wrongKey, "jti", ident)
	require.NoError(t, err)
	_, err = ValidateToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
