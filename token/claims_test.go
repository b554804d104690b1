package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/tokentest"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	exp := time.Unix(2_000_000_000, 0)
	raw := tokentest.Access(exp, "user-1", jwtlib.MapClaims{
		"email":  "a@b.c",
		"roles":  []string{"admin", "viewer"},
		"tenant": "t1",
	})

	c, err := token.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "a@b.c", c.Email)
	require.Equal(t, []string{"admin", "viewer"}, c.Roles)
	require.Equal(t, "t1", c.Tenant)
	require.True(t, c.ExpiresAt.Equal(exp))
	require.True(t, c.IssuedAt.Equal(exp.Add(-time.Hour)))
}

func TestDecode_NumericUserIDWithoutSubject(t *testing.T) {
	raw := tokentest.Sign(jwtlib.MapClaims{"user_id": 42, "exp": time.Now().Add(time.Hour).Unix()})

	c, err := token.Decode(raw)
	require.NoError(t, err)
	require.Empty(t, c.Subject)
	require.Equal(t, "42", c.Identity())
}

func TestDecode_IgnoresSignature(t *testing.T) {
	raw := tokentest.Access(time.Now().Add(time.Hour), "u")
	tampered := raw[:len(raw)-4] + "AAAA"

	_, err := token.Decode(tampered)
	require.NoError(t, err)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "", want: autherrors.ErrInvalidToken},
		{name: "garbage", raw: "not-a-jwt", want: autherrors.ErrInvalidToken},
		{name: "two segments", raw: "abc.def", want: autherrors.ErrInvalidToken},
		{name: "string exp", raw: tokentest.Sign(jwtlib.MapClaims{"exp": "tomorrow"}), want: autherrors.ErrInvalidToken},
		{name: "no exp", raw: tokentest.Sign(jwtlib.MapClaims{"sub": "u"}), want: autherrors.ErrMissingExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := token.Decode(tt.raw)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClaims_ValidAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 500_000_000)

	c := &token.Claims{ExpiresAt: time.Unix(1_700_000_001, 0)}
	require.True(t, c.ValidAt(now))

	c.ExpiresAt = time.Unix(1_700_000_000, 0)
	require.False(t, c.ValidAt(now), "exp equal to now is expired")

	c.ExpiresAt = time.Unix(1_699_999_999, 0)
	require.False(t, c.ValidAt(now))
}

func TestExpiresIn(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	require.Equal(t, 900, token.ExpiresIn(tokentest.Access(now.Add(15*time.Minute), "u"), now, time.Hour))
	require.Equal(t, 3600, token.ExpiresIn("opaque", now, time.Hour))
	require.Equal(t, 0, token.ExpiresIn(tokentest.Access(now.Add(-time.Minute), "u"), now, time.Hour))
}

func TestCredential_Valid(t *testing.T) {
	require.True(t, token.Credential{AccessToken: "a", RefreshToken: "r"}.Valid())
	require.False(t, token.Credential{AccessToken: "a"}.Valid())
	require.False(t, token.Credential{RefreshToken: "r"}.Valid())
	require.False(t, token.Credential{}.Valid())
}
