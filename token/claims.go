package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// Claims is the part of an access token the client reads.
type Claims struct {
	Subject   string
	UserID    string
	Email     string
	TokenType string
	Tenant    string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Decode reads the claims of a compact JWT WITHOUT verifying its signature.
// The result is an optimistic client-side hint for routing and display, not a
// security boundary; the backend verifies every token it receives.
func Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.Decode] empty token")
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.Decode] %v", err)
	}
	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.Decode] error extracting claims")
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "[token.Decode] exp: %v", err)
	}
	if exp == nil {
		return nil, autherrors.Wrapf(autherrors.ErrMissingExpiry, "[token.Decode]")
	}

	c := &Claims{
		Subject:   utils.ScalarString(mc["sub"]),
		UserID:    utils.ScalarString(mc["user_id"]),
		Email:     utils.ScalarString(mc["email"]),
		TokenType: utils.ScalarString(mc["token_type"]),
		Tenant:    utils.ScalarString(mc["tenant"]),
		Roles:     utils.ToStringSlice(mc["roles"]),
		ExpiresAt: exp.Time,
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

// Identity is the subject, falling back to user_id
func (c *Claims) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// ValidAt reports whether exp is strictly after now, compared in whole seconds.
func (c *Claims) ValidAt(now time.Time) bool {
	return c.ExpiresAt.Unix() > now.Unix()
}
