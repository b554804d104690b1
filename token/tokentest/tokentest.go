// Package tokentest builds access tokens for tests.
package tokentest

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const signingKey = "tokentest-signing-key"

// Access returns an HS256 token expiring at exp for subject. Extra claims
// override the defaults.
func Access(exp time.Time, subject string, extra ...jwtlib.MapClaims) string {
	claims := jwtlib.MapClaims{
		"sub":        subject,
		"user_id":    subject,
		"token_type": "access",
		"iat":        exp.Add(-time.Hour).Unix(),
		"exp":        exp.Unix(),
	}
	for _, e := range extra {
		for k, v := range e {
			claims[k] = v
		}
	}
	return Sign(claims)
}

// Sign signs arbitrary claims
func Sign(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return signed
}
