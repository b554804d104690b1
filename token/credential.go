package token

import (
	"time"
)

// Credential is an access/refresh token pair. It is either fully present or
// fully absent; Store.Save rejects a partial one.
type Credential struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// Valid reports whether both tokens are present
func (c Credential) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// ExpiresIn is the whole seconds until the access token's exp, or fallback
// when the token cannot be decoded.
func ExpiresIn(accessToken string, now time.Time, fallback time.Duration) int {
	claims, err := Decode(accessToken)
	if err != nil {
		return int(fallback / time.Second)
	}
	remaining := claims.ExpiresAt.Unix() - now.Unix()
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}
