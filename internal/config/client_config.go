package config

import (
	"strings"
	"time"
)

const (
	apiURLVar             = "AUTH_API_URL"
	loginRouteVar         = "AUTH_LOGIN_ROUTE"
	requestTimeoutVar     = "AUTH_REQUEST_TIMEOUT"
	defaultTokenExpiryVar = "AUTH_DEFAULT_TOKEN_EXPIRY"
)

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIURL returns the backend base URL, always with a trailing slash.
func (Client) GetAPIURL() string {
	return NormalizeBaseURL(GetEnv(apiURLVar, "http://localhost:8000/api/"))
}

func (Client) GetLoginRoute() string {
	return GetEnv(loginRouteVar, "/auth/login")
}

func (Client) GetRequestTimeout() time.Duration {
	return GetDuration(requestTimeoutVar, 10*time.Second)
}

// GetDefaultTokenExpiry is used when an access token carries no readable exp claim.
func (Client) GetDefaultTokenExpiry() time.Duration {
	return GetDuration(defaultTokenExpiryVar, time.Hour)
}

func NormalizeBaseURL(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
