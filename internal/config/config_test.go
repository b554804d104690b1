package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv(apiURLVar, "")
	t.Setenv(requestTimeoutVar, "")
	t.Setenv(accessCookieTTLVar, "")
	t.Setenv(refreshCookieVar, "")

	c := New()
	require.Equal(t, "http://localhost:8000/api/", c.GetAPIURL())
	require.Equal(t, "/auth/login", c.GetLoginRoute())
	require.Equal(t, 10*time.Second, c.GetRequestTimeout())
	require.Equal(t, time.Hour, c.GetDefaultTokenExpiry())
	require.Equal(t, 7*24*time.Hour, c.GetAccessCookieTTL())
	require.Equal(t, 30*24*time.Hour, c.GetRefreshCookieTTL())
	require.Equal(t, SecondaryStoreCookie, c.GetSecondaryStore())
}

func TestAPIURLAlwaysHasTrailingSlash(t *testing.T) {
	t.Setenv(apiURLVar, "https://api.example.com/v1")
	require.Equal(t, "https://api.example.com/v1/", New().GetAPIURL())
}

func TestGetDuration(t *testing.T) {
	t.Run("go duration", func(t *testing.T) {
		t.Setenv(requestTimeoutVar, "250ms")
		require.Equal(t, 250*time.Millisecond, New().GetRequestTimeout())
	})

	t.Run("bare seconds", func(t *testing.T) {
		t.Setenv(defaultTokenExpiryVar, "3600")
		require.Equal(t, time.Hour, New().GetDefaultTokenExpiry())
	})

	t.Run("garbage falls back", func(t *testing.T) {
		t.Setenv(requestTimeoutVar, "soon")
		require.Equal(t, 10*time.Second, New().GetRequestTimeout())
	})
}

func TestFileValuesAreOverriddenByEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example.com/api\nsecondary_store: redis\nlogin_route: /login\n"), 0o600))

	f, err := ReadFile(path)
	require.NoError(t, err)

	previous := loaded
	loaded = f
	t.Cleanup(func() { loaded = previous })

	t.Setenv(apiURLVar, "")
	t.Setenv(secondaryStoreVar, "")
	t.Setenv(loginRouteVar, "/from-env")

	c := New()
	require.Equal(t, "https://file.example.com/api/", c.GetAPIURL())
	require.Equal(t, SecondaryStoreRedis, c.GetSecondaryStore())
	require.Equal(t, "/from-env", c.GetLoginRoute())
}

func TestReadFile_MissingIsNotAnError(t *testing.T) {
	f, err := ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, File{}, f)
}

func TestReadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unterminated"), 0o600))

	_, err := ReadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse the config file")
}
