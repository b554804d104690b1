package config

import (
	"strings"
	"time"
)

const (
	secondaryStoreVar  = "AUTH_SECONDARY_STORE"
	redisAddrVar       = "AUTH_REDIS_ADDR"
	storePassphraseVar = "AUTH_STORE_PASSPHRASE"
	accessCookieTTLVar = "AUTH_ACCESS_COOKIE_TTL"
	refreshCookieVar   = "AUTH_REFRESH_COOKIE_TTL"
)

const (
	SecondaryStoreCookie = "cookie"
	SecondaryStoreRedis  = "redis"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetSecondaryStore() string {
	return strings.ToLower(GetEnv(secondaryStoreVar, SecondaryStoreCookie))
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

// GetStorePassphrase enables at-rest encryption of the durable store when set.
func (Store) GetStorePassphrase() string {
	return GetEnv(storePassphraseVar, "")
}

// GetAccessCookieTTL is the fallback lifetime of the access-token cookie when
// the token's own exp claim cannot be read.
func (Store) GetAccessCookieTTL() time.Duration {
	return GetDuration(accessCookieTTLVar, 7*24*time.Hour)
}

func (Store) GetRefreshCookieTTL() time.Duration {
	return GetDuration(refreshCookieVar, 30*24*time.Hour)
}
