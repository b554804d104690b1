package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
	GetDevServerAddr() string
	GetDevServerSecret() string
}

type ClientConfig interface {
	GetAPIURL() string
	GetLoginRoute() string
	GetRequestTimeout() time.Duration
	GetDefaultTokenExpiry() time.Duration
}

type StoreConfig interface {
	GetSecondaryStore() string
	GetRedisAddr() string
	GetStorePassphrase() string
	GetAccessCookieTTL() time.Duration
	GetRefreshCookieTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	Client
	Store
}

func New() Config {
	return mainConfig{}
}
