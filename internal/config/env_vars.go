package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	environmentVar   = "ENV"
	appNameVar       = "APP_NAME"
	folderEnvVar     = "AUTH_DATA_FOLDER"
	logLevelVar      = "LOG_LEVEL"
	devServerAddrVar = "AUTH_DEVSERVER_ADDR"
	devServerKeyVar  = "AUTH_DEVSERVER_SECRET"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "authctl")
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(environmentVar, "DEV"))
}

// GetDataFolder is where the durable token store and the cookie file live.
func (EnvVars) GetDataFolder() string {
	if folder := GetEnv(folderEnvVar, ""); folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".authctl", "data")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetDevServerAddr() string {
	return GetEnv(devServerAddrVar, ":8000")
}

func (EnvVars) GetDevServerSecret() string {
	return GetEnv(devServerKeyVar, "dev-secret-change-me")
}

// GetEnv returns the environment value, then the config file value, then defaultValue.
func GetEnv(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value := fileValue(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetDuration parses a Go duration ("90s", "168h"). A bare integer is read as seconds.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if d, err := time.ParseDuration(raw + "s"); err == nil {
		return d
	}
	return defaultValue
}
