package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const configFileVar = "AUTH_CONFIG_FILE"

// File mirrors the environment variables for users who prefer a config file.
// Environment variables always win over file values.
type File struct {
	Env              string `yaml:"env,omitempty"`
	AppName          string `yaml:"app_name,omitempty"`
	DataFolder       string `yaml:"data_folder,omitempty"`
	LogLevel         string `yaml:"log_level,omitempty"`
	APIURL           string `yaml:"api_url,omitempty"`
	LoginRoute       string `yaml:"login_route,omitempty"`
	RequestTimeout   string `yaml:"request_timeout,omitempty"`
	TokenExpiry      string `yaml:"default_token_expiry,omitempty"`
	SecondaryStore   string `yaml:"secondary_store,omitempty"`
	RedisAddr        string `yaml:"redis_addr,omitempty"`
	StorePassphrase  string `yaml:"store_passphrase,omitempty"`
	AccessCookieTTL  string `yaml:"access_cookie_ttl,omitempty"`
	RefreshCookieTTL string `yaml:"refresh_cookie_ttl,omitempty"`
	DevServerAddr    string `yaml:"devserver_addr,omitempty"`
	DevServerSecret  string `yaml:"devserver_secret,omitempty"`
}

var (
	loaded   File
	loadOnce sync.Once
	loadErr  error
)

// LoadFile reads the config file once. A missing file is not an error.
func LoadFile() error {
	loadOnce.Do(func() {
		loaded, loadErr = ReadFile(FilePath())
	})
	return loadErr
}

// FilePath returns AUTH_CONFIG_FILE or ~/.authctl/authctl.yaml.
func FilePath() string {
	if p := os.Getenv(configFileVar); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "authctl.yaml"
	}
	return filepath.Join(home, ".authctl", "authctl.yaml")
}

func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return f, nil
}

func (f File) lookup(name string) string {
	switch name {
	case environmentVar:
		return f.Env
	case appNameVar:
		return f.AppName
	case folderEnvVar:
		return f.DataFolder
	case logLevelVar:
		return f.LogLevel
	case devServerAddrVar:
		return f.DevServerAddr
	case devServerKeyVar:
		return f.DevServerSecret
	case apiURLVar:
		return f.APIURL
	case loginRouteVar:
		return f.LoginRoute
	case requestTimeoutVar:
		return f.RequestTimeout
	case defaultTokenExpiryVar:
		return f.TokenExpiry
	case secondaryStoreVar:
		return f.SecondaryStore
	case redisAddrVar:
		return f.RedisAddr
	case storePassphraseVar:
		return f.StorePassphrase
	case accessCookieTTLVar:
		return f.AccessCookieTTL
	case refreshCookieVar:
		return f.RefreshCookieTTL
	}
	return ""
}

func fileValue(name string) string {
	return loaded.lookup(name)
}
