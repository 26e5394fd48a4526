package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	apiBaseURLVar = "SYNTOPIA_API_BASE_URL"
	appNameVar    = "APP_NAME"
	dataDirVar    = "SYNTOPIA_DATA_DIR"
	timeoutVar    = "SYNTOPIA_HTTP_TIMEOUT"
	passphraseVar = "SYNTOPIA_STORE_PASSPHRASE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8081/api/v1")
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "SYNtopia")
}

func (EnvVars) GetDataDir() string {
	if dir := os.Getenv(dataDirVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".syntopia"
	}
	return filepath.Join(home, ".syntopia")
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	raw := GetEnv(timeoutVar, "10s")
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetStorePassphrase returns the passphrase used to encrypt the session
// store at rest. Empty means the store is written as plain JSON.
func (EnvVars) GetStorePassphrase() string {
	return GetEnv(passphraseVar, "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
