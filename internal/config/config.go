package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	GitHubConfig
}

type EnvConfig interface {
	GetAPIBaseURL() string
	GetAppName() string
	GetDataDir() string
	GetHTTPTimeout() time.Duration
	GetStorePassphrase() string
	GetEnv() string
}

type GitHubConfig interface {
	GetGitHubClientID() string
	GetGitHubRedirectURI() string
}

type mainConfig struct {
	EnvVars
	GitHub
}

func New() Config {
	// A missing .env file is fine, the environment is authoritative.
	_ = godotenv.Load()
	return mainConfig{}
}
