// internal/config/config.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the proxy service.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	Port               int           `mapstructure:"PORT"`
	GithubClientID     string        `mapstructure:"GITHUB_CLIENT_ID"`
	GithubClientSecret string        `mapstructure:"GITHUB_CLIENT_SECRET"`
	GithubOAuthScopes  []string      `mapstructure:"GITHUB_OAUTH_SCOPES"`
	GithubAPIURL       string        `mapstructure:"GITHUB_API_URL"`
	ReposPerPage       int           `mapstructure:"REPOS_PER_PAGE"`
	AllowedOrigins     []string      `mapstructure:"ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	ReviewAPIKey       string        `mapstructure:"REVIEW_API_KEY"`
	ReviewBaseURL      string        `mapstructure:"REVIEW_BASE_URL"`
	ReviewModel        string        `mapstructure:"REVIEW_MODEL"`
	ReviewTimeout      time.Duration `mapstructure:"REVIEW_TIMEOUT"`
	ReviewMaxRetries   int           `mapstructure:"REVIEW_MAX_RETRIES"`
}

// ClientConfig holds the configuration of the terminal dashboard.
type ClientConfig struct {
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	ServerURL       string `mapstructure:"DASHBOARD_SERVER_URL"`
	GithubToken     string `mapstructure:"GITHUB_TOKEN"`
	PreferencesPath string `mapstructure:"DASHBOARD_PREFERENCES"`
}

var serviceKeys = []string{
	"LOG_LEVEL", "PORT", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_OAUTH_SCOPES",
	"GITHUB_API_URL", "REPOS_PER_PAGE", "ALLOWED_ORIGINS", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"REVIEW_API_KEY", "REVIEW_BASE_URL", "REVIEW_MODEL", "REVIEW_TIMEOUT", "REVIEW_MAX_RETRIES",
}

var clientKeys = []string{"LOG_LEVEL", "DASHBOARD_SERVER_URL", "GITHUB_TOKEN", "DASHBOARD_PREFERENCES"}

// LoadConfig reads the service configuration from a .env file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := newViper(serviceKeys)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 5000)
	v.SetDefault("GITHUB_OAUTH_SCOPES", "repo,user")
	v.SetDefault("REPOS_PER_PAGE", 10)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("REVIEW_MODEL", "gpt-4o-mini")
	v.SetDefault("REVIEW_TIMEOUT", "60s")
	v.SetDefault("REVIEW_MAX_RETRIES", 3)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.GithubOAuthScopes = splitList(cfg.GithubOAuthScopes)
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	// Validate required fields
	if cfg.GithubClientID == "" {
		return nil, errors.New("GITHUB_CLIENT_ID is a required configuration field")
	}
	if cfg.GithubClientSecret == "" {
		return nil, errors.New("GITHUB_CLIENT_SECRET is a required configuration field")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("PORT must be between 1 and 65535")
	}
	if cfg.ReposPerPage < 1 || cfg.ReposPerPage > 100 {
		return nil, errors.New("REPOS_PER_PAGE must be between 1 and 100")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be a positive duration (e.g. 60s)")
	}

	return &cfg, nil
}

// LoadClientConfig reads the dashboard configuration. Values already set on
// the returned viper instance by flag bindings take precedence.
func LoadClientConfig(v *viper.Viper) (*ClientConfig, error) {
	if v == nil {
		v = newViper(clientKeys)
	} else {
		bindKeys(v, clientKeys)
	}

	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("DASHBOARD_SERVER_URL", "http://localhost:5000")
	v.SetDefault("DASHBOARD_PREFERENCES", defaultPreferencesPath())

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.ServerURL == "" {
		return nil, errors.New("DASHBOARD_SERVER_URL must not be empty")
	}

	return &cfg, nil
}

// NewClientViper returns a viper instance prepared for LoadClientConfig, so
// that command line flags can be bound before loading.
func NewClientViper() *viper.Viper {
	return newViper(clientKeys)
}

func newViper(keys []string) *viper.Viper {
	v := viper.New()

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v, keys)
	return v
}

// bindKeys makes keys without defaults visible to Unmarshal.
func bindKeys(v *viper.Viper, keys []string) {
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func defaultPreferencesPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dashboard-preferences.yaml"
	}
	return filepath.Join(dir, "repo-dashboard", "preferences.yaml")
}
