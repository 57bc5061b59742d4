// Package config loads service configuration from an optional config file with
// environment overrides. Missing source credentials are a startup error, not a
// per-request one.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Addr     string
	LogLevel string

	Provider ProviderConfig
	Forms    FormsConfig
	Snapshot SnapshotConfig

	// ClearedTTLDays downgrades cleared identities older than this to expired.
	ClearedTTLDays int

	Redis RedisConfig
}

// ProviderConfig addresses the verification provider's paginated endpoints.
type ProviderConfig struct {
	BaseURL  string
	APIKey   string
	PageSize int

	PageTimeout time.Duration
	MaxRetries  int
}

// FormsConfig addresses the form-submission export.
type FormsConfig struct {
	URL   string
	Token string
}

// SnapshotConfig addresses the hosted-repo CSV snapshots.
type SnapshotConfig struct {
	BaseURL       string
	Token         string
	Owner         string
	Repo          string
	PersonsPath   string
	BusinessPath  string
	ProjectsPath  string
}

// RedisConfig configures the optional snapshot-cache backend. Empty URL means
// the in-memory cache is used.
type RedisConfig struct {
	URL string
}

// Load reads config.yaml from configPath (optional) and applies KYCLENS_*
// environment overrides.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("KYCLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("provider.base_url", "https://app.withpersona.com/api/v1")
	v.SetDefault("provider.page_size", 100)
	v.SetDefault("provider.page_timeout", "15s")
	v.SetDefault("provider.max_retries", 2)
	v.SetDefault("snapshot.base_url", "https://api.github.com")
	v.SetDefault("cleared_ttl_days", 365)

	// Flat env names for the nested keys, e.g. KYCLENS_PROVIDER_API_KEY.
	for _, key := range []string{
		"addr", "log_level", "cleared_ttl_days",
		"provider.base_url", "provider.api_key", "provider.page_size",
		"provider.page_timeout", "provider.max_retries",
		"forms.url", "forms.token",
		"snapshot.base_url", "snapshot.token", "snapshot.owner", "snapshot.repo",
		"snapshot.persons_path", "snapshot.business_path", "snapshot.projects_path",
		"redis.url",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; env vars and defaults carry it.
	}

	cfg := Config{
		Addr:     v.GetString("addr"),
		LogLevel: v.GetString("log_level"),
		Provider: ProviderConfig{
			BaseURL:     v.GetString("provider.base_url"),
			APIKey:      v.GetString("provider.api_key"),
			PageSize:    v.GetInt("provider.page_size"),
			PageTimeout: v.GetDuration("provider.page_timeout"),
			MaxRetries:  v.GetInt("provider.max_retries"),
		},
		Forms: FormsConfig{
			URL:   v.GetString("forms.url"),
			Token: v.GetString("forms.token"),
		},
		Snapshot: SnapshotConfig{
			BaseURL:      v.GetString("snapshot.base_url"),
			Token:        v.GetString("snapshot.token"),
			Owner:        v.GetString("snapshot.owner"),
			Repo:         v.GetString("snapshot.repo"),
			PersonsPath:  v.GetString("snapshot.persons_path"),
			BusinessPath: v.GetString("snapshot.business_path"),
			ProjectsPath: v.GetString("snapshot.projects_path"),
		},
		ClearedTTLDays: v.GetInt("cleared_ttl_days"),
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required (KYCLENS_PROVIDER_API_KEY)")
	}
	if c.Forms.URL != "" && c.Forms.Token == "" {
		return fmt.Errorf("forms.token is required when forms.url is set")
	}
	if c.Snapshot.Owner == "" || c.Snapshot.Repo == "" {
		return fmt.Errorf("snapshot.owner and snapshot.repo are required")
	}
	if c.ClearedTTLDays <= 0 {
		return fmt.Errorf("cleared_ttl_days must be positive, got %d", c.ClearedTTLDays)
	}
	return nil
}
