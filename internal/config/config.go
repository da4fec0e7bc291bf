package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the tracked page, credentials, analytics knobs, and storage.
type Config struct {
	Page        PageConfig        `yaml:"page"`
	Credentials CredentialsConfig `yaml:"credentials"`
	API         APIConfig         `yaml:"api"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type PageConfig struct {
	ID string `yaml:"id"`
}

type CredentialsConfig struct {
	// Graph API page access token. If empty, read from env FB_ACCESS_TOKEN
	AccessToken string `yaml:"accessToken"`
}

type APIConfig struct {
	Version string `yaml:"version"`
}

type AnalyticsConfig struct {
	// Hours east of UTC used when bucketing posts into local days and slots
	UTCOffsetHours int `yaml:"utcOffsetHours"`
	// Posts younger than this many days keep receiving daily snapshots
	TrackDays int `yaml:"trackDays"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Page:        PageConfig{ID: ""},
		Credentials: CredentialsConfig{AccessToken: ""},
		API:         APIConfig{Version: "v23.0"},
		Analytics:   AnalyticsConfig{UTCOffsetHours: 8, TrackDays: 30},
		Storage:     StorageConfig{DBPath: "./pagepulse.db"},
		Metrics:     MetricsConfig{Addr: ":9100"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.AccessToken == "" {
		c.Credentials.AccessToken = os.Getenv("FB_ACCESS_TOKEN")
	}
	if c.Page.ID == "" {
		c.Page.ID = os.Getenv("FB_PAGE_ID")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
