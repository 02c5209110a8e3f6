package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig describes one text-completion provider. Providers are
// tried in the order they are listed; the first one with a non-empty API
// key is used for extraction.
type ProviderConfig struct {
	Name           string `yaml:"name"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Extract struct {
		Providers       []ProviderConfig `yaml:"providers"`
		CacheTTLSeconds int              `yaml:"cache_ttl_seconds"`
		RatePerSecond   float64          `yaml:"rate_per_second"`
		RateBurst       int              `yaml:"rate_burst"`
	} `yaml:"extract"`

	Reminders struct {
		CheckIntervalSeconds int `yaml:"check_interval_seconds"`
		MaxConcurrentNotify  int `yaml:"max_concurrent_notify"`
		RetentionDays        int `yaml:"retention_days"`
		SyncIntervalMinutes  int `yaml:"sync_interval_minutes"`
		SyncHorizonHours     int `yaml:"sync_horizon_hours"`
	} `yaml:"reminders"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"google"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// Load reads the YAML config from path, expanding ${ENV_VAR} placeholders.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/buddy.db"
	}
	if len(c.Extract.Providers) == 0 {
		c.Extract.Providers = []ProviderConfig{
			{
				Name:    "xai",
				BaseURL: "https://api.x.ai/v1",
				Model:   "grok-3-mini",
				APIKey:  os.Getenv("XAI_API_KEY"),
			},
			{
				Name:    "openai",
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
				APIKey:  os.Getenv("OPENAI_API_KEY"),
			},
		}
	}
	if c.Extract.RatePerSecond == 0 {
		c.Extract.RatePerSecond = 2.0
	}
	if c.Extract.RateBurst == 0 {
		c.Extract.RateBurst = 5
	}
	if c.Reminders.CheckIntervalSeconds <= 0 {
		c.Reminders.CheckIntervalSeconds = 30
	}
	if c.Reminders.MaxConcurrentNotify <= 0 {
		c.Reminders.MaxConcurrentNotify = 10
	}
	if c.Reminders.RetentionDays <= 0 {
		c.Reminders.RetentionDays = 14
	}
	if c.Reminders.SyncIntervalMinutes <= 0 {
		c.Reminders.SyncIntervalMinutes = 15
	}
	if c.Reminders.SyncHorizonHours <= 0 {
		c.Reminders.SyncHorizonHours = 48
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = "data/backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 7
	}
}

// CheckInterval is how often the reminder poller scans for due reminders.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Reminders.CheckIntervalSeconds) * time.Second
}

// Retention is how long dismissed reminders are kept before cleanup.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Reminders.RetentionDays) * 24 * time.Hour
}

// SyncInterval is how often calendar events are scanned for missing reminders.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Reminders.SyncIntervalMinutes) * time.Minute
}

// SyncHorizon is how far ahead the calendar sync looks.
func (c *Config) SyncHorizon() time.Duration {
	return time.Duration(c.Reminders.SyncHorizonHours) * time.Hour
}

// BackupInterval is how often database snapshots are taken.
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// BackupRetention is how long database snapshots are kept.
func (c *Config) BackupRetention() time.Duration {
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// ExtractCacheTTL is how long extraction results are cached in Redis.
func (c *Config) ExtractCacheTTL() time.Duration {
	return time.Duration(c.Extract.CacheTTLSeconds) * time.Second
}
