package app

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	DBPath          string        `yaml:"db_path"`
	MediaDir        string        `yaml:"media_dir"`
	TemplateDir     string        `yaml:"template_dir"`
	SessionLifetime time.Duration `yaml:"-"`
	CacheTTL        time.Duration `yaml:"-"`
	Development     bool          `yaml:"development"`

	SessionLifetimeHours int `yaml:"session_lifetime_hours"`
	CacheTTLSeconds      int `yaml:"cache_ttl_seconds"`
}

func defaults() Config {
	return Config{
		Addr:                 ":8080",
		DBPath:               "blog.db",
		MediaDir:             "media",
		TemplateDir:          "web/templates",
		SessionLifetimeHours: 24,
		CacheTTLSeconds:      20,
	}
}

// Load builds the configuration from an optional YAML file with
// environment variables applied on top. A missing file is not an error;
// path may be empty to skip the file entirely.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}
	cfg.applyEnvOverrides()
	cfg.SessionLifetime = time.Duration(cfg.SessionLifetimeHours) * time.Hour
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Addr = getenv("ADDR", c.Addr)
	c.DBPath = getenv("DB_PATH", c.DBPath)
	c.MediaDir = getenv("MEDIA_DIR", c.MediaDir)
	c.TemplateDir = getenv("TEMPLATE_DIR", c.TemplateDir)
	if v := os.Getenv("SESSION_LIFETIME_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SessionLifetimeHours = n
		}
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv("DEVELOPMENT"); v != "" {
		c.Development = v == "1" || v == "true"
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
