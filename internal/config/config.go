package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log  LogConfig  `yaml:"log"`
	Auth AuthConfig `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL        string `yaml:"ttl"`
		CoverImage string `yaml:"cover_image"`
	} `yaml:"quiz"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
	SessionTTL string `yaml:"session_ttl"`
	// SignupAutoLogin is a pointer so an explicit false survives defaulting.
	SignupAutoLogin *bool `yaml:"signup_auto_login"`
	BcryptCost      int   `yaml:"bcrypt_cost"`
}

// AutoLogin reports whether a successful signup establishes a session.
func (a AuthConfig) AutoLogin() bool {
	return a.SignupAutoLogin == nil || *a.SignupAutoLogin
}

// Load reads YAML config from path. An empty path yields defaults only.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "quizweb_session"
	}
	if cfg.Auth.SessionTTL == "" {
		cfg.Auth.SessionTTL = "720h"
	}
	if cfg.Quiz.CoverImage == "" {
		cfg.Quiz.CoverImage = "/placeholder.svg"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
