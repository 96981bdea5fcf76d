package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Port          int           `yaml:"port"`
	JWTSecret     string        `yaml:"jwt_secret"`
	SecureCookies bool          `yaml:"secure_cookies"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieDomain  string        `yaml:"cookie_domain"`
}

// CallbackConfig covers the public endpoint the payment gateway posts to.
type CallbackConfig struct {
	Port          int    `yaml:"port"`
	StatusPageURL string `yaml:"status_page_url"` // where callback results redirect
}

type PaymentConfig struct {
	FullPrice string `yaml:"full_price"` // decimal string, e.g. "649.00"
	Currency  string `yaml:"currency"`
}

type AccessConfig struct {
	// ClearRenewDateOnRevoke decides whether an administrative revoke wipes
	// the stale renew date or leaves it behind as history.
	ClearRenewDateOnRevoke bool          `yaml:"clear_renew_date_on_revoke"`
	ExpiryCheckInterval    time.Duration `yaml:"expiry_check_interval"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Web      WebConfig      `yaml:"web"`
	Callback CallbackConfig `yaml:"callback"`
	Payment  PaymentConfig  `yaml:"payment"`
	Access   AccessConfig   `yaml:"access"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Callback.Port <= 0 {
		cfg.Callback.Port = 8081
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 24 * time.Hour
	}
	if cfg.Access.ExpiryCheckInterval <= 0 {
		cfg.Access.ExpiryCheckInterval = time.Hour
	}
	if cfg.Payment.FullPrice == "" {
		cfg.Payment.FullPrice = "649.00"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "SAR"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Web.JWTSecret == "" {
		return nil, errors.New("web.jwt_secret is required")
	}
	if cfg.Callback.StatusPageURL == "" {
		return nil, errors.New("callback.status_page_url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
