// Package config reads the server's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/spencer-p/surfdash/pkg/logger"
)

type Config struct {
	Port   string `default:"8080" validate:"numeric"`
	Prefix string `default:"/" validate:"startswith=/"`

	LogLevel  string `split_words:"true" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `split_words:"true" default:"text" validate:"oneof=text json"`

	SpotsFile   string `split_words:"true"`
	DefaultSpot string `split_words:"true" default:"Tamarack" validate:"required"`
	Timezone    string `default:"America/Los_Angeles" validate:"timezone"`

	// CachePath is the SQLite cache file. Empty keeps the cache in memory.
	CachePath     string        `split_words:"true" default:"surfdash_cache.db"`
	FetchTimeout  time.Duration `split_words:"true" default:"20s" validate:"gt=0"`
	ForecastHours int           `split_words:"true" default:"168" validate:"gte=24,lte=384"`
	BackupBuoys   []string      `split_words:"true" default:"46232,46086,46069" validate:"dive,numeric"`

	// RateLimit is requests per second allowed from one client.
	RateLimit float64 `split_words:"true" default:"5" validate:"gt=0"`
	RateBurst int     `split_words:"true" default:"10" validate:"gte=1"`

	// TrustProxy keys clients on X-Forwarded-For. Only set it behind a proxy
	// that overwrites the header.
	TrustProxy bool `split_words:"true"`

	// ReportInterval is how often reports are republished. Zero disables it.
	ReportInterval time.Duration `split_words:"true" default:"0" validate:"gte=0"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`

	SessionKey    string `split_words:"true"`
	EncryptionKey string `split_words:"true"`
	KoDataPath    string `envconfig:"KO_DATA_PATH" default:"."`
}

var validate = validator.New()

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to read .env: %v", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// Zone loads the configured time zone.
func (c *Config) Zone() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) Horizon() time.Duration {
	return time.Duration(c.ForecastHours) * time.Hour
}

// Reports reports whether surf reports are published on a schedule.
func (c *Config) Reports() bool {
	return c.ReportInterval > 0
}
