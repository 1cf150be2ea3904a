// Package config provides configuration loading and validation for the CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultFiscalYear  = 2024
	defaultWindowDays  = 30
	defaultMinStatus   = "expires soon"
	defaultLogMode     = "development"
	defaultDBSchema    = "training_audit"
	defaultDBTimeout   = 12 * time.Second
	defaultCachePrefix = "training-audit"
	defaultCacheTTL    = 24 * time.Hour
	defaultCacheWait   = 5 * time.Second
)

// DefaultCourses are the courses the fiscal year report covers when none are configured.
var DefaultCourses = []string{
	"Electrical Safety for Labs",
	"X-Ray Safety",
	"Laboratory Safety Training",
}

// Config is the full CLI configuration. Values come from defaults, then an
// optional YAML file, then the environment, then command line flags.
type Config struct {
	Input      string   `yaml:"input" validate:"required"`
	OutputDir  string   `yaml:"output_dir" validate:"required"`
	FiscalYear int      `yaml:"fiscal_year" validate:"min=1,max=9999"`
	Courses    []string `yaml:"courses" validate:"required,min=1,dive,required"`

	// AsOf is the reference date in MM/DD/YYYY. Empty means today.
	AsOf       string `yaml:"as_of"`
	WindowDays int    `yaml:"window_days" validate:"min=1"`
	AlertsPath string `yaml:"alerts"`
	MinStatus  string `yaml:"min_status" validate:"oneof='expires soon' expires_soon expired"`
	LogMode    string `yaml:"log_mode" validate:"oneof=dev development prod production"`

	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
}

// DatabaseConfig controls storing audit runs in Postgres.
type DatabaseConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url" validate:"required_if=Enabled true"`
	Schema  string        `yaml:"schema" validate:"required"`
	Tag     string        `yaml:"tag"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CacheConfig controls publishing report artifacts to Redis.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url" validate:"required_if=Enabled true"`
	Prefix  string        `yaml:"prefix" validate:"required"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Input:      "data/trainings.txt",
		OutputDir:  "results",
		FiscalYear: defaultFiscalYear,
		Courses:    append([]string{}, DefaultCourses...),
		WindowDays: defaultWindowDays,
		MinStatus:  defaultMinStatus,
		LogMode:    defaultLogMode,
		Database: DatabaseConfig{
			Schema:  defaultDBSchema,
			Timeout: defaultDBTimeout,
		},
		Cache: CacheConfig{
			Prefix:  defaultCachePrefix,
			TTL:     defaultCacheTTL,
			Timeout: defaultCacheWait,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills connection URLs that the file left empty from the environment.
func (c *Config) ApplyEnv() {
	if c.Database.URL == "" {
		c.Database.URL = envFirst("TRAINING_AUDIT_DB_URL", "DATABASE_URL")
	}
	if c.Cache.URL == "" {
		c.Cache.URL = envFirst("TRAINING_AUDIT_REDIS_URL", "REDIS_URL")
	}
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
