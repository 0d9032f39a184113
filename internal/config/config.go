// Package config resolves the immutable run configuration, either from the
// environment or from a YAML file. Configuration is loaded once before any
// fetch begins and never mutated during a run.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"

	"epl_v4/etl/internal/store"
)

// Config holds all application configuration.
type Config struct {
	// football-data.org API
	APIToken    string        `envconfig:"FOOTBALL_API_TOKEN"`
	APIBaseURL  string        `envconfig:"FOOTBALL_API_BASE_URL" default:"https://api.football-data.org/v4"`
	Competition string        `envconfig:"FOOTBALL_COMPETITION" default:"PL"`
	Season      int           `envconfig:"FOOTBALL_SEASON" default:"2025"`
	APITimeout  time.Duration `envconfig:"FOOTBALL_API_TIMEOUT" default:"30s"`

	// Fetch pacing and retries
	RequestsPerMin      float64       `envconfig:"ETL_REQUESTS_PER_MIN" default:"10"`
	RetriesPerTeam      int           `envconfig:"ETL_RETRIES_PER_TEAM" default:"3"`
	SleepBetweenRetries time.Duration `envconfig:"ETL_SLEEP_BETWEEN_RETRIES" default:"2s"`

	// Store
	StoreKind  string `envconfig:"STORE_KIND" default:"duckdb"`
	DuckDBPath string `envconfig:"DUCKDB_PATH" default:"data/football.duckdb"`

	WarehouseHost     string `envconfig:"WAREHOUSE_HOST" default:"localhost"`
	WarehousePort     int    `envconfig:"WAREHOUSE_PORT" default:"5432"`
	WarehouseName     string `envconfig:"WAREHOUSE_NAME" default:"football"`
	WarehouseUser     string `envconfig:"WAREHOUSE_USER" default:"football_etl"`
	WarehousePassword string `envconfig:"WAREHOUSE_PASSWORD" default:""`
	WarehouseSSLMode  string `envconfig:"WAREHOUSE_SSL_MODE" default:"disable"`

	// Payload cache
	CacheEnabled  bool          `envconfig:"CACHE_ENABLED" default:"false"`
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"LOG_DIR" default:"logs"`

	// Scheduler
	EnableScheduler   bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	RefreshCron       string `envconfig:"REFRESH_CRON" default:"0 2 * * *"`
	InitialRunEnabled bool   `envconfig:"INITIAL_RUN_ENABLED" default:"true"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// fileConfig mirrors the YAML layout. Durations are plain seconds so config
// files stay portable. Pointer fields distinguish "absent" from zero.
type fileConfig struct {
	API struct {
		Token       string   `yaml:"token"`
		BaseURL     string   `yaml:"base_url"`
		Competition string   `yaml:"competition"`
		Season      *int     `yaml:"season"`
		TimeoutSec  *float64 `yaml:"timeout_seconds"`
	} `yaml:"api"`
	ETL struct {
		RequestsPerMin      *float64 `yaml:"requests_per_min"`
		RetriesPerTeam      *int     `yaml:"retries_per_team"`
		SleepBetweenRetries *float64 `yaml:"sleep_between_retries"`
	} `yaml:"etl"`
	Database struct {
		Type       string `yaml:"type"`
		DuckDBPath string `yaml:"duckdb_path"`
		Warehouse  struct {
			Host     string `yaml:"host"`
			Port     *int   `yaml:"port"`
			Database string `yaml:"database"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"warehouse"`
	} `yaml:"database"`
	Cache struct {
		Enabled    *bool    `yaml:"enabled"`
		Host       string   `yaml:"host"`
		Port       *int     `yaml:"port"`
		Password   string   `yaml:"password"`
		DB         *int     `yaml:"db"`
		TTLSeconds *float64 `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Log struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"log"`
}

// Load loads configuration from environment variables, first reading a .env
// file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFile loads configuration from a YAML file. Environment variables (and
// defaults) are resolved first; values present in the file take precedence.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyFile(&cfg, &fc)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	setString(&cfg.APIToken, fc.API.Token)
	setString(&cfg.APIBaseURL, fc.API.BaseURL)
	setString(&cfg.Competition, fc.API.Competition)
	if fc.API.Season != nil {
		cfg.Season = *fc.API.Season
	}
	setSeconds(&cfg.APITimeout, fc.API.TimeoutSec)

	if fc.ETL.RequestsPerMin != nil {
		cfg.RequestsPerMin = *fc.ETL.RequestsPerMin
	}
	if fc.ETL.RetriesPerTeam != nil {
		cfg.RetriesPerTeam = *fc.ETL.RetriesPerTeam
	}
	setSeconds(&cfg.SleepBetweenRetries, fc.ETL.SleepBetweenRetries)

	setString(&cfg.StoreKind, fc.Database.Type)
	setString(&cfg.DuckDBPath, fc.Database.DuckDBPath)
	setString(&cfg.WarehouseHost, fc.Database.Warehouse.Host)
	if fc.Database.Warehouse.Port != nil {
		cfg.WarehousePort = *fc.Database.Warehouse.Port
	}
	setString(&cfg.WarehouseName, fc.Database.Warehouse.Database)
	setString(&cfg.WarehouseUser, fc.Database.Warehouse.User)
	setString(&cfg.WarehousePassword, fc.Database.Warehouse.Password)
	setString(&cfg.WarehouseSSLMode, fc.Database.Warehouse.SSLMode)

	if fc.Cache.Enabled != nil {
		cfg.CacheEnabled = *fc.Cache.Enabled
	}
	setString(&cfg.RedisHost, fc.Cache.Host)
	if fc.Cache.Port != nil {
		cfg.RedisPort = *fc.Cache.Port
	}
	setString(&cfg.RedisPassword, fc.Cache.Password)
	if fc.Cache.DB != nil {
		cfg.RedisDB = *fc.Cache.DB
	}
	setSeconds(&cfg.CacheTTL, fc.Cache.TTLSeconds)

	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogDir, fc.Log.Dir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, v *float64) {
	if v != nil {
		*dst = time.Duration(*v * float64(time.Second))
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIToken == "" {
		return fmt.Errorf("FOOTBALL_API_TOKEN is required")
	}
	if c.RequestsPerMin <= 0 {
		return fmt.Errorf("ETL_REQUESTS_PER_MIN must be positive")
	}
	if c.RetriesPerTeam < 1 {
		return fmt.Errorf("ETL_RETRIES_PER_TEAM must be at least 1")
	}
	switch strings.ToLower(c.StoreKind) {
	case "duckdb", "warehouse", "postgres":
	default:
		return fmt.Errorf("unsupported store kind: %q", c.StoreKind)
	}
	if strings.ToLower(c.StoreKind) != "duckdb" && c.WarehousePassword == "" {
		return fmt.Errorf("WAREHOUSE_PASSWORD is required for the warehouse store")
	}
	return nil
}

// StoreConfig builds the store descriptor for the configured sink.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Kind:     c.StoreKind,
		Path:     c.DuckDBPath,
		Host:     c.WarehouseHost,
		Port:     c.WarehousePort,
		User:     c.WarehouseUser,
		Password: c.WarehousePassword,
		Database: c.WarehouseName,
		SSLMode:  c.WarehouseSSLMode,
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits. Use in main() to fail fast.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// MustLoadFile loads file-based configuration or exits.
func MustLoadFile(path string) *Config {
	cfg, err := LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
