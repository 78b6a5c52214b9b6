package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hostel-allocation-backend/internal/logging"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Session    SessionConfig    `yaml:"session"`
	Upload     UploadConfig     `yaml:"upload"`
	Allocation AllocationConfig `yaml:"allocation"`
	Provision  ProvisionConfig  `yaml:"provision"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notice worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	RequestIPHeader        string   `yaml:"request_ip_header"`
	RateLimitPerSec        float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst         int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds        int      `yaml:"cache_ttl_seconds"`
	CORSOrigins            []string `yaml:"cors_origins"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, mysql or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// CacheConfig holds the cache store configuration.
type CacheConfig struct {
	DurablePath            string `yaml:"durable_path"`
	CleanupIntervalSeconds int    `yaml:"cleanup_interval_seconds"`
	Coalesce               bool   `yaml:"coalesce"`
}

// SessionConfig holds the token settings.
type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	TTLMinutes int           `yaml:"ttl_minutes"`
	TTL        time.Duration `yaml:"-"`
}

// UploadConfig restricts application documents.
type UploadConfig struct {
	MaxBytes        int64  `yaml:"max_bytes"`
	AllowedMIMEType string `yaml:"allowed_mime_type"`
}

// AllocationConfig holds the allocation engine switches.
type AllocationConfig struct {
	RejectDuplicateSubmissions bool `yaml:"reject_duplicate_submissions"`
}

// ProvisionConfig holds the inventory import configuration.
type ProvisionConfig struct {
	Enabled         bool             `yaml:"enabled"`
	IntervalSeconds int              `yaml:"interval_seconds"`
	Interval        time.Duration    `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string           `yaml:"http_proxy"`
	TimeoutSeconds  int              `yaml:"timeout_seconds"`
	CacheTTLSeconds int              `yaml:"cache_ttl_seconds"`
	Request         ProvisionRequest `yaml:"request"`
}

// ProvisionRequest defines the HTTP request for the inventory import.
type ProvisionRequest struct {
	URL      string            `yaml:"url"`
	Method   string            `yaml:"method"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"pageSize"`
	Payload  map[string]any    `yaml:"payload"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads the configuration from the given path, then applies defaults and
// HOSTEL_* environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() error {
	if v, ok := os.LookupEnv("HOSTEL_DB_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv("HOSTEL_DB_DRIVER"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := os.LookupEnv("HOSTEL_SESSION_SECRET"); ok {
		cfg.Session.Secret = v
	}
	if v, ok := os.LookupEnv("HOSTEL_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("HOSTEL_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HOSTEL_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 2 * int(cfg.Server.RateLimitPerSec)
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Cache.CleanupIntervalSeconds <= 0 {
		cfg.Cache.CleanupIntervalSeconds = 300
	}

	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "hosteld"
	}
	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = 12 * 60
	}
	cfg.Session.TTL = time.Duration(cfg.Session.TTLMinutes) * time.Minute

	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = 5 << 20
	}
	if cfg.Upload.AllowedMIMEType == "" {
		cfg.Upload.AllowedMIMEType = "application/pdf"
	}

	if cfg.Provision.IntervalSeconds <= 0 {
		cfg.Provision.IntervalSeconds = 3600
	}
	cfg.Provision.Interval = time.Duration(cfg.Provision.IntervalSeconds) * time.Second
	if cfg.Provision.TimeoutSeconds <= 0 {
		cfg.Provision.TimeoutSeconds = 30
	}
	if cfg.Provision.CacheTTLSeconds <= 0 {
		cfg.Provision.CacheTTLSeconds = 600
	}
	if cfg.Provision.Request.Method == "" {
		cfg.Provision.Request.Method = "POST"
	}
	if cfg.Provision.Request.PageSize <= 0 {
		cfg.Provision.Request.PageSize = 100
	}

	if cfg.WorkerPool.Size <= 0 {
		logging.Logger.Warn().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (cfg *Config) validate() error {
	switch cfg.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}
	if cfg.Session.Secret == "" {
		return fmt.Errorf("session.secret is required (or set HOSTEL_SESSION_SECRET)")
	}
	if cfg.Provision.Enabled && cfg.Provision.Request.URL == "" {
		return fmt.Errorf("provision.request.url is required when provisioning is enabled")
	}
	return nil
}
