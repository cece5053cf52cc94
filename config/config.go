package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Backend    BackendConfig    `yaml:"backend" toml:"backend"`
	Map        MapConfig        `yaml:"map" toml:"map"`
	Modal      ModalConfig      `yaml:"modal" toml:"modal"`
	Page       PageConfig       `yaml:"page" toml:"page"`
	State      StateConfig      `yaml:"state" toml:"state"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Push       PushConfig       `yaml:"push" toml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" toml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notice relay worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" toml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push relaying is disabled when the keys are empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" toml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key" toml:"vapid_private_key"`
	Subject    string `yaml:"subject" toml:"subject"`
	TTL        int    `yaml:"ttl" toml:"ttl"`
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" toml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" toml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// BackendConfig describes how to reach the parking reservation API.
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url" toml:"base_url"`
	SessionCookie   string        `yaml:"session_cookie" toml:"session_cookie"`
	Session         string        `yaml:"session" toml:"session"`
	HTTPProxy       string        `yaml:"http_proxy" toml:"http_proxy"`
	TimeoutSeconds  int           `yaml:"timeout_seconds" toml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-" toml:"-"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" toml:"rate_limit_per_sec"`
}

// MapConfig holds the map view configuration.
type MapConfig struct {
	PageDataFile        string        `yaml:"page_data_file" toml:"page_data_file"`
	PollIntervalSeconds int           `yaml:"poll_interval_seconds" toml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-" toml:"-"`
}

// ModalConfig holds the decision dialog configuration.
type ModalConfig struct {
	// Disabled mirrors a page rendered without the dialog markup.
	Disabled   bool          `yaml:"disabled" toml:"disabled"`
	TickMillis int           `yaml:"tick_ms" toml:"tick_ms"`
	Tick       time.Duration `yaml:"-" toml:"-"`
	LoginPath  string        `yaml:"login_path" toml:"login_path"`
}

// PageConfig describes the page the client is rendering.
type PageConfig struct {
	// Location is the path plus query of the current page, used as the login return path.
	Location string `yaml:"location" toml:"location"`
}

// StateConfig selects where the UI-state records are persisted.
type StateConfig struct {
	Driver    string `yaml:"driver" toml:"driver"` // gorm, memory or redis
	RedisURL  string `yaml:"redis_url" toml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" toml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	} else {
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, as if loaded from an empty file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PARKD_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("PARKD_SESSION"); v != "" {
		cfg.Backend.Session = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8088
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 2
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:5000"
	}
	if cfg.Backend.SessionCookie == "" {
		cfg.Backend.SessionCookie = "session"
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	if cfg.Map.PollIntervalSeconds <= 0 {
		cfg.Map.PollIntervalSeconds = 20
	}
	cfg.Map.PollInterval = time.Duration(cfg.Map.PollIntervalSeconds) * time.Second

	if cfg.Modal.TickMillis <= 0 {
		cfg.Modal.TickMillis = 1000
	}
	cfg.Modal.Tick = time.Duration(cfg.Modal.TickMillis) * time.Millisecond
	if cfg.Modal.LoginPath == "" {
		cfg.Modal.LoginPath = "/login"
	}

	if cfg.Page.Location == "" {
		cfg.Page.Location = "/"
	}

	switch cfg.State.Driver {
	case "gorm", "memory", "redis":
	case "":
		cfg.State.Driver = "gorm"
	default:
		log.Printf("state.driver %q is not supported; defaulting to gorm", cfg.State.Driver)
		cfg.State.Driver = "gorm"
	}
	if cfg.State.KeyPrefix == "" {
		cfg.State.KeyPrefix = "parkd:"
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:parkd.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
