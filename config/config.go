package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Display    DisplayConfig    `yaml:"display"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push is optional; without keys the watcher and subscription endpoints stay off.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	RateLimitPerSec   float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
	RateLimitIdleMins int           `yaml:"rate_limit_idle_minutes"`
	RateLimitIdle     time.Duration `yaml:"-"`
	CacheTTLSeconds   int           `yaml:"cache_ttl_seconds"`
	CacheTTL          time.Duration `yaml:"-"`
	SessionCookie     string        `yaml:"session_cookie"`
	SessionTTLHours   int           `yaml:"session_ttl_hours"`
	SessionTTL        time.Duration `yaml:"-"`
	SecureCookie      bool          `yaml:"secure_cookie"`
	ShutdownTimeout   time.Duration `yaml:"-"`
	ShutdownTimeoutMS int           `yaml:"shutdown_timeout_ms"`
}

// UpstreamConfig describes the remote status API.
type UpstreamConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Headers        map[string]string `yaml:"headers"`
	HTTPProxy      string            `yaml:"http_proxy"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"`
	RequestsPerSec float64           `yaml:"requests_per_sec"`
	RequestBurst   int               `yaml:"request_burst"`
}

// DisplayConfig holds presentation choices for dates, times and the default range.
type DisplayConfig struct {
	Timezone             string        `yaml:"timezone"`
	Hour12               bool          `yaml:"hour12"`
	DefaultLookbackHours int           `yaml:"default_lookback_hours"`
	DefaultLookback      time.Duration `yaml:"-"`
	AutoRefreshSeconds   int           `yaml:"auto_refresh_seconds"`
}

// WatcherConfig controls the background poller that detects plug/unplug changes.
type WatcherConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	LookbackHours   int           `yaml:"lookback_hours"`
	Lookback        time.Duration `yaml:"-"`
}

// GeocoderConfig points at a Nominatim-compatible search service.
type GeocoderConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url"`
	UserAgent       string `yaml:"user_agent"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	Zoom            int    `yaml:"zoom"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// LogLevel is the gorm logger level: info (default), warn, error or silent.
	LogLevel string `yaml:"log_level"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields and derives the time.Duration values.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.RateLimitIdleMins <= 0 {
		cfg.Server.RateLimitIdleMins = 10
	}
	cfg.Server.RateLimitIdle = time.Duration(cfg.Server.RateLimitIdleMins) * time.Minute
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cfg.Server.SessionCookie == "" {
		cfg.Server.SessionCookie = "ringer_session"
	}
	if cfg.Server.SessionTTLHours <= 0 {
		cfg.Server.SessionTTLHours = 24 * 30
	}
	cfg.Server.SessionTTL = time.Duration(cfg.Server.SessionTTLHours) * time.Hour
	if cfg.Server.ShutdownTimeoutMS <= 0 {
		cfg.Server.ShutdownTimeoutMS = 5000
	}
	cfg.Server.ShutdownTimeout = time.Duration(cfg.Server.ShutdownTimeoutMS) * time.Millisecond

	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 30
	}
	cfg.Upstream.Timeout = time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	if cfg.Upstream.RequestsPerSec <= 0 {
		cfg.Upstream.RequestsPerSec = 5
	}
	if cfg.Upstream.RequestBurst <= 0 {
		cfg.Upstream.RequestBurst = 5
	}

	if cfg.Display.Timezone == "" {
		cfg.Display.Timezone = "UTC"
	}
	if cfg.Display.DefaultLookbackHours <= 0 {
		cfg.Display.DefaultLookbackHours = 24 * 7
	}
	cfg.Display.DefaultLookback = time.Duration(cfg.Display.DefaultLookbackHours) * time.Hour
	if cfg.Display.AutoRefreshSeconds < 0 {
		cfg.Display.AutoRefreshSeconds = 0
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:ringer.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 60
	}
	cfg.Watcher.Interval = time.Duration(cfg.Watcher.IntervalSeconds) * time.Second
	if cfg.Watcher.LookbackHours <= 0 {
		cfg.Watcher.LookbackHours = 24
	}
	cfg.Watcher.Lookback = time.Duration(cfg.Watcher.LookbackHours) * time.Hour

	if cfg.Geocoder.BaseURL == "" {
		cfg.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Geocoder.UserAgent == "" {
		cfg.Geocoder.UserAgent = "ringer-dashboard"
	}
	if cfg.Geocoder.CacheTTLMinutes <= 0 {
		cfg.Geocoder.CacheTTLMinutes = 60
	}
	if cfg.Geocoder.Zoom <= 0 || cfg.Geocoder.Zoom > 16 {
		cfg.Geocoder.Zoom = 15
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Location resolves the display timezone, falling back to UTC.
func (d DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		log.Printf("Warning: invalid display timezone %q: %v. Using UTC.", d.Timezone, err)
		return time.UTC
	}
	return loc
}
