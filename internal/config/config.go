package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// StaticDir is served at the root when set.
	StaticDir      string   `mapstructure:"static_dir" yaml:"static_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// ForceHTTPS redirects plain navigations reported by a proxy to https.
	ForceHTTPS bool `mapstructure:"force_https" yaml:"force_https"`

	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	PingInterval    time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	EventBuffer     int           `mapstructure:"event_buffer" yaml:"event_buffer"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // messages per second, 0 disables
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	DefaultCapacity int           `mapstructure:"default_capacity" yaml:"default_capacity"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		StaticDir:         "public",
		AllowedOrigins:    []string{"*"},
		MaxMessageBytes:   1 << 20, // photo data URLs travel in profiles
		PingInterval:      30 * time.Second,
		EventBuffer:       64,
		RateLimit:         20,
		RateBurst:         40,
		DefaultCapacity:   5,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.PingInterval != 0 {
		c.PingInterval = other.PingInterval
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.RateLimit != 0 {
		c.RateLimit = other.RateLimit
	}
	if other.RateBurst != 0 {
		c.RateBurst = other.RateBurst
	}
	if other.DefaultCapacity != 0 {
		c.DefaultCapacity = other.DefaultCapacity
	}
	if other.ForceHTTPS {
		c.ForceHTTPS = true
	}
}
