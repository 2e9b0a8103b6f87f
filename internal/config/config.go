package config

import (
	"time"

	"github.com/vovakirdan/singroom-server/internal/persona"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	Privilege  PrivilegeConfig  `mapstructure:"privilege" yaml:"privilege"`
	Turn       TurnConfig       `mapstructure:"turn" yaml:"turn"`
	Personas   PersonasConfig   `mapstructure:"personas" yaml:"personas"`
	Completion CompletionConfig `mapstructure:"completion" yaml:"completion"`
	LiveKit    LiveKitConfig    `mapstructure:"livekit" yaml:"livekit"`
}

// PrivilegeConfig sets the level thresholds.
type PrivilegeConfig struct {
	TopTier   int `mapstructure:"top_tier" yaml:"top_tier"`
	Moderator int `mapstructure:"moderator" yaml:"moderator"`
}

// TurnConfig tunes the turn machine and room context.
type TurnConfig struct {
	ScoringWindow time.Duration `mapstructure:"scoring_window" yaml:"scoring_window"`
	ContextWindow int           `mapstructure:"context_window" yaml:"context_window"`
}

// PersonasConfig controls the automated participants.
type PersonasConfig struct {
	Enabled     bool              `mapstructure:"enabled" yaml:"enabled"`
	MinInterval time.Duration     `mapstructure:"min_interval" yaml:"min_interval"`
	MaxInterval time.Duration     `mapstructure:"max_interval" yaml:"max_interval"`
	Catalog     []persona.Persona `mapstructure:"catalog" yaml:"catalog"`
}

// CompletionConfig points at the text-completion endpoint.
type CompletionConfig struct {
	URL         string        `mapstructure:"url" yaml:"url"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Fallback    string        `mapstructure:"fallback" yaml:"fallback"`
}

// LiveKitConfig holds media server credentials.
type LiveKitConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	URL       string        `mapstructure:"url" yaml:"url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret string        `mapstructure:"api_secret" yaml:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		DatabasePath:       "singroom.db",
		JWTIssuer:          "singroom",
		JWTAudience:        "singroom-clients",
		SessionTTL:         24 * time.Hour,
		MaxMessageBytes:    64 << 10,
		RateLimitPerMinute: 120,
		Privilege: PrivilegeConfig{
			TopTier:   99,
			Moderator: 91,
		},
		Turn: TurnConfig{
			ScoringWindow: 15 * time.Second,
			ContextWindow: 20,
		},
		Personas: PersonasConfig{
			Enabled:     true,
			MinInterval: 30 * time.Second,
			MaxInterval: 45 * time.Second,
			Catalog:     persona.Default(),
		},
		Completion: CompletionConfig{
			Model:       "llama3",
			Timeout:     10 * time.Second,
			Temperature: 0.8,
		},
		LiveKit: LiveKitConfig{
			TokenTTL: time.Hour,
		},
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
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
}
