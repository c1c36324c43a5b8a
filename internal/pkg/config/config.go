package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Companion CompanionConfig `mapstructure:"companion"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Enabled  bool   `mapstructure:"enabled"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GeminiConfig configures the location-grounded knowledge service.
// An empty APIKey puts the advisory channel in demo mode.
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// CompanionConfig tunes session behaviour.
type CompanionConfig struct {
	DefaultTrail           string `mapstructure:"default_trail"`
	TeamReplyDelayMS       int    `mapstructure:"team_reply_delay_ms"`
	AdvisoryTimeoutSeconds int    `mapstructure:"advisory_timeout_seconds"`
	AdviceCacheTTLSeconds  int    `mapstructure:"advice_cache_ttl_seconds"`
	SurfaceWidth           int    `mapstructure:"surface_width"`
	SurfaceHeight          int    `mapstructure:"surface_height"`
	PaddingTopLeft         []int  `mapstructure:"padding_top_left"`
	PaddingBottomRight     []int  `mapstructure:"padding_bottom_right"`
}

func (c CompanionConfig) TeamReplyDelay() time.Duration {
	return time.Duration(c.TeamReplyDelayMS) * time.Millisecond
}

func (c CompanionConfig) AdvisoryTimeout() time.Duration {
	return time.Duration(c.AdvisoryTimeoutSeconds) * time.Second
}

func (c CompanionConfig) AdviceCacheTTL() time.Duration {
	return time.Duration(c.AdviceCacheTTLSeconds) * time.Second
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hikepal")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "hikepal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/")
	v.SetDefault("gemini.timeout_seconds", 30)
	v.SetDefault("companion.default_trail", "dragons-back")
	v.SetDefault("companion.team_reply_delay_ms", 1500)
	v.SetDefault("companion.advisory_timeout_seconds", 30)
	v.SetDefault("companion.advice_cache_ttl_seconds", 300)
	v.SetDefault("companion.surface_width", 390)
	v.SetDefault("companion.surface_height", 844)
	v.SetDefault("companion.padding_top_left", []int{20, 100})
	v.SetDefault("companion.padding_bottom_right", []int{20, 300})

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: HIKEPAL_GEMINI_API_KEY → gemini.api_key
	v.SetEnvPrefix("HIKEPAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bare API_KEY is what the mobile build ships with.
	_ = v.BindEnv("gemini.api_key", "HIKEPAL_GEMINI_API_KEY", "API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Gemini.Model == "" {
		errs = append(errs, "gemini.model is required")
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		errs = append(errs, "gemini.timeout_seconds must be positive")
	}
	if c.Companion.DefaultTrail == "" {
		errs = append(errs, "companion.default_trail is required")
	}
	if c.Companion.TeamReplyDelayMS < 0 {
		errs = append(errs, "companion.team_reply_delay_ms must not be negative")
	}
	if c.Companion.AdvisoryTimeoutSeconds <= 0 {
		errs = append(errs, "companion.advisory_timeout_seconds must be positive")
	}
	if c.Companion.AdviceCacheTTLSeconds < 0 {
		errs = append(errs, "companion.advice_cache_ttl_seconds must not be negative")
	}
	if c.Companion.SurfaceWidth <= 0 || c.Companion.SurfaceHeight <= 0 {
		errs = append(errs, fmt.Sprintf("companion surface must be positive, got %dx%d",
			c.Companion.SurfaceWidth, c.Companion.SurfaceHeight))
	}
	if len(c.Companion.PaddingTopLeft) != 2 {
		errs = append(errs, "companion.padding_top_left must have 2 values [x, y]")
	}
	if len(c.Companion.PaddingBottomRight) != 2 {
		errs = append(errs, "companion.padding_bottom_right must have 2 values [x, y]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
