package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	History   HistoryConfig
	Context   ContextConfig
	Assist    AssistConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8900" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
}

// TerminalConfig holds session and PTY defaults.
type TerminalConfig struct {
	Shell      string `envconfig:"SHELL_PATH" default:"" toml:"shell"`
	WorkingDir string `envconfig:"WORKING_DIR" default:"" toml:"working_dir"`
	Cols       int    `envconfig:"TERM_COLS" default:"80" toml:"cols"`
	Rows       int    `envconfig:"TERM_ROWS" default:"24" toml:"rows"`
	// BufferCap bounds a session's unflushed output accumulation.
	BufferCap int `envconfig:"TERM_BUFFER_CAP" default:"1048576" toml:"buffer_cap"`
}

// HistoryConfig holds undo/redo stack configuration.
type HistoryConfig struct {
	Capacity int `envconfig:"HISTORY_CAPACITY" default:"50" toml:"capacity"`
}

// ContextConfig holds AI context cache configuration.
type ContextConfig struct {
	TTL          time.Duration `envconfig:"CONTEXT_TTL" default:"5s" toml:"ttl"`
	ErrorPreview int           `envconfig:"CONTEXT_ERROR_PREVIEW" default:"200" toml:"error_preview"`
	RecentErrors int           `envconfig:"CONTEXT_RECENT_ERRORS" default:"3" toml:"recent_errors"`
}

// AssistConfig holds AI collaborator configuration.
type AssistConfig struct {
	Address string        `envconfig:"ASSIST_ADDR" default:"http://localhost:8901" toml:"address"`
	Timeout time.Duration `envconfig:"ASSIST_TIMEOUT" default:"60s" toml:"timeout"`
	Retries int           `envconfig:"ASSIST_RETRIES" default:"2" toml:"retries"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment, then overlays a TOML file.
// File values win over environment so a checked-in config stays authoritative.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8900",
			Host: "0.0.0.0",
		},
		Terminal: TerminalConfig{
			Cols:      80,
			Rows:      24,
			BufferCap: 1 << 20,
		},
		History: HistoryConfig{
			Capacity: 50,
		},
		Context: ContextConfig{
			TTL:          5 * time.Second,
			ErrorPreview: 200,
			RecentErrors: 3,
		},
		Assist: AssistConfig{
			Address: "http://localhost:8901",
			Timeout: 60 * time.Second,
			Retries: 2,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
