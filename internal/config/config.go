package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"linttrack/internal/errors"
)

// StateDir is the per-workspace directory holding config, bindings, caches and job history.
const StateDir = ".linttrack"

// EnvPrefix prefixes environment overrides, e.g. LINTTRACK_SERVER_TOKEN.
const EnvPrefix = "LINTTRACK"

// Config represents the complete linttrack configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Jobs     JobsConfig     `json:"jobs" mapstructure:"jobs"`
	Tracking TrackingConfig `json:"tracking" mapstructure:"tracking"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// ServerConfig configures the remote issue server client
type ServerConfig struct {
	URL               string  `json:"url" mapstructure:"url"`
	Token             string  `json:"token,omitempty" mapstructure:"token"`
	TimeoutMs         int     `json:"timeoutMs" mapstructure:"timeoutMs"`
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requestsPerSecond"`
	Burst             int     `json:"burst" mapstructure:"burst"`
}

// CacheConfig configures the server issue cache
type CacheConfig struct {
	Driver        string `json:"driver" mapstructure:"driver"` // sqlite, postgres or memory
	DSN           string `json:"dsn,omitempty" mapstructure:"dsn"`
	MemoryEntries int    `json:"memoryEntries" mapstructure:"memoryEntries"`
}

// JobsConfig configures the job runner
type JobsConfig struct {
	Workers        int `json:"workers" mapstructure:"workers"`
	QueueSize      int `json:"queueSize" mapstructure:"queueSize"`
	RetentionHours int `json:"retentionHours" mapstructure:"retentionHours"`
}

// TrackingConfig configures issue matching
type TrackingConfig struct {
	LineShiftTolerance int `json:"lineShiftTolerance" mapstructure:"lineShiftTolerance"`
}

// AnalysisConfig configures the external analysis engine
type AnalysisConfig struct {
	Command   string   `json:"command" mapstructure:"command"`
	Args      []string `json:"args" mapstructure:"args"`
	TimeoutMs int      `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			TimeoutMs:         30000,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Cache: CacheConfig{
			Driver:        "sqlite",
			MemoryEntries: 1024,
		},
		Jobs: JobsConfig{
			Workers:        4,
			QueueSize:      100,
			RetentionHours: 7 * 24,
		},
		Tracking: TrackingConfig{
			LineShiftTolerance: 3,
		},
		Analysis: AnalysisConfig{
			Args:      []string{},
			TimeoutMs: 300000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// setDefaults registers every default so that environment overrides apply
// to keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("version", cfg.Version)

	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.token", cfg.Server.Token)
	v.SetDefault("server.timeoutMs", cfg.Server.TimeoutMs)
	v.SetDefault("server.requestsPerSecond", cfg.Server.RequestsPerSecond)
	v.SetDefault("server.burst", cfg.Server.Burst)

	v.SetDefault("cache.driver", cfg.Cache.Driver)
	v.SetDefault("cache.dsn", cfg.Cache.DSN)
	v.SetDefault("cache.memoryEntries", cfg.Cache.MemoryEntries)

	v.SetDefault("jobs.workers", cfg.Jobs.Workers)
	v.SetDefault("jobs.queueSize", cfg.Jobs.QueueSize)
	v.SetDefault("jobs.retentionHours", cfg.Jobs.RetentionHours)

	v.SetDefault("tracking.lineShiftTolerance", cfg.Tracking.LineShiftTolerance)

	v.SetDefault("analysis.command", cfg.Analysis.Command)
	v.SetDefault("analysis.args", cfg.Analysis.Args)
	v.SetDefault("analysis.timeoutMs", cfg.Analysis.TimeoutMs)

	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from .linttrack/config.{json,yaml,toml},
// falling back to the defaults when no file exists. LINTTRACK_* environment
// variables override both.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(repoRoot, StateDir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(errors.ConfigInvalid, "failed to read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}

	return &cfg, nil
}

// Save writes the configuration to .linttrack/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, StateDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	switch c.Cache.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Cache.DSN == "" {
			return &ConfigError{Field: "cache.dsn", Message: "required by the postgres driver"}
		}
	default:
		return &ConfigError{Field: "cache.driver", Message: "must be sqlite, postgres or memory"}
	}

	if c.Jobs.Workers < 1 {
		return &ConfigError{Field: "jobs.workers", Message: "must be at least 1"}
	}
	if c.Tracking.LineShiftTolerance < 0 {
		return &ConfigError{Field: "tracking.lineShiftTolerance", Message: "must not be negative"}
	}
	if c.Server.RequestsPerSecond < 0 {
		return &ConfigError{Field: "server.requestsPerSecond", Message: "must not be negative"}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}

	return nil
}

// ServerTimeout returns the HTTP timeout of the issue server client.
func (c *Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutMs) * time.Millisecond
}

// AnalysisTimeout returns the maximum run time of one engine invocation.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutMs) * time.Millisecond
}

// Retention returns how long terminal jobs are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Jobs.RetentionHours) * time.Hour
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
