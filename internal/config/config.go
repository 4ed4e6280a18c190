// Package config provides configuration management for vidwall using
// Viper. It supports configuration from files, environment variables,
// and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort          = 8080
	defaultServerTimeout       = 30 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultRows                = 3
	defaultCols                = 3
	defaultRefreshDebounce     = 500 * time.Millisecond
	defaultStreamCheckInterval = 30 * time.Second
	defaultMaxActiveStreams    = 15
	defaultRetryBudget         = 3
	defaultLoadTimeout         = 15 * time.Second
	defaultSimLatency          = 250 * time.Millisecond
	defaultRescanDebounce      = 2 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Content     ContentConfig     `mapstructure:"content"`
	Wall        WallConfig        `mapstructure:"wall"`
	Playback    PlaybackConfig    `mapstructure:"playback"`
	Transitions TransitionsConfig `mapstructure:"transitions"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ContentConfig holds stream list and media library configuration.
type ContentConfig struct {
	// StreamList is the path to the stream list file (plain URL list or
	// extended M3U, optionally compressed). Empty disables streams.
	StreamList string `mapstructure:"stream_list"`
	// LibraryDir is the local media library root. Empty disables the
	// library.
	LibraryDir string `mapstructure:"library_dir"`
	// RescanDebounce coalesces filesystem change bursts into one rescan.
	RescanDebounce time.Duration `mapstructure:"rescan_debounce"`
	// RevalidateCron schedules periodic library revalidation (5-field
	// cron expression, empty disables).
	RevalidateCron string `mapstructure:"revalidate_cron"`
}

// WallConfig holds display and grid configuration.
type WallConfig struct {
	// Displays names the displays to run. Every display shares the same
	// grid shape and the same source registry.
	Displays            []string      `mapstructure:"displays"`
	Rows                int           `mapstructure:"rows"`
	Cols                int           `mapstructure:"cols"`
	RefreshDebounce     time.Duration `mapstructure:"refresh_debounce"`
	StreamCheckInterval time.Duration `mapstructure:"stream_check_interval"`
}

// PlaybackConfig holds slot playback configuration.
type PlaybackConfig struct {
	// Backend selects the media backend: sim or noop.
	Backend string `mapstructure:"backend"`
	// SimLatency is the simulated load latency of the sim backend.
	SimLatency       time.Duration `mapstructure:"sim_latency"`
	MaxActiveStreams int           `mapstructure:"max_active_streams"`
	RetryBudget      int           `mapstructure:"retry_budget"`
	LoadTimeout      time.Duration `mapstructure:"load_timeout"`
}

// TransitionsConfig holds the automatic transition schedule.
type TransitionsConfig struct {
	// Intervals are the discrete delays the scheduler picks between
	// firings.
	Intervals []time.Duration `mapstructure:"intervals"`

	SwapWeight       float64 `mapstructure:"swap_weight"`
	ResizeWeight     float64 `mapstructure:"resize_weight"`
	FullScreenWeight float64 `mapstructure:"fullscreen_weight"`
	RefreshWeight    float64 `mapstructure:"refresh_weight"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VIDWALL_ and use underscores
// for nesting. Example: VIDWALL_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vidwall")
		v.AddConfigPath("$HOME/.vidwall")
	}

	// Environment variable settings
	v.SetEnvPrefix("VIDWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a Config from an already populated
// viper instance. The CLI uses this with the global viper so that flag
// bindings participate in precedence.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure
// defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Content defaults
	v.SetDefault("content.stream_list", "")
	v.SetDefault("content.library_dir", "")
	v.SetDefault("content.rescan_debounce", defaultRescanDebounce)
	v.SetDefault("content.revalidate_cron", "*/10 * * * *")

	// Wall defaults
	v.SetDefault("wall.displays", []string{"display-0"})
	v.SetDefault("wall.rows", defaultRows)
	v.SetDefault("wall.cols", defaultCols)
	v.SetDefault("wall.refresh_debounce", defaultRefreshDebounce)
	v.SetDefault("wall.stream_check_interval", defaultStreamCheckInterval)

	// Playback defaults
	v.SetDefault("playback.backend", "sim")
	v.SetDefault("playback.sim_latency", defaultSimLatency)
	v.SetDefault("playback.max_active_streams", defaultMaxActiveStreams)
	v.SetDefault("playback.retry_budget", defaultRetryBudget)
	v.SetDefault("playback.load_timeout", defaultLoadTimeout)

	// Transition defaults
	v.SetDefault("transitions.intervals", []time.Duration{
		30 * time.Second, 45 * time.Second, 60 * time.Second, 90 * time.Second,
	})
	v.SetDefault("transitions.swap_weight", 0.05)
	v.SetDefault("transitions.resize_weight", 0.85)
	v.SetDefault("transitions.fullscreen_weight", 0.10)
	v.SetDefault("transitions.refresh_weight", 0.0)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Wall validation
	if len(c.Wall.Displays) == 0 {
		return fmt.Errorf("wall.displays must name at least one display")
	}
	seen := make(map[string]bool, len(c.Wall.Displays))
	for _, id := range c.Wall.Displays {
		if id == "" {
			return fmt.Errorf("wall.displays must not contain empty names")
		}
		if seen[id] {
			return fmt.Errorf("wall.displays contains duplicate name %q", id)
		}
		seen[id] = true
	}
	if c.Wall.Rows < 1 || c.Wall.Cols < 1 {
		return fmt.Errorf("wall.rows and wall.cols must be at least 1")
	}

	// Playback validation
	validBackends := map[string]bool{"sim": true, "noop": true}
	if !validBackends[c.Playback.Backend] {
		return fmt.Errorf("playback.backend must be one of: sim, noop")
	}
	if c.Playback.RetryBudget < 1 {
		return fmt.Errorf("playback.retry_budget must be at least 1")
	}
	if c.Playback.MaxActiveStreams < 0 {
		return fmt.Errorf("playback.max_active_streams must not be negative")
	}
	if c.Playback.LoadTimeout <= 0 {
		return fmt.Errorf("playback.load_timeout must be positive")
	}

	// Transition validation
	if len(c.Transitions.Intervals) == 0 {
		return fmt.Errorf("transitions.intervals must contain at least one interval")
	}
	for _, iv := range c.Transitions.Intervals {
		if iv <= 0 {
			return fmt.Errorf("transitions.intervals must all be positive")
		}
	}
	weights := []float64{
		c.Transitions.SwapWeight,
		c.Transitions.ResizeWeight,
		c.Transitions.FullScreenWeight,
		c.Transitions.RefreshWeight,
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("transition weights must not be negative")
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("at least one transition weight must be positive")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
