package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Wall: WallConfig{
			Displays: []string{"display-0"},
			Rows:     3,
			Cols:     3,
		},
		Playback: PlaybackConfig{
			Backend:          "sim",
			MaxActiveStreams: 15,
			RetryBudget:      3,
			LoadTimeout:      15 * time.Second,
		},
		Transitions: TransitionsConfig{
			Intervals:        []time.Duration{30 * time.Second},
			SwapWeight:       0.05,
			ResizeWeight:     0.85,
			FullScreenWeight: 0.10,
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Load without config file should use defaults
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Wall defaults
	assert.Equal(t, []string{"display-0"}, cfg.Wall.Displays)
	assert.Equal(t, 3, cfg.Wall.Rows)
	assert.Equal(t, 3, cfg.Wall.Cols)
	assert.Equal(t, 500*time.Millisecond, cfg.Wall.RefreshDebounce)
	assert.Equal(t, 30*time.Second, cfg.Wall.StreamCheckInterval)

	// Playback defaults
	assert.Equal(t, "sim", cfg.Playback.Backend)
	assert.Equal(t, 15, cfg.Playback.MaxActiveStreams)
	assert.Equal(t, 3, cfg.Playback.RetryBudget)
	assert.Equal(t, 15*time.Second, cfg.Playback.LoadTimeout)

	// Transition defaults
	assert.Equal(t, []time.Duration{
		30 * time.Second, 45 * time.Second, 60 * time.Second, 90 * time.Second,
	}, cfg.Transitions.Intervals)
	assert.InDelta(t, 0.05, cfg.Transitions.SwapWeight, 1e-9)
	assert.InDelta(t, 0.85, cfg.Transitions.ResizeWeight, 1e-9)
	assert.InDelta(t, 0.10, cfg.Transitions.FullScreenWeight, 1e-9)
	assert.Zero(t, cfg.Transitions.RefreshWeight)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s

logging:
  level: "debug"
  format: "text"

content:
  stream_list: "/etc/vidwall/streams.txt"
  library_dir: "/srv/media"

wall:
  displays: ["left", "right"]
  rows: 4
  cols: 4
  stream_check_interval: 45s

playback:
  max_active_streams: 8
  retry_budget: 5
  load_timeout: 20s

transitions:
  intervals: ["15s", "30s"]
  swap_weight: 0.2
  resize_weight: 0.8
  fullscreen_weight: 0.0
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	assert.Equal(t, "/etc/vidwall/streams.txt", cfg.Content.StreamList)
	assert.Equal(t, "/srv/media", cfg.Content.LibraryDir)

	assert.Equal(t, []string{"left", "right"}, cfg.Wall.Displays)
	assert.Equal(t, 4, cfg.Wall.Rows)
	assert.Equal(t, 45*time.Second, cfg.Wall.StreamCheckInterval)

	assert.Equal(t, 8, cfg.Playback.MaxActiveStreams)
	assert.Equal(t, 5, cfg.Playback.RetryBudget)
	assert.Equal(t, 20*time.Second, cfg.Playback.LoadTimeout)

	assert.Equal(t, []time.Duration{15 * time.Second, 30 * time.Second}, cfg.Transitions.Intervals)
	assert.InDelta(t, 0.2, cfg.Transitions.SwapWeight, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VIDWALL_SERVER_PORT", "9191")
	t.Setenv("VIDWALL_LOGGING_LEVEL", "warn")
	t.Setenv("VIDWALL_PLAYBACK_RETRY_BUDGET", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Playback.RetryBudget)
}

func TestLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: ["), 0o600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no displays", func(c *Config) { c.Wall.Displays = nil }, "wall.displays"},
		{"empty display name", func(c *Config) { c.Wall.Displays = []string{""} }, "wall.displays"},
		{"duplicate display", func(c *Config) { c.Wall.Displays = []string{"a", "a"} }, "duplicate"},
		{"zero rows", func(c *Config) { c.Wall.Rows = 0 }, "wall.rows"},
		{"zero cols", func(c *Config) { c.Wall.Cols = 0 }, "wall.rows"},
		{"bad backend", func(c *Config) { c.Playback.Backend = "gstreamer" }, "playback.backend"},
		{"zero retry budget", func(c *Config) { c.Playback.RetryBudget = 0 }, "retry_budget"},
		{"negative max streams", func(c *Config) { c.Playback.MaxActiveStreams = -1 }, "max_active_streams"},
		{"zero load timeout", func(c *Config) { c.Playback.LoadTimeout = 0 }, "load_timeout"},
		{"no intervals", func(c *Config) { c.Transitions.Intervals = nil }, "intervals"},
		{"negative interval", func(c *Config) { c.Transitions.Intervals = []time.Duration{-time.Second} }, "positive"},
		{"negative weight", func(c *Config) { c.Transitions.SwapWeight = -1 }, "negative"},
		{"all weights zero", func(c *Config) {
			c.Transitions.SwapWeight = 0
			c.Transitions.ResizeWeight = 0
			c.Transitions.FullScreenWeight = 0
			c.Transitions.RefreshWeight = 0
		}, "weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 9090}
	assert.Equal(t, "127.0.0.1:9090", c.Address())
}
