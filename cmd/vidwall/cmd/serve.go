package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/vidwall/internal/config"
	"github.com/jmylchreest/vidwall/internal/display"
	"github.com/jmylchreest/vidwall/internal/httpapi"
	"github.com/jmylchreest/vidwall/internal/httpapi/handlers"
	"github.com/jmylchreest/vidwall/internal/playback"
	"github.com/jmylchreest/vidwall/internal/registry"
	"github.com/jmylchreest/vidwall/internal/scheduler"
	"github.com/jmylchreest/vidwall/internal/source"
	"github.com/jmylchreest/vidwall/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vidwall server",
	Long: `Start the vidwall orchestration service and HTTP API.

The server provides:
- REST API for wall status and manual transition triggers
- Health check and Prometheus metrics endpoints
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")

	// Content flags
	serveCmd.Flags().String("stream-list", "", "Path to the stream list file (M3U or plain URLs)")
	serveCmd.Flags().String("library-dir", "", "Path to the local video library")

	// Wall flags
	serveCmd.Flags().StringSlice("displays", nil, "Display identifiers to run (default display-0)")

	// Bind flags to viper
	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("content.stream_list", serveCmd.Flags().Lookup("stream-list"))
	mustBindPFlag("content.library_dir", serveCmd.Flags().Lookup("library-dir"))
	mustBindPFlag("wall.displays", serveCmd.Flags().Lookup("displays"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.Default()

	// Shared source registry, one per wall.
	reg := registry.New().WithLogger(logger)

	// Content sources: initial load, filesystem watch, revalidation cron.
	sources := source.NewManager(source.Config{
		StreamListPath:     cfg.Content.StreamList,
		LibraryPath:        cfg.Content.LibraryDir,
		RescanDebounce:     cfg.Content.RescanDebounce,
		RevalidateSchedule: cfg.Content.RevalidateCron,
	}, reg, logger)
	if err := sources.Start(); err != nil {
		return fmt.Errorf("starting content sources: %w", err)
	}
	defer sources.Stop()

	// Build the wall and its displays.
	wall := display.NewWall(reg, logger)
	displayCfg := displayConfig(cfg)
	for _, id := range cfg.Wall.Displays {
		d := display.New(id, displayCfg, reg, backendFactory(cfg.Playback), logger)
		if err := wall.Add(d); err != nil {
			return fmt.Errorf("adding display %q: %w", id, err)
		}
	}
	if err := wall.Start(); err != nil {
		return fmt.Errorf("starting wall: %w", err)
	}
	defer wall.Stop()

	// Initialize HTTP server
	serverConfig := httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}
	server := httpapi.NewServer(serverConfig, logger, version.Version)

	// Register handlers
	healthHandler := handlers.NewHealthHandler(version.Version).
		WithWall(wall).
		WithRegistry(reg)
	healthHandler.Register(server.API())

	wallHandler := handlers.NewWallHandler(wall)
	wallHandler.Register(server.API())

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting vidwall server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Int("displays", len(cfg.Wall.Displays)),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

// displayConfig maps the file configuration onto the per-display
// component configs.
func displayConfig(cfg *config.Config) display.Config {
	return display.Config{
		Rows: cfg.Wall.Rows,
		Cols: cfg.Wall.Cols,
		Playback: playback.Config{
			RetryBudget:      cfg.Playback.RetryBudget,
			LoadTimeout:      cfg.Playback.LoadTimeout,
			MaxActiveStreams: cfg.Playback.MaxActiveStreams,
		},
		Scheduler: scheduler.Config{
			Intervals: cfg.Transitions.Intervals,
			Weights: scheduler.Weights{
				scheduler.TransitionSwap:       cfg.Transitions.SwapWeight,
				scheduler.TransitionResize:     cfg.Transitions.ResizeWeight,
				scheduler.TransitionFullScreen: cfg.Transitions.FullScreenWeight,
				scheduler.TransitionRefresh:    cfg.Transitions.RefreshWeight,
			},
		},
		RefreshDebounce:     cfg.Wall.RefreshDebounce,
		StreamCheckInterval: cfg.Wall.StreamCheckInterval,
	}
}

// backendFactory selects the media backend implementation.
func backendFactory(cfg config.PlaybackConfig) display.BackendFactory {
	if cfg.Backend == "noop" {
		return func(playback.EventSink) playback.Backend {
			return playback.NopBackend{}
		}
	}
	return func(sink playback.EventSink) playback.Backend {
		return playback.NewSimBackend(sink, cfg.SimLatency)
	}
}
