package source

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/internal/observability"
	"github.com/jmylchreest/vidwall/internal/registry"
	"github.com/robfig/cron/v3"
)

// Config holds the content source settings.
type Config struct {
	// StreamListPath points at the stream list file. Empty disables
	// stream loading.
	StreamListPath string
	// LibraryPath points at the local media library root. Empty
	// disables the library.
	LibraryPath string
	// RescanDebounce coalesces bursts of filesystem events into one
	// rescan.
	RescanDebounce time.Duration
	// RevalidateSchedule is a cron expression for periodic library
	// revalidation. Empty disables the job.
	RevalidateSchedule string
}

// DefaultConfig returns the standard source manager configuration.
func DefaultConfig() Config {
	return Config{
		RescanDebounce:     2 * time.Second,
		RevalidateSchedule: "*/10 * * * *",
	}
}

// Manager feeds the registry from disk: the initial load, filesystem
// watch driven rescans, and cron driven revalidation.
type Manager struct {
	cfg    Config
	reg    *registry.Registry
	logger *slog.Logger

	watcher *fsnotify.Watcher
	cron    *cron.Cron

	mu       sync.Mutex
	debounce *time.Timer
	started  bool
	stopped  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a source manager over the given registry.
func NewManager(cfg Config, reg *registry.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RescanDebounce <= 0 {
		cfg.RescanDebounce = DefaultConfig().RescanDebounce
	}
	return &Manager{
		cfg:    cfg,
		reg:    reg,
		logger: observability.WithComponent(logger, "source"),
		done:   make(chan struct{}),
	}
}

// Load performs the initial content load. At least one of the stream
// list and the library must yield content.
func (m *Manager) Load() error {
	streams, files, err := m.loadAll()
	if err != nil {
		return err
	}
	if len(streams) == 0 && len(files) == 0 {
		return models.ErrStreamListRequired
	}

	m.reg.SetStreams(streams)
	m.reg.SetLibrary(files)
	observability.SetRegistrySizes(len(streams), len(files))
	return nil
}

// Start loads content and begins watching for changes. The filesystem
// watcher covers the library tree and the stream list file; the cron
// job revalidates library entries that may have gone away.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return models.ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	if err := m.Load(); err != nil {
		return err
	}

	if err := m.startWatcher(); err != nil {
		return err
	}

	if m.cfg.RevalidateSchedule != "" {
		m.cron = cron.New()
		if _, err := m.cron.AddFunc(m.cfg.RevalidateSchedule, m.revalidate); err != nil {
			return fmt.Errorf("invalid revalidation schedule %q: %w", m.cfg.RevalidateSchedule, err)
		}
		m.cron.Start()
	}

	return nil
}

// Stop halts watching and revalidation. Registry content is left as is.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.debounce != nil {
		m.debounce.Stop()
	}
	m.mu.Unlock()

	close(m.done)
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.wg.Wait()
}

func (m *Manager) loadAll() (streams, files []models.ContentSource, err error) {
	if m.cfg.StreamListPath != "" {
		streams, err = LoadStreamList(m.cfg.StreamListPath, m.logger)
		if err != nil {
			return nil, nil, err
		}
	}
	if m.cfg.LibraryPath != "" {
		files, err = ScanLibrary(m.cfg.LibraryPath, m.logger)
		if err != nil {
			return nil, nil, err
		}
	}
	return streams, files, nil
}

func (m *Manager) startWatcher() error {
	watched := make([]string, 0, 8)
	if m.cfg.LibraryPath != "" {
		_, dirs, err := scanLibrary(m.cfg.LibraryPath, m.logger)
		if err != nil {
			return err
		}
		watched = append(watched, dirs...)
	}
	if m.cfg.StreamListPath != "" {
		watched = append(watched, m.cfg.StreamListPath)
	}
	if len(watched) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	m.watcher = watcher

	for _, path := range watched {
		if err := watcher.Add(path); err != nil {
			m.logger.Warn("cannot watch path",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	m.wg.Add(1)
	go m.watchLoop()
	return nil
}

// watchLoop coalesces change events through a debounce timer so editor
// write bursts and bulk copies trigger a single reload.
func (m *Manager) watchLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			m.logger.Debug("content change detected",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()))

			m.mu.Lock()
			if m.debounce != nil {
				m.debounce.Stop()
			}
			m.debounce = time.AfterFunc(m.cfg.RescanDebounce, m.reload)
			m.mu.Unlock()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// reload refreshes the registry from disk after a change burst. New
// directories under the library root are added to the watch set.
func (m *Manager) reload() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	streams, files, err := m.loadAll()
	if err != nil {
		m.logger.Warn("content reload failed", slog.String("error", err.Error()))
		return
	}

	m.reg.SetStreams(streams)
	m.reg.SetLibrary(files)
	observability.SetRegistrySizes(len(streams), len(files))

	if m.watcher != nil && m.cfg.LibraryPath != "" {
		if _, dirs, err := scanLibrary(m.cfg.LibraryPath, m.logger); err == nil {
			for _, dir := range dirs {
				_ = m.watcher.Add(dir)
			}
		}
	}

	m.logger.Info("content reloaded",
		slog.Int("streams", len(streams)),
		slog.Int("files", len(files)))
}

// revalidate drops library entries that no longer resolve to playable
// files and refreshes the registry gauges.
func (m *Manager) revalidate() {
	removed := m.reg.Filter()
	if removed > 0 {
		m.logger.Info("revalidated media library", slog.Int("removed", removed))
	}
	observability.SetRegistrySizes(m.reg.StreamCount(), m.reg.LibraryCount())
}
