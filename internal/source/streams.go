// Package source loads stream lists, scans the local media library, and
// keeps the shared registry in sync as both change on disk.
package source

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/pkg/playlist"
)

// LoadStreamList reads a stream list file. Plain URL lists and extended
// M3U are both accepted, compressed or not. Bare hostnames are coerced
// to https URLs, duplicates are dropped, and the result is sorted.
func LoadStreamList(path string, logger *slog.Logger) ([]models.ContentSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stream list: %w", err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var streams []models.ContentSource

	p := &playlist.Parser{
		OnEntry: func(e *playlist.Entry) error {
			normalized, ok := NormalizeStreamURL(e.URL)
			if !ok {
				logger.Warn("skipping invalid stream URL", slog.String("url", e.URL))
				return nil
			}
			if seen[normalized] {
				return nil
			}
			seen[normalized] = true
			streams = append(streams, models.StreamSource(normalized))
			return nil
		},
		OnError: func(lineNum int, err error) {
			logger.Warn("skipping malformed playlist line",
				slog.Int("line", lineNum),
				slog.String("error", err.Error()))
		},
	}

	if err := p.ParseCompressed(f); err != nil {
		return nil, fmt.Errorf("parsing stream list %s: %w", path, err)
	}

	sort.Slice(streams, func(i, j int) bool {
		return streams[i].Location < streams[j].Location
	})

	logger.Info("loaded stream list",
		slog.String("path", path),
		slog.Int("streams", len(streams)))
	return streams, nil
}

// NormalizeStreamURL validates a stream URL, coercing bare hostnames to
// https. Returns false for entries that cannot name a host.
func NormalizeStreamURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.String(), true
}
