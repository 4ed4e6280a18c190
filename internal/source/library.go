package source

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmylchreest/vidwall/internal/models"
)

// videoExtensions are the file types treated as playable library media.
var videoExtensions = map[string]bool{
	".avi":  true,
	".flv":  true,
	".m4v":  true,
	".mkv":  true,
	".mov":  true,
	".mp4":  true,
	".mpeg": true,
	".mpg":  true,
	".ts":   true,
	".webm": true,
	".wmv":  true,
}

// IsVideoFile reports whether a path has a recognised video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// ScanLibrary walks the library root and returns every playable file,
// sorted by path. Hidden files and directories are skipped, as are
// empty files.
func ScanLibrary(root string, logger *slog.Logger) ([]models.ContentSource, error) {
	files, _, err := scanLibrary(root, logger)
	return files, err
}

// scanLibrary additionally returns the visited directories so callers
// can watch them for changes.
func scanLibrary(root string, logger *slog.Logger) ([]models.ContentSource, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var files []models.ContentSource
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
			return nil
		}
		if strings.HasPrefix(name, ".") || !IsVideoFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() == 0 {
			return nil
		}
		files = append(files, models.FileSource(path))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scanning library %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Location < files[j].Location
	})

	logger.Info("scanned media library",
		slog.String("root", root),
		slog.Int("files", len(files)),
		slog.Int("directories", len(dirs)))
	return files, dirs, nil
}
