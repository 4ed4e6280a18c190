package source

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStreamList_Plain(t *testing.T) {
	path := writeFile(t, t.TempDir(), "streams.txt", `
# mirrors
http://example.com/b.ts
http://example.com/a.ts
example.org/bare
http://example.com/a.ts
`)

	streams, err := LoadStreamList(path, nil)
	require.NoError(t, err)

	locations := make([]string, 0, len(streams))
	for _, s := range streams {
		assert.Equal(t, models.SourceStream, s.Kind)
		locations = append(locations, s.Location)
	}
	// Deduplicated, bare hostname coerced to https, sorted.
	assert.Equal(t, []string{
		"http://example.com/a.ts",
		"http://example.com/b.ts",
		"https://example.org/bare",
	}, locations)
}

func TestLoadStreamList_ExtendedM3U(t *testing.T) {
	path := writeFile(t, t.TempDir(), "streams.m3u", `#EXTM3U
#EXTINF:-1 group-title="News",World News
http://example.com/news.ts
#EXTINF:-1,Sport
http://example.com/sport.ts
`)

	streams, err := LoadStreamList(path, nil)
	require.NoError(t, err)
	require.Len(t, streams, 2)
}

func TestLoadStreamList_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streams.txt.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("http://example.com/a.ts\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	streams, err := LoadStreamList(path, nil)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "http://example.com/a.ts", streams[0].Location)
}

func TestLoadStreamList_Missing(t *testing.T) {
	_, err := LoadStreamList(filepath.Join(t.TempDir(), "absent.txt"), nil)
	assert.Error(t, err)
}

func TestNormalizeStreamURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"http kept", "http://example.com/a.ts", "http://example.com/a.ts", true},
		{"https kept", "https://example.com/a", "https://example.com/a", true},
		{"bare hostname coerced", "example.com/live", "https://example.com/live", true},
		{"whitespace trimmed", "  http://example.com/a  ", "http://example.com/a", true},
		{"rtsp kept", "rtsp://example.com/cam", "rtsp://example.com/cam", true},
		{"empty rejected", "", "", false},
		{"no host rejected", "http://", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeStreamURL(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
