// Package playlist parses stream playlists. Plain URL lists and extended
// M3U are both supported, with transparent gzip, bzip2, and xz
// decompression.
package playlist

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

// Entry is a single stream in a playlist. For plain URL lists only URL
// and the derived Title are set.
type Entry struct {
	// Title is the display title, from the EXTINF line or the URL.
	Title string

	// Group is the category from the group-title attribute.
	Group string

	// Duration is the track duration in seconds (-1 for live streams).
	Duration int

	// URL is the stream URL.
	URL string

	// Attrs holds any other EXTINF attributes, keyed lowercase.
	Attrs map[string]string
}

// Parser provides streaming playlist parsing with callback-based
// processing.
type Parser struct {
	// OnEntry is called for each parsed entry.
	OnEntry func(entry *Entry) error

	// OnError is called for recoverable parsing errors.
	// If nil, errors are silently ignored.
	OnError func(lineNum int, err error)
}

var (
	// Matches duration and attributes portion: #EXTINF:-1 group-title="...",Title
	extinfRegex = regexp.MustCompile(`^#EXTINF:\s*(-?\d+)\s*(.*)$`)

	// Matches key="value" or key=value patterns
	attrRegex = regexp.MustCompile(`([a-zA-Z0-9_-]+)=(?:"([^"]*)"|([^\s,]+))`)
)

// Parse parses a playlist from a reader, calling OnEntry for each
// stream. Lines starting with # that are not EXTINF directives are
// treated as comments; any other non-empty line is a URL.
func (p *Parser) Parse(r io.Reader) error {
	if p.OnEntry == nil {
		return fmt.Errorf("OnEntry callback is required")
	}

	scanner := bufio.NewScanner(r)
	// Some playlists carry very long URLs
	const maxLineSize = 1024 * 1024
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	var pending *Entry
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#EXTM3U") {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			entry, err := p.parseExtinf(line)
			if err != nil {
				p.handleError(lineNum, err)
				continue
			}
			pending = entry
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		entry := pending
		pending = nil
		if entry == nil {
			entry = &Entry{Duration: -1, Title: titleFromURL(line)}
		}
		entry.URL = line
		if err := p.OnEntry(entry); err != nil {
			return fmt.Errorf("callback error at line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning playlist: %w", err)
	}

	return nil
}

// ParseCompressed parses a potentially compressed playlist, detecting
// gzip, bzip2, and xz by their magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' && header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

// parseExtinf parses an EXTINF line and extracts metadata.
func (p *Parser) parseExtinf(line string) (*Entry, error) {
	matches := extinfRegex.FindStringSubmatch(line)
	if matches == nil {
		return nil, fmt.Errorf("invalid EXTINF format")
	}

	duration, _ := strconv.Atoi(matches[1])
	remainder := matches[2]

	entry := &Entry{
		Duration: duration,
		Attrs:    make(map[string]string),
	}

	// The title is everything after the last comma outside quotes.
	if idx := titleStart(remainder); idx >= 0 {
		entry.Title = strings.TrimSpace(remainder[idx+1:])
		remainder = remainder[:idx]
	}

	for _, match := range attrRegex.FindAllStringSubmatch(remainder, -1) {
		key := strings.ToLower(match[1])
		value := match[2]
		if value == "" {
			value = match[3]
		}
		if key == "group-title" {
			entry.Group = value
			continue
		}
		entry.Attrs[key] = value
	}

	return entry, nil
}

// titleStart finds the index of the comma that separates attributes from
// the title, skipping commas inside quoted values.
func titleStart(s string) int {
	inQuotes := false
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '"' {
			inQuotes = !inQuotes
		}
		if s[i] == ',' && !inQuotes {
			return i
		}
	}
	return -1
}

// titleFromURL derives a title from a URL when no EXTINF is present.
func titleFromURL(url string) string {
	parts := strings.Split(url, "/")
	name := parts[len(parts)-1]
	if idx := strings.Index(name, "?"); idx > 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	if name == "" {
		return url
	}
	return name
}

func (p *Parser) handleError(lineNum int, err error) {
	if p.OnError != nil {
		p.OnError(lineNum, err)
	}
}
