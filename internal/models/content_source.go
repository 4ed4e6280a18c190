package models

import "path/filepath"

// SourceKind identifies the class of a content source.
type SourceKind int

const (
	// SourceNone is the zero value; no content assigned.
	SourceNone SourceKind = iota
	// SourceStream is a network stream URL.
	SourceStream
	// SourceLocalFile is a local media file path.
	SourceLocalFile
)

func (k SourceKind) String() string {
	switch k {
	case SourceStream:
		return "stream"
	case SourceLocalFile:
		return "local"
	case SourceNone:
		return "none"
	default:
		return "unknown"
	}
}

// ContentSource is a single assignable piece of content: either a stream
// URL or a local file path. Identity is the location string; values are
// immutable once created.
type ContentSource struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location"`
}

// StreamSource returns a ContentSource for a network stream URL.
func StreamSource(url string) ContentSource {
	return ContentSource{Kind: SourceStream, Location: url}
}

// FileSource returns a ContentSource for a local media file.
func FileSource(path string) ContentSource {
	return ContentSource{Kind: SourceLocalFile, Location: path}
}

// IsZero returns true if no content is assigned.
func (s ContentSource) IsZero() bool {
	return s.Kind == SourceNone && s.Location == ""
}

// IsStream returns true for stream sources.
func (s ContentSource) IsStream() bool {
	return s.Kind == SourceStream
}

// IsLocal returns true for local file sources.
func (s ContentSource) IsLocal() bool {
	return s.Kind == SourceLocalFile
}

// Name returns a short human-readable name for the source: the file base
// name for local files, the full URL for streams.
func (s ContentSource) Name() string {
	if s.IsLocal() {
		return filepath.Base(s.Location)
	}
	return s.Location
}

func (s ContentSource) String() string {
	if s.IsZero() {
		return "<none>"
	}
	return s.Kind.String() + ":" + s.Location
}
