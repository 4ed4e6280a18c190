package models

import "errors"

// Common errors for the orchestration core.
var (
	// ErrNoStreamsAvailable indicates the stream pool is exhausted for a
	// request.
	ErrNoStreamsAvailable = errors.New("no streams available")

	// ErrNoLocalFilesAvailable indicates the local library is empty after
	// filtering.
	ErrNoLocalFilesAvailable = errors.New("no local files available")

	// ErrDisplayNotFound indicates an unknown display identifier.
	ErrDisplayNotFound = errors.New("display not found")

	// ErrDisplayExists indicates a display identifier is already in use.
	ErrDisplayExists = errors.New("display already exists")

	// ErrSlotNotFound indicates an unknown slot identifier.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrDisplayShutdown indicates an operation was issued against a
	// display that has been shut down.
	ErrDisplayShutdown = errors.New("display has been shut down")

	// ErrAlreadyStarted indicates a component was started twice.
	ErrAlreadyStarted = errors.New("already started")

	// ErrStreamListRequired indicates no stream list or local library was
	// supplied at startup.
	ErrStreamListRequired = errors.New("at least one of stream list or local library is required")
)
