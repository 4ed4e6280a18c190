package models

// SlotState is the playback state of a single display slot.
type SlotState int

const (
	// SlotIdle is the initial state before any content is assigned.
	SlotIdle SlotState = iota
	// SlotLoadingStream means a stream load has been issued and the slot
	// is waiting for the backend to report readiness.
	SlotLoadingStream
	// SlotPlayingStream means a stream is playing.
	SlotPlayingStream
	// SlotStalledStream means the stream stalled or timed out while loading.
	SlotStalledStream
	// SlotErrorStream means the backend reported a stream error.
	SlotErrorStream
	// SlotEndedStream means the stream signalled end-of-media.
	SlotEndedStream
	// SlotLoadingLocal means a local file load has been issued.
	SlotLoadingLocal
	// SlotPlayingLocal means a local file is playing.
	SlotPlayingLocal
	// SlotStalledLocal means the local file stalled or timed out.
	SlotStalledLocal
	// SlotErrorLocal means the backend reported a local playback error.
	SlotErrorLocal
	// SlotEndedLocal means the local file signalled end-of-media.
	SlotEndedLocal
	// SlotNoMedia means no candidate source of either class is available.
	// Not terminal: the slot is retried on the next refresh.
	SlotNoMedia
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotLoadingStream:
		return "loading-stream"
	case SlotPlayingStream:
		return "playing-stream"
	case SlotStalledStream:
		return "stalled-stream"
	case SlotErrorStream:
		return "error-stream"
	case SlotEndedStream:
		return "ended-stream"
	case SlotLoadingLocal:
		return "loading-local"
	case SlotPlayingLocal:
		return "playing-local"
	case SlotStalledLocal:
		return "stalled-local"
	case SlotErrorLocal:
		return "error-local"
	case SlotEndedLocal:
		return "ended-local"
	case SlotNoMedia:
		return "no-media"
	default:
		return "unknown"
	}
}

// IsStream returns true for states on the stream branch of the machine.
func (s SlotState) IsStream() bool {
	switch s {
	case SlotLoadingStream, SlotPlayingStream, SlotStalledStream, SlotErrorStream, SlotEndedStream:
		return true
	default:
		return false
	}
}

// IsLocal returns true for states on the local-file branch of the machine.
func (s SlotState) IsLocal() bool {
	switch s {
	case SlotLoadingLocal, SlotPlayingLocal, SlotStalledLocal, SlotErrorLocal, SlotEndedLocal:
		return true
	default:
		return false
	}
}

// IsPlaying returns true if the slot is actively playing content.
func (s SlotState) IsPlaying() bool {
	return s == SlotPlayingStream || s == SlotPlayingLocal
}

// IsLoading returns true if the slot is waiting on a pending load.
func (s SlotState) IsLoading() bool {
	return s == SlotLoadingStream || s == SlotLoadingLocal
}

// MediaStatus is a status report from the media backend about a load
// attempt or an ongoing playback.
type MediaStatus int

const (
	// StatusLoading means the backend has begun loading the source.
	StatusLoading MediaStatus = iota
	// StatusReady means the source loaded/buffered and playback can start.
	StatusReady
	// StatusStalled means playback stalled mid-stream.
	StatusStalled
	// StatusEnded means the source reached end-of-media.
	StatusEnded
	// StatusInvalid means the source is definitively unplayable.
	StatusInvalid
	// StatusError means the backend hit a codec/network/permission error.
	StatusError
)

func (m MediaStatus) String() string {
	switch m {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusStalled:
		return "stalled"
	case StatusEnded:
		return "ended"
	case StatusInvalid:
		return "invalid"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// FailureClass groups backend statuses by how the state machine reacts
// to them.
type FailureClass int

const (
	// FailureNone means the status is not a failure.
	FailureNone FailureClass = iota
	// FailureTransient covers stalls, buffering timeouts, and transient
	// network errors; retried against the retry budget.
	FailureTransient
	// FailureDefinitive covers invalid media and access errors; skip to
	// another candidate immediately.
	FailureDefinitive
	// FailureEnded is end-of-media; not a failure, the source loops.
	FailureEnded
)

func (f FailureClass) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTransient:
		return "transient"
	case FailureDefinitive:
		return "definitive"
	case FailureEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ClassifyStatus maps a backend status to its failure class. The mapping
// is table-driven so tests can enumerate every class.
func ClassifyStatus(status MediaStatus) FailureClass {
	switch status {
	case StatusStalled, StatusError:
		return FailureTransient
	case StatusInvalid:
		return FailureDefinitive
	case StatusEnded:
		return FailureEnded
	case StatusLoading, StatusReady:
		return FailureNone
	default:
		return FailureNone
	}
}
