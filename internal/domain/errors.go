package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when an operation reaches a session after teardown.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrSongNotFound indicates the song could not be found in the catalog.
	ErrSongNotFound = errors.New("song not found")
	// ErrNoScript is returned when an operation needs a loaded lyric script.
	ErrNoScript = errors.New("no lyric script loaded")
	// ErrEmptyScript is returned when the loaded script produced no segments.
	ErrEmptyScript = errors.New("lyric script has no segments")
	// ErrPlayerUnavailable is returned when no audio source is attached to the session.
	ErrPlayerUnavailable = errors.New("audio player unavailable")
	// ErrInvalidTransition is returned when an operation is not valid in the current phase.
	ErrInvalidTransition = errors.New("operation not valid in current phase")
	// ErrInvalidSegmentOrder flags segments whose start times are not strictly increasing.
	ErrInvalidSegmentOrder = errors.New("segment start times not strictly increasing")
)

// OrderError reports the first segment that does not start after its predecessor.
type OrderError struct {
	Index    int
	Previous float64
	Start    float64
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("segment %d starts at %.3fs, not after %.3fs", e.Index, e.Start, e.Previous)
}

func (e *OrderError) Unwrap() error {
	return ErrInvalidSegmentOrder
}
