package voice

import (
	"context"
	"errors"
)

// EventKind discriminates transcript events emitted by a Capture session.
type EventKind int

const (
	// EventInterim is a provisional transcript that may still be revised.
	EventInterim EventKind = iota
	// EventFinal is the terminal transcript for one utterance. It ends the
	// capture session.
	EventFinal
	// EventError reports a recognition failure. It ends the capture session;
	// the user must start a new one.
	EventError
)

// Event is one transcript event from an active capture session.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Capture wraps a speech recognizer in single-utterance mode: interim results
// are emitted while the user speaks, the first final result ends the session.
// Sessions are restartable; each Start opens a fresh one.
type Capture interface {
	// Start begins a capture session and returns its event stream. The channel
	// is closed when the session ends, whether by a final result, an error, or
	// Stop. Returns ErrUnsupported when no recognizer is available.
	Start(ctx context.Context) (<-chan Event, error)
	// Stop ends an active session early, discarding further results.
	Stop()
	// Supported reports whether a recognizer is available at all. Checked once
	// at controller construction.
	Supported() bool
}

// Speaker queues one utterance of synthesized speech. Speak is non-blocking;
// playback happens asynchronously and a newer call wins over an unfinished one.
type Speaker interface {
	Speak(text string)
}

// ErrUnsupported is returned by Capture.Start when the platform offers no
// recognizer. Fatal for the session; shown once, never retried.
var ErrUnsupported = errors.New("speech recognition is not supported")

// RecognitionError is a per-attempt recognizer failure with the provider's
// error code. Recoverable: the user may simply try again.
type RecognitionError struct {
	Code string
}

func (e *RecognitionError) Error() string { return "recognition error: " + e.Code }
