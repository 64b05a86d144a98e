package engine

import (
	"context"
	"errors"

	"github.com/chadiek/voicechat/internal/chat"
)

// Engine produces an assistant reply for a user message. Implementations may
// consult the rolling conversation history; the local variant ignores it.
type Engine interface {
	Respond(ctx context.Context, message string, history []chat.Turn) (string, error)
}

// ErrMissingCredential is returned when no API key is configured for the
// upstream completion service. The condition is checked at call time so that
// supplying the key does not require a rebuild, only a restart.
var ErrMissingCredential = errors.New("openai api key missing")

// UpstreamError wraps a failure from the hosted completion service: transport
// errors, non-2xx statuses and empty completion bodies all map here.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "upstream completion failed: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }
