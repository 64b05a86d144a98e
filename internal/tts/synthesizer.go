// Package tts implements speech output: a Synthesizer streams PCM audio for
// one utterance from a hosted voice service, and a Speaker queues utterances
// at fixed playback parameters on top of it.
package tts

import "context"

// UtteranceParams are the playback parameters applied to every utterance.
// They are fixed for the lifetime of a Speaker.
type UtteranceParams struct {
	// Rate is the speaking rate relative to the voice default.
	Rate float64
	// Pitch is the pitch multiplier. Backends without pitch control ignore it.
	Pitch float64
	// Volume is a linear gain in [0,1] applied to the PCM stream.
	Volume float64
}

// DefaultUtterance mirrors the original front end: slightly slower than the
// voice default, neutral pitch, slightly reduced volume.
var DefaultUtterance = UtteranceParams{Rate: 0.9, Pitch: 1.0, Volume: 0.8}

// Synthesizer streams 48kHz PCM16LE mono audio for the given text. Both
// channels are closed by the implementation when the stream ends or ctx is
// cancelled.
type Synthesizer interface {
	StreamPCM48k(ctx context.Context, text string, params UtteranceParams) (<-chan []byte, <-chan error)
}

// PCMSink consumes 48kHz PCM16LE bytes and performs delivery (e.g. binary
// WebSocket frames to the browser). Implementations should buffer internally.
type PCMSink interface {
	WritePCM(pcm []byte)
}
