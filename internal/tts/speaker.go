package tts

import (
	"context"
	"encoding/binary"
	"log"
	"sync"
)

// Speaker queues utterances on a Synthesizer at fixed playback parameters.
// Speak never blocks; overlapping calls are not coordinated beyond the
// most-recent-wins rule: a new utterance cancels whatever is still streaming.
type Speaker struct {
	synth  Synthesizer
	sink   PCMSink
	params UtteranceParams

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker constructs a Speaker with the default utterance parameters.
func NewSpeaker(synth Synthesizer, sink PCMSink) *Speaker {
	return &Speaker{synth: synth, sink: sink, params: DefaultUtterance}
}

// Speak implements voice.Speaker.
func (s *Speaker) Speak(text string) {
	if text == "" || s.synth == nil {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.stream(ctx, cancel, text)
}

// Stop cancels any in-flight utterance.
func (s *Speaker) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Speaker) stream(ctx context.Context, cancel context.CancelFunc, text string) {
	defer cancel()
	pcmCh, errCh := s.synth.StreamPCM48k(ctx, text, s.params)
	openPCM, openErr := true, true
	for openPCM || openErr {
		select {
		case b, ok := <-pcmCh:
			if !ok {
				openPCM = false
				continue
			}
			if len(b) > 0 && s.sink != nil {
				s.sink.WritePCM(applyGain(b, s.params.Volume))
			}
		case e, ok := <-errCh:
			if ok && e != nil {
				log.Printf("tts stream error: %v", e)
			}
			openErr = false
		case <-ctx.Done():
			return
		}
	}
}

// applyGain scales 16-bit little-endian PCM samples by a linear gain.
func applyGain(pcm []byte, gain float64) []byte {
	if gain >= 1 || gain < 0 {
		return pcm
	}
	out := make([]byte, len(pcm)&^1)
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		binary.LittleEndian.PutUint16(out[i:i+2], uint16(int16(float64(v)*gain)))
	}
	return out
}
