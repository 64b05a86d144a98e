package stt

import (
	"context"
	"testing"
	"time"

	"github.com/chadiek/voicechat/internal/voice"
)

func TestSession_TurnEmitsInterim(t *testing.T) {
	s := newSession(nil)
	s.processMessage([]byte(`{"type":"Turn","transcript":"hello wor"}`))

	select {
	case ev := <-s.events:
		if ev.Kind != voice.EventInterim || ev.Text != "hello wor" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatalf("expected an interim event")
	}
	if s.latest != "hello wor" {
		t.Fatalf("latest transcript not recorded: %q", s.latest)
	}
	s.end(nil)
}

func TestSession_FinalizeEmitsFinalAndCloses(t *testing.T) {
	s := newSession(nil)
	s.processMessage([]byte(`{"type":"Turn","transcript":"hello world"}`))
	<-s.events // drain interim

	s.finalize()

	ev, ok := <-s.events
	if !ok {
		t.Fatalf("expected final event before close")
	}
	if ev.Kind != voice.EventFinal || ev.Text != "hello world" {
		t.Fatalf("unexpected final event: %+v", ev)
	}
	if _, ok := <-s.events; ok {
		t.Fatalf("events channel must close after the final result")
	}
}

func TestSession_FinalizeWithoutSpeechClosesSilently(t *testing.T) {
	s := newSession(nil)
	s.finalize()
	if _, ok := <-s.events; ok {
		t.Fatalf("expected closed channel with no events")
	}
}

func TestSession_ProviderErrorEndsSession(t *testing.T) {
	s := newSession(nil)
	s.processMessage([]byte(`{"type":"Error","error":"rate limited"}`))

	ev, ok := <-s.events
	if !ok {
		t.Fatalf("expected an error event")
	}
	if ev.Kind != voice.EventError {
		t.Fatalf("unexpected event kind: %+v", ev)
	}
	var rerr *voice.RecognitionError
	if rerr, ok = ev.Err.(*voice.RecognitionError); !ok || rerr.Code != "rate limited" {
		t.Fatalf("expected RecognitionError with provider code, got %v", ev.Err)
	}
	if _, ok := <-s.events; ok {
		t.Fatalf("events channel must close after an error")
	}
}

func TestSession_SilenceFinalizesLatestTranscript(t *testing.T) {
	s := newSession(nil)
	s.processMessage([]byte(`{"type":"Turn","transcript":"what is the time"}`))
	<-s.events

	// Pretend the last update happened long ago, then let the timer path run.
	s.accMu.Lock()
	s.lastUpdate = time.Now().Add(-2 * silenceThreshold)
	s.accMu.Unlock()
	s.finalizeDueToSilence()

	ev, ok := <-s.events
	if !ok || ev.Kind != voice.EventFinal || ev.Text != "what is the time" {
		t.Fatalf("unexpected event: %+v (ok=%v)", ev, ok)
	}
}

func TestSession_LateUpdateDefersFinalization(t *testing.T) {
	s := newSession(nil)
	s.processMessage([]byte(`{"type":"Turn","transcript":"still talk"}`))
	<-s.events

	// Recent update: the silence callback must reschedule, not finalize.
	s.finalizeDueToSilence()
	select {
	case ev, ok := <-s.events:
		if ok {
			t.Fatalf("unexpected event while speech is active: %+v", ev)
		}
		t.Fatalf("session must not end while speech is active")
	case <-time.After(20 * time.Millisecond):
	}
	s.end(nil)
}

func TestSession_EndIsIdempotent(t *testing.T) {
	s := newSession(nil)
	s.end(nil)
	s.end(&voice.Event{Kind: voice.EventFinal, Text: "late"})
	if _, ok := <-s.events; ok {
		t.Fatalf("no events expected after end")
	}
}

func TestRecognizer_UnsupportedWithoutKey(t *testing.T) {
	r := NewRecognizer("", "en-US")
	if r.Supported() {
		t.Fatalf("expected unsupported without an API key")
	}
	if _, err := r.Start(context.Background()); err != voice.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestRecognizer_SendWithoutSession(t *testing.T) {
	r := NewRecognizer("key", "en-US")
	if err := r.SendPCM16KLE([]byte{0, 0}); err == nil {
		t.Fatalf("expected error feeding audio with no active session")
	}
}
