// Package stt implements the speech-capture side of the voice loop on top of
// AssemblyAI's realtime streaming API. A Recognizer opens one WebSocket session
// per utterance: interim transcripts stream out while the user speaks and a
// silence window ends the turn with a single final result.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chadiek/voicechat/internal/voice"
)

// silenceThreshold is the inactivity window required before an utterance is
// considered complete. Conservative, to avoid cutting the user mid-sentence.
const silenceThreshold = 700 * time.Millisecond

const streamEndpoint = "wss://streaming.assemblyai.com/v3/ws"

// Recognizer implements voice.Capture. One utterance per Start; a new Start
// replaces any session still open.
type Recognizer struct {
	apiKey string
	locale string

	mu   sync.Mutex
	sess *session
}

// NewRecognizer constructs a Recognizer with a fixed locale.
func NewRecognizer(apiKey, locale string) *Recognizer {
	if locale == "" {
		locale = "en-US"
	}
	return &Recognizer{apiKey: apiKey, locale: locale}
}

// Supported reports whether a recognizer credential is configured.
func (r *Recognizer) Supported() bool { return r.apiKey != "" }

// Start opens a streaming session and returns its event channel.
func (r *Recognizer) Start(ctx context.Context) (<-chan voice.Event, error) {
	if r.apiKey == "" {
		return nil, voice.ErrUnsupported
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sess != nil {
		r.sess.end(nil)
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("encoding", "pcm_s16le")
	params.Set("format_turns", "false")
	params.Set("language", r.locale)
	wsURL := fmt.Sprintf("%s?%s", streamEndpoint, params.Encode())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, map[string][]string{
		"Authorization": {r.apiKey},
	})
	if err != nil {
		if resp != nil {
			log.Printf("recognizer connect failed with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("connect recognizer: %w", err)
	}

	s := newSession(conn)
	go s.readLoop()
	go s.sendLoop()
	r.sess = s
	return s.events, nil
}

// Stop ends the active session early, discarding further results.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	s := r.sess
	r.sess = nil
	r.mu.Unlock()
	if s != nil {
		s.end(nil)
	}
}

// SendPCM16KLE feeds 16kHz little-endian mono PCM into the active session.
func (r *Recognizer) SendPCM16KLE(pcm []byte) error {
	r.mu.Lock()
	s := r.sess
	r.mu.Unlock()
	if s == nil {
		return fmt.Errorf("no active capture session")
	}
	s.sendAudio(pcm)
	return nil
}

// Provider message types.
type beginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type turnMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// session is one single-utterance streaming session.
type session struct {
	conn   *websocket.Conn
	events chan voice.Event
	audio  chan []byte
	stopCh chan struct{}

	endOnce sync.Once

	accMu        sync.Mutex
	latest       string
	lastUpdate   time.Time
	silenceTimer *time.Timer
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		conn:   conn,
		events: make(chan voice.Event, 32),
		audio:  make(chan []byte, 256),
		stopCh: make(chan struct{}),
	}
}

func (s *session) sendAudio(pcm []byte) {
	select {
	case <-s.stopCh:
	case s.audio <- pcm:
	default:
		log.Println("audio buffer full, dropping packet")
	}
}

func (s *session) sendLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		case pcm := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				log.Printf("recognizer write error: %v", err)
				return
			}
		}
	}
}

func (s *session) readLoop() {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				// closed locally; not an error
			default:
				s.end(&voice.Event{Kind: voice.EventError, Err: &voice.RecognitionError{Code: "network"}})
			}
			return
		}
		s.processMessage(message)
	}
}

// processMessage handles one provider message.
func (s *session) processMessage(message []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		log.Printf("recognizer: bad message: %v", err)
		return
	}
	switch base.Type {
	case "Begin":
		var msg beginMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			log.Printf("recognizer session began: id=%s", msg.ID)
		}
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		if msg.Transcript == "" {
			return
		}
		// Provisional result; may still be revised.
		select {
		case s.events <- voice.Event{Kind: voice.EventInterim, Text: msg.Transcript}:
		default:
		}
		s.accMu.Lock()
		s.latest = msg.Transcript
		s.lastUpdate = time.Now()
		if s.silenceTimer == nil {
			s.silenceTimer = time.AfterFunc(silenceThreshold, s.finalizeDueToSilence)
		} else {
			s.silenceTimer.Stop()
			s.silenceTimer.Reset(silenceThreshold)
		}
		s.accMu.Unlock()
	case "Termination":
		s.finalize()
	case "Error":
		var msg errorMessage
		_ = json.Unmarshal(message, &msg)
		log.Printf("recognizer error: %s", msg.Error)
		s.end(&voice.Event{Kind: voice.EventError, Err: &voice.RecognitionError{Code: msg.Error}})
	default:
		log.Printf("recognizer: unknown message type %q", base.Type)
	}
}

// finalizeDueToSilence fires after silenceThreshold of transcript inactivity.
// A late update reschedules instead of finalizing.
func (s *session) finalizeDueToSilence() {
	select {
	case <-s.stopCh:
		return
	default:
	}

	s.accMu.Lock()
	since := time.Since(s.lastUpdate)
	if since < silenceThreshold {
		wait := silenceThreshold - since
		if wait < 10*time.Millisecond {
			wait = 10 * time.Millisecond
		}
		if s.silenceTimer != nil {
			s.silenceTimer.Reset(wait)
		} else {
			s.silenceTimer = time.AfterFunc(wait, s.finalizeDueToSilence)
		}
		s.accMu.Unlock()
		return
	}
	s.accMu.Unlock()
	s.finalize()
}

// finalize emits the terminal transcript, if any, and ends the session.
func (s *session) finalize() {
	s.accMu.Lock()
	text := s.latest
	s.accMu.Unlock()
	if text == "" {
		s.end(nil)
		return
	}
	s.end(&voice.Event{Kind: voice.EventFinal, Text: text})
}

// end shuts the session down exactly once, optionally delivering a terminal
// event first. The events channel is always closed so consumers unblock.
func (s *session) end(ev *voice.Event) {
	s.endOnce.Do(func() {
		close(s.stopCh)
		s.accMu.Lock()
		if s.silenceTimer != nil {
			s.silenceTimer.Stop()
			s.silenceTimer = nil
		}
		s.accMu.Unlock()
		if ev != nil {
			s.events <- *ev
		}
		close(s.events)
		if s.conn != nil {
			_ = s.conn.WriteJSON(map[string]string{"type": "Terminate"})
			_ = s.conn.Close()
		}
	})
}
