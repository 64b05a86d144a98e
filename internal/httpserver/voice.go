package httpserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/chadiek/voicechat/internal/config"
	"github.com/chadiek/voicechat/internal/stt"
	"github.com/chadiek/voicechat/internal/tts"
	"github.com/chadiek/voicechat/internal/voice"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin for browser demos; restrict in production
		return true
	},
}

// serverEvent is a JSON message pushed to the browser. Binary frames on the
// same socket carry 48kHz PCM16LE of the spoken reply.
type serverEvent struct {
	Type  string              `json:"type"` // "state" or "notice"
	State *voice.SessionState `json:"state,omitempty"`
	Text  string              `json:"text,omitempty"`
}

// clientMessage is a JSON control message from the browser. Binary frames
// carry 16kHz PCM16LE microphone audio instead.
type clientMessage struct {
	Type string `json:"type"` // "toggle" or "bye"
}

// wsSession owns one browser voice connection. It is the PCM sink for the
// speaker and serializes all socket writes behind one mutex.
type wsSession struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (s *wsSession) send(ev serverEvent) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		log.Printf("voice[%s]: write event: %v", s.id, err)
	}
}

// WritePCM implements tts.PCMSink.
func (s *wsSession) WritePCM(pcm []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		log.Printf("voice[%s]: write audio: %v", s.id, err)
	}
}

// handleVoice runs one voice-chat session over a WebSocket connection.
func (s *Server) handleVoice(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("voice: upgrade failed: %v", err)
		return nil
	}
	sess := &wsSession{id: uuid.NewString(), conn: conn}
	defer func() { _ = conn.Close() }()
	log.Printf("voice[%s]: session opened", sess.id)

	recognizer := stt.NewRecognizer(s.cfg.AssemblyAIKey, s.cfg.SpeechLocale)
	speaker := tts.NewSpeaker(newSynthesizer(s.cfg), sess)
	ctrl := voice.NewController(recognizer, s.engine, speaker)
	ctrl.OnChange = func(st voice.SessionState) {
		sess.send(serverEvent{Type: "state", State: &st})
	}
	ctrl.OnNotice = func(msg string) {
		sess.send(serverEvent{Type: "notice", Text: msg})
	}

	// Initial state so the client can render before the first toggle.
	st := ctrl.Snapshot()
	sess.send(serverEvent{Type: "state", State: &st})

	ctx := c.Request().Context()
	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.BinaryMessage:
			if err := recognizer.SendPCM16KLE(message); err != nil {
				// Audio outside a listening session is simply discarded.
				continue
			}
		case websocket.TextMessage:
			var msg clientMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				log.Printf("voice[%s]: bad control message: %v", sess.id, err)
				continue
			}
			switch msg.Type {
			case "toggle":
				ctrl.Toggle(ctx)
			case "bye":
				s.closeVoiceSession(sess, recognizer, speaker, ctrl)
				return nil
			default:
				log.Printf("voice[%s]: unknown control message %q", sess.id, msg.Type)
			}
		}
	}

	s.closeVoiceSession(sess, recognizer, speaker, ctrl)
	return nil
}

func (s *Server) closeVoiceSession(sess *wsSession, recognizer *stt.Recognizer, speaker *tts.Speaker, ctrl *voice.Controller) {
	recognizer.Stop()
	speaker.Stop()
	turns := ctrl.History()
	log.Printf("voice[%s]: session closed after %d turns", sess.id, len(turns))
	if len(turns) == 0 {
		return
	}
	go func() {
		if err := s.store.Save(sess.id, turns); err != nil {
			log.Printf("voice[%s]: archive failed: %v", sess.id, err)
		}
	}()
}

// newSynthesizer selects the speech-output backend from configuration.
func newSynthesizer(cfg config.Config) tts.Synthesizer {
	if cfg.TTSProvider == "elevenlabs" {
		return tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	}
	return tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModelID)
}
