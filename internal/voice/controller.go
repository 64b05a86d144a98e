package voice

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/chadiek/voicechat/internal/chat"
	"github.com/chadiek/voicechat/internal/engine"
)

// Phase is the controller's position in the interaction loop.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseListening
	PhaseProcessing
)

// Fixed user-facing messages. Spoken as well as displayed.
const (
	// UnsupportedNotice is shown when the toggle is used without a recognizer.
	UnsupportedNotice = "Sorry, speech recognition is not supported here."
	// FallbackReply is spoken when the response engine fails.
	FallbackReply = "I'm sorry, I'm having trouble processing your request right now. Please try again."
	// CredentialReply is spoken when the engine reports a missing credential.
	CredentialReply = "I can't reach my language service because no API key is configured. Set the OPENAI_API_KEY environment variable and restart the server."
)

// SessionState is the controller-owned state consumed by the presentation
// layer. Readers get copies; only the controller mutates it.
type SessionState struct {
	Listening       bool   `json:"isListening"`
	Processing      bool   `json:"isProcessing"`
	Transcript      string `json:"transcript"`
	Response        string `json:"response"`
	Supported       bool   `json:"isSupported"`
	NeedsCredential bool   `json:"needsCredential"`
}

// Controller glues capture -> engine -> output for one interactive session.
// All work is reactive to capture events, engine completion and Toggle calls;
// every transition runs under one mutex so Listening and Processing can never
// be observed true together.
type Controller struct {
	capture Capture
	engine  engine.Engine
	speaker Speaker

	// OnChange, if set, receives a state snapshot after every transition.
	OnChange func(SessionState)
	// OnNotice, if set, receives transient user-visible notices (recognition
	// errors, unsupported-platform taps) that are not part of SessionState.
	OnNotice func(string)
	// OnExchange, if set, receives each completed user/assistant exchange.
	OnExchange func(user, assistant string)

	mu      sync.Mutex
	phase   Phase
	state   SessionState
	history chat.History
	cancel  context.CancelFunc
}

// NewController constructs an idle controller. Support is probed once, here.
func NewController(capture Capture, eng engine.Engine, speaker Speaker) *Controller {
	c := &Controller{
		capture: capture,
		engine:  eng,
		speaker: speaker,
	}
	c.state.Supported = capture.Supported()
	return c
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase returns the controller's current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// History returns a copy of the completed conversation turns.
func (c *Controller) History() []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.All()
}

// Toggle starts a listening session from idle, cancels an active one, and is
// a strict no-op while a response is being produced.
func (c *Controller) Toggle(ctx context.Context) {
	c.mu.Lock()

	if !c.state.Supported {
		c.mu.Unlock()
		c.notify(UnsupportedNotice)
		return
	}

	switch c.phase {
	case PhaseProcessing:
		c.mu.Unlock()
		return
	case PhaseListening:
		cancel := c.cancel
		c.cancel = nil
		c.phase = PhaseIdle
		c.state.Listening = false
		st := c.state
		c.mu.Unlock()
		c.capture.Stop()
		if cancel != nil {
			cancel()
		}
		c.push(st)
		return
	}

	// Idle -> Listening: a fresh session starts with a clean slate.
	c.state.Transcript = ""
	c.state.Response = ""
	sessCtx, cancel := context.WithCancel(ctx)
	events, err := c.capture.Start(sessCtx)
	if err != nil {
		cancel()
		st := c.state
		c.mu.Unlock()
		c.push(st)
		if errors.Is(err, ErrUnsupported) {
			c.notify(UnsupportedNotice)
		} else {
			log.Printf("capture start failed: %v", err)
			c.notify("Could not start listening. Please try again.")
		}
		return
	}
	c.cancel = cancel
	c.phase = PhaseListening
	c.state.Listening = true
	st := c.state
	c.mu.Unlock()
	c.push(st)

	go c.consume(events)
}

// consume drains one capture session's event stream.
func (c *Controller) consume(events <-chan Event) {
	for ev := range events {
		switch ev.Kind {
		case EventInterim:
			c.mu.Lock()
			if c.phase != PhaseListening {
				c.mu.Unlock()
				continue
			}
			c.state.Transcript = ev.Text
			st := c.state
			c.mu.Unlock()
			c.push(st)

		case EventFinal:
			c.mu.Lock()
			if c.phase != PhaseListening {
				c.mu.Unlock()
				continue
			}
			if ev.Text != "" {
				c.state.Transcript = ev.Text
			}
			transcript := c.state.Transcript
			c.phase = PhaseProcessing
			c.state.Listening = false
			c.state.Processing = true
			cancel := c.cancel
			c.cancel = nil
			st := c.state
			c.mu.Unlock()
			c.capture.Stop()
			if cancel != nil {
				cancel()
			}
			c.push(st)
			if transcript == "" {
				// Nothing was heard; go straight back to idle.
				c.finish("", false)
				continue
			}
			// Deliberately detached from the capture session context: the
			// engine call has no timeout and keeps Processing until it
			// returns.
			c.respond(context.Background(), transcript)

		case EventError:
			c.mu.Lock()
			if c.phase != PhaseListening {
				c.mu.Unlock()
				continue
			}
			c.phase = PhaseIdle
			c.state.Listening = false
			cancel := c.cancel
			c.cancel = nil
			st := c.state
			c.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			c.push(st)
			log.Printf("recognition error: %v", ev.Err)
			c.notify("Speech recognition failed. Please try again.")
		}
	}

	// Session ended without a final result (explicit stop or provider close).
	c.mu.Lock()
	if c.phase == PhaseListening {
		c.phase = PhaseIdle
		c.state.Listening = false
		st := c.state
		c.mu.Unlock()
		c.push(st)
		return
	}
	c.mu.Unlock()
}

// respond runs the engine for one final transcript and speaks the outcome.
// Engine failures never propagate; they become a fixed spoken message.
func (c *Controller) respond(ctx context.Context, transcript string) {
	reply, err := c.engine.Respond(ctx, transcript, c.History())
	if err != nil {
		log.Printf("engine error: %v", err)
		if errors.Is(err, engine.ErrMissingCredential) {
			c.mu.Lock()
			c.state.NeedsCredential = true
			c.mu.Unlock()
			c.finish(CredentialReply, true)
			return
		}
		c.finish(FallbackReply, true)
		return
	}

	c.mu.Lock()
	c.history.Append(chat.RoleUser, transcript)
	c.history.Append(chat.RoleAssistant, reply)
	c.mu.Unlock()
	c.finish(reply, true)
	if c.OnExchange != nil {
		c.OnExchange(transcript, reply)
	}
}

// finish stores the response, returns to idle and speaks the reply.
func (c *Controller) finish(reply string, speak bool) {
	c.mu.Lock()
	c.state.Response = reply
	c.state.Processing = false
	c.phase = PhaseIdle
	st := c.state
	c.mu.Unlock()
	c.push(st)
	if speak && reply != "" && c.speaker != nil {
		c.speaker.Speak(reply)
	}
}

func (c *Controller) push(st SessionState) {
	if c.OnChange != nil {
		c.OnChange(st)
	}
}

func (c *Controller) notify(msg string) {
	if c.OnNotice != nil {
		c.OnNotice(msg)
	}
}
