package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chadiek/voicechat/internal/chat"
	"github.com/chadiek/voicechat/internal/engine"
)

// chatRequest is the POST /chat body.
type chatRequest struct {
	Message             string      `json:"message"`
	ConversationHistory []chat.Turn `json:"conversationHistory"`
}

// chatResponse is the envelope for every /chat answer. The HTTP status is
// always 200; Success is the only failure signal, so browser clients never
// hit a fetch-level error path.
type chatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, chatResponse{Success: false, Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusOK, chatResponse{Success: false, Error: "message is required"})
	}

	reply, err := s.engine.Respond(c.Request().Context(), req.Message, req.ConversationHistory)
	if err != nil {
		log.Printf("chat: engine error: %v", err)
		return c.JSON(http.StatusOK, chatResponse{Success: false, Error: userFacingError(err)})
	}
	return c.JSON(http.StatusOK, chatResponse{Response: reply, Success: true})
}

// userFacingError maps engine failures onto stable client-visible messages.
func userFacingError(err error) string {
	if errors.Is(err, engine.ErrMissingCredential) {
		return "No API key configured. Set the OPENAI_API_KEY environment variable on the server."
	}
	return "The assistant is unavailable right now. Please try again."
}
