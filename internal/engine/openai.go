package engine

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/chadiek/voicechat/internal/chat"
)

// systemPrompt is the fixed voice-assistant persona sent with every request.
const systemPrompt = "You are a helpful voice assistant. Keep your responses concise and conversational, since they will be read aloud. Use natural spoken language and avoid lists, markdown or overly long answers. You do not have access to real-time information such as weather, news or current events."

// Generation parameters are fixed; the endpoint is not tunable per request.
const (
	maxTokens        = 300
	temperature      = 0.7
	presencePenalty  = 0.6
	frequencyPenalty = 0.3
)

// OpenAI is the remote response engine: it forwards the user message plus the
// most recent conversation turns to a hosted chat-completions service.
type OpenAI struct {
	client oai.Client
	apiKey string
	model  string
}

// Option configures an OpenAI engine during construction.
type Option func(*[]option.RequestOption)

// WithBaseURL overrides the completion service base URL. Used for self-hosted
// compatible endpoints and for tests.
func WithBaseURL(url string) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

// NewOpenAI constructs the remote engine. An empty apiKey is allowed here;
// the credential is checked at call time so the missing-key condition stays
// recoverable and reportable instead of fatal.
func NewOpenAI(apiKey, model string, opts ...Option) *OpenAI {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Upstream failures are surfaced to the user, not retried.
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &OpenAI{
		client: oai.NewClient(reqOpts...),
		apiKey: apiKey,
		model:  model,
	}
}

// Respond implements Engine. History beyond the last chat.HistoryWindow turns
// is dropped, oldest first; retained turns are forwarded unmodified.
func (e *OpenAI) Respond(ctx context.Context, message string, history []chat.Turn) (string, error) {
	if e.apiKey == "" {
		return "", ErrMissingCredential
	}

	recent := history
	if len(recent) > chat.HistoryWindow {
		recent = recent[len(recent)-chat.HistoryWindow:]
	}

	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(recent)+2)
	messages = append(messages, oai.SystemMessage(systemPrompt))
	for _, t := range recent {
		switch t.Role {
		case chat.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(t.Content))
		default:
			messages = append(messages, oai.UserMessage(t.Content))
		}
	}
	messages = append(messages, oai.UserMessage(message))

	resp, err := e.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:            shared.ChatModel(e.model),
		Messages:         messages,
		MaxTokens:        oai.Int(maxTokens),
		Temperature:      oai.Float(temperature),
		PresencePenalty:  oai.Float(presencePenalty),
		FrequencyPenalty: oai.Float(frequencyPenalty),
	})
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &UpstreamError{Err: fmt.Errorf("empty completion")}
	}
	// Returned verbatim: the caller speaks exactly what the model produced.
	return resp.Choices[0].Message.Content, nil
}
