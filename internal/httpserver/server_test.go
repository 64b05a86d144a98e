package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chadiek/voicechat/internal/config"
)

func TestServer_Healthz(t *testing.T) {
	srv := New(config.Config{Engine: "local"})
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestServer_ChatLocalEngine(t *testing.T) {
	srv := New(config.Config{Engine: "local"})
	body := strings.NewReader(`{"message":"hello there"}`)
	r := httptest.NewRequest(http.MethodPost, "/chat", body)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if !strings.Contains(resp.Response, "Hello") {
		t.Fatalf("unexpected reply %q", resp.Response)
	}
}

func TestServer_ChatPreflight(t *testing.T) {
	srv := New(config.Config{Engine: "local"})
	r := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 preflight, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("expected plain ok body, got %q", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Fatalf("missing POST in allowed methods: %q", got)
	}
}

func TestServer_ChatMissingMessage(t *testing.T) {
	srv := New(config.Config{Engine: "local"})
	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"   "}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("errors still return 200, got %d", w.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected failure envelope, got %+v", resp)
	}
}

func TestServer_ChatBadJSON(t *testing.T) {
	srv := New(config.Config{Engine: "local"})
	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{nope`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("errors still return 200, got %d", w.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected failure envelope, got %+v", resp)
	}
}

func TestServer_ChatMissingAPIKey(t *testing.T) {
	// Engine "openai" with no key configured must surface a key hint, still 200.
	srv := New(config.Config{Engine: "openai", OpenAIModelID: "gpt-3.5-turbo"})
	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("errors still return 200, got %d", w.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected failure envelope, got %+v", resp)
	}
	if !strings.Contains(resp.Error, "API key") {
		t.Fatalf("expected API key hint, got %q", resp.Error)
	}
}

func TestServer_ChatHistoryForwarded(t *testing.T) {
	var got struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode upstream body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}]}`))
	}))
	defer upstream.Close()

	srv := New(config.Config{
		Engine:        "openai",
		OpenAIKey:     "test-key",
		OpenAIModelID: "gpt-3.5-turbo",
		OpenAIBaseURL: upstream.URL + "/v1",
	})
	body := strings.NewReader(`{"message":"latest","conversationHistory":[{"role":"user","content":"earlier"},{"role":"assistant","content":"reply"}]}`)
	r := httptest.NewRequest(http.MethodPost, "/chat", body)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)

	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Response != "done" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	// system + 2 history turns + current message
	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 upstream messages, got %d", len(got.Messages))
	}
	if got.Messages[1].Content != "earlier" || got.Messages[3].Content != "latest" {
		t.Fatalf("history not forwarded in order: %+v", got.Messages)
	}
}

func TestServer_VoiceUnsupportedWithoutSTTKey(t *testing.T) {
	srv := New(config.Config{Engine: "local"})
	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/voice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial voice socket: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev serverEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if ev.Type != "state" || ev.State == nil {
		t.Fatalf("expected initial state event, got %+v", ev)
	}
	if ev.State.Supported {
		t.Fatalf("recognition should be unsupported without a provider key")
	}

	if err := conn.WriteJSON(clientMessage{Type: "toggle"}); err != nil {
		t.Fatalf("send toggle: %v", err)
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read notice: %v", err)
	}
	if ev.Type != "notice" || ev.Text == "" {
		t.Fatalf("expected notice event, got %+v", ev)
	}
}
