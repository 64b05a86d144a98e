// Package archive persists finished conversation transcripts to Supabase
// Storage. Archival is best-effort: the voice loop never waits on it and
// failures are only logged.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/chadiek/voicechat/internal/chat"
)

// Store saves one session's conversation transcript.
type Store interface {
	Save(sessionID string, turns []chat.Turn) error
}

// Transcript is the stored JSON document.
type Transcript struct {
	SessionID string      `json:"sessionId"`
	SavedAt   time.Time   `json:"savedAt"`
	Turns     []chat.Turn `json:"turns"`
}

// Supabase implements Store on a Supabase Storage bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
}

// NewSupabase constructs the store. Returns an error when the project URL or
// key is malformed; missing configuration should be handled by the caller
// (use Nop instead).
func NewSupabase(url, serviceKey, bucket string) (*Supabase, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client, bucket: bucket}, nil
}

// Save uploads the transcript as a JSON object.
func (s *Supabase) Save(sessionID string, turns []chat.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	doc := Transcript{SessionID: sessionID, SavedAt: time.Now().UTC(), Turns: turns}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	key := ObjectKey(sessionID, doc.SavedAt)
	if _, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("upload transcript: %w", err)
	}
	return nil
}

// ObjectKey returns the bucket path for a session transcript, partitioned by
// day so buckets stay browsable.
func ObjectKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("transcripts/%s/%s.json", at.UTC().Format("2006-01-02"), sessionID)
}

// Nop is the Store used when archival is not configured.
type Nop struct{}

func (Nop) Save(string, []chat.Turn) error { return nil }
