package chat

// Role values for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryWindow is the number of most recent turns included in engine calls.
const HistoryWindow = 10

// Turn is one utterance in a conversation. Immutable once created.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is an append-only ordered sequence of turns.
type History struct {
	turns []Turn
}

// Append records a completed turn at the end of the history.
func (h *History) Append(role, content string) {
	h.turns = append(h.turns, Turn{Role: role, Content: content})
}

// Len returns the number of recorded turns.
func (h *History) Len() int { return len(h.turns) }

// Tail returns the most recent n turns, oldest-first. The returned slice is a
// copy; callers may not mutate history through it.
func (h *History) Tail(n int) []Turn {
	if n <= 0 || len(h.turns) == 0 {
		return nil
	}
	start := 0
	if len(h.turns) > n {
		start = len(h.turns) - n
	}
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// All returns a copy of every recorded turn, oldest-first.
func (h *History) All() []Turn {
	return h.Tail(len(h.turns))
}
