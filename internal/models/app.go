package models

// Status is the client-side lifecycle of one turn.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// Busy reports whether a turn is in flight and new input must wait.
func (s Status) Busy() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	UserID   string    `json:"userId,omitempty"`
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Messages    []Message // Snapshot of the conversation from core
	Status      Status    // Turn status from core
	StatusText  string    // Status bar text
	LastError   string    // Last error surfaced by core
	ShowUpgrade bool      // Rate limit / quota prompt visible
	Width       int       // Terminal width
	Height      int       // Terminal height
	Ready       bool      // Whether the chat service is configured
}
