package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/stream"
)

var (
	ErrBusy         = errors.New("a message is already being answered")
	ErrEmptyMessage = errors.New("message is empty")
	ErrProtocol     = errors.New("chat stream protocol error")
)

// Snapshot is a deep copy of the conversation handed to readers.
type Snapshot struct {
	Messages    []models.Message
	Status      models.Status
	Err         error
	ShowUpgrade bool
}

// ChatState is the client-side conversation log and turn status. Fragments
// are merged in arrival order; a failed turn keeps whatever arrived.
type ChatState struct {
	mu          sync.RWMutex
	messages    []models.Message
	status      models.Status
	lastError   error
	showUpgrade bool
	open        int // index of the assistant message receiving fragments, or -1
	logger      *slog.Logger
}

func NewChatState(logger *slog.Logger) *ChatState {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatState{
		messages: make([]models.Message, 0),
		status:   models.StatusIdle,
		open:     -1,
		logger:   logger,
	}
}

// BeginTurn appends the user message and moves to submitted. It returns the
// conversation to send.
func (cs *ChatState) BeginTurn(text string) ([]models.Message, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.status.Busy() {
		return nil, ErrBusy
	}
	cs.messages = append(cs.messages, models.NewUserMessage(text))
	cs.status = models.StatusSubmitted
	cs.lastError = nil
	cs.open = -1
	return models.CloneMessages(cs.messages), nil
}

// MarkStreaming records that the reply has started arriving.
func (cs *ChatState) MarkStreaming() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.status == models.StatusSubmitted {
		cs.status = models.StatusStreaming
	}
}

// Apply merges one fragment into the log. An error fragment fails the turn and
// is returned as a *StreamError; an unknown type is a protocol error.
func (cs *ChatState) Apply(f stream.Fragment) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.status == models.StatusSubmitted {
		cs.status = models.StatusStreaming
	}

	switch f.Type {
	case stream.TypeStart:
		cs.openAssistant(f.MessageID)
	case stream.TypeTextDelta:
		cs.appendText(f.Delta)
	case stream.TypeToolInputStart:
		cs.updateTool(f, models.ToolInputStreaming, func(p *models.ToolPart) {})
	case stream.TypeToolInputDelta:
		cs.updateTool(f, models.ToolInputStreaming, func(p *models.ToolPart) {
			p.InputText += f.InputTextDelta
		})
	case stream.TypeToolInputAvailable:
		cs.updateTool(f, models.ToolInputAvailable, func(p *models.ToolPart) {
			if f.Input != nil {
				in := *f.Input
				p.Input = &in
			}
		})
	case stream.TypeToolOutputAvailable:
		cs.updateTool(f, models.ToolOutputAvailable, func(p *models.ToolPart) {
			if f.Output != nil {
				out := f.Output.Clone()
				p.Output = &out
			}
		})
	case stream.TypeToolOutputError:
		cs.updateTool(f, models.ToolOutputError, func(p *models.ToolPart) {
			p.ErrorText = f.ErrorText
		})
	case stream.TypeFinish:
		cs.open = -1
	case stream.TypeError:
		err := &StreamError{Text: f.ErrorText}
		cs.failLocked(err)
		return err
	default:
		err := &StreamError{Err: fmt.Errorf("%w: unknown fragment type %q", ErrProtocol, f.Type)}
		cs.failLocked(err)
		return err
	}
	return nil
}

func (cs *ChatState) openAssistant(id string) {
	cs.messages = append(cs.messages, models.NewAssistantMessage(id))
	cs.open = len(cs.messages) - 1
}

// current returns the open assistant message, opening one if a fragment
// arrives before start.
func (cs *ChatState) current() *models.Message {
	if cs.open < 0 || cs.open >= len(cs.messages) {
		cs.openAssistant("")
	}
	return &cs.messages[cs.open]
}

func (cs *ChatState) appendText(delta string) {
	msg := cs.current()
	if n := len(msg.Parts); n > 0 {
		if last, ok := msg.Parts[n-1].(models.TextPart); ok {
			last.Text += delta
			msg.Parts[n-1] = last
			return
		}
	}
	msg.Parts = append(msg.Parts, models.TextPart{Text: delta})
}

func (cs *ChatState) updateTool(f stream.Fragment, next models.ToolState, mutate func(*models.ToolPart)) {
	msg := cs.current()

	part, idx, ok := msg.ToolPart(f.ToolCallID)
	if !ok {
		part = models.ToolPart{ToolName: f.ToolName, CallID: f.ToolCallID}
	}
	if !part.Advance(next) {
		cs.logger.Warn("ignoring tool fragment that would regress state",
			slog.String("call_id", f.ToolCallID),
			slog.String("state", string(part.State)),
			slog.String("fragment", string(f.Type)),
		)
		return
	}
	if part.ToolName == "" {
		part.ToolName = f.ToolName
	}
	mutate(&part)

	if ok {
		msg.Parts[idx] = part
		return
	}
	msg.Parts = append(msg.Parts, part)
}

// Finish ends the turn normally.
func (cs *ChatState) Finish() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.status = models.StatusIdle
	cs.lastError = nil
	cs.open = -1
}

// Fail ends the turn with err, keeping the partial log.
func (cs *ChatState) Fail(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.failLocked(err)
}

func (cs *ChatState) failLocked(err error) {
	cs.status = models.StatusError
	cs.lastError = err
	cs.open = -1
	if IsUpgradeError(err) {
		cs.showUpgrade = true
	}
}

// Cancel ends the turn at the caller's request. Nothing is recorded as an error.
func (cs *ChatState) Cancel() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.status = models.StatusIdle
	cs.open = -1
}

// Clear empties the conversation unless a turn is in flight.
func (cs *ChatState) Clear() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.status.Busy() {
		return ErrBusy
	}
	cs.messages = make([]models.Message, 0)
	cs.status = models.StatusIdle
	cs.lastError = nil
	cs.showUpgrade = false
	cs.open = -1
	return nil
}

func (cs *ChatState) DismissUpgrade() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.showUpgrade = false
}

func (cs *ChatState) Status() models.Status {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.status
}

func (cs *ChatState) Snapshot() Snapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Snapshot{
		Messages:    models.CloneMessages(cs.messages),
		Status:      cs.status,
		Err:         cs.lastError,
		ShowUpgrade: cs.showUpgrade,
	}
}

// IsUpgradeError reports whether err means the caller hit a rate limit or ran
// out of credits.
func IsUpgradeError(err error) bool {
	if err == nil {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) && (reqErr.Code == stream.RateLimitMarker || reqErr.Code == stream.NoCreditsMarker) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, stream.RateLimitMarker) || strings.Contains(msg, stream.NoCreditsMarker)
}
