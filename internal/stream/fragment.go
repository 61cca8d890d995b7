// Package stream is the wire codec between the chat endpoint and its clients.
//
// A response is a sequence of server-sent-event frames, each carrying one JSON
// fragment, terminated by a "[DONE]" frame. Only the multi-state tool protocol
// (v1) is spoken; the version travels in the ProtocolHeader response header.
package stream

import (
	"errors"
	"fmt"

	"github.com/filiksyos/linkedin-search-app/internal/models"
)

const (
	ProtocolHeader  = "X-Chat-Stream-Protocol"
	ProtocolVersion = "v1"

	doneMarker = "[DONE]"
)

// Error markers carried in error text and response codes. Clients key the
// upgrade prompt off them.
const (
	RateLimitMarker = "RATE_LIMIT_EXCEEDED"
	NoCreditsMarker = "NO_CREDITS"
)

var ErrInvalidFragment = errors.New("invalid stream fragment")

type FragmentType string

const (
	TypeStart               FragmentType = "start"
	TypeTextDelta           FragmentType = "text-delta"
	TypeToolInputStart      FragmentType = "tool-input-start"
	TypeToolInputDelta      FragmentType = "tool-input-delta"
	TypeToolInputAvailable  FragmentType = "tool-input-available"
	TypeToolOutputAvailable FragmentType = "tool-output-available"
	TypeToolOutputError     FragmentType = "tool-output-error"
	TypeError               FragmentType = "error"
	TypeFinish              FragmentType = "finish"
)

// Fragment is one incremental unit of an assistant turn.
type Fragment struct {
	Type           FragmentType       `json:"type"`
	MessageID      string             `json:"messageId,omitempty"`
	Delta          string             `json:"delta,omitempty"`
	ToolCallID     string             `json:"toolCallId,omitempty"`
	ToolName       string             `json:"toolName,omitempty"`
	InputTextDelta string             `json:"inputTextDelta,omitempty"`
	Input          *models.QueryInput `json:"input,omitempty"`
	Output         *models.ToolResult `json:"output,omitempty"`
	ErrorText      string             `json:"errorText,omitempty"`
}

// Validate rejects unknown types and fragments missing the fields their type needs.
func (f Fragment) Validate() error {
	switch f.Type {
	case TypeStart, TypeFinish, TypeTextDelta:
		return nil
	case TypeToolInputStart:
		if f.ToolCallID == "" || f.ToolName == "" {
			return fmt.Errorf("%w: %s requires toolCallId and toolName", ErrInvalidFragment, f.Type)
		}
	case TypeToolInputDelta:
		if f.ToolCallID == "" {
			return fmt.Errorf("%w: %s requires toolCallId", ErrInvalidFragment, f.Type)
		}
	case TypeToolInputAvailable:
		if f.ToolCallID == "" || f.ToolName == "" || f.Input == nil {
			return fmt.Errorf("%w: %s requires toolCallId, toolName and input", ErrInvalidFragment, f.Type)
		}
	case TypeToolOutputAvailable:
		if f.ToolCallID == "" || f.Output == nil {
			return fmt.Errorf("%w: %s requires toolCallId and output", ErrInvalidFragment, f.Type)
		}
	case TypeToolOutputError:
		if f.ToolCallID == "" || f.ErrorText == "" {
			return fmt.Errorf("%w: %s requires toolCallId and errorText", ErrInvalidFragment, f.Type)
		}
	case TypeError:
		if f.ErrorText == "" {
			return fmt.Errorf("%w: error fragment requires errorText", ErrInvalidFragment)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFragment, f.Type)
	}
	return nil
}

// Sink receives fragments in emission order.
type Sink interface {
	Send(f Fragment) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f Fragment) error

func (fn SinkFunc) Send(f Fragment) error {
	return fn(f)
}

func TextDelta(delta string) Fragment {
	return Fragment{Type: TypeTextDelta, Delta: delta}
}

func ErrorFragment(text string) Fragment {
	return Fragment{Type: TypeError, ErrorText: text}
}
