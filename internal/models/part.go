package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

const toolPartPrefix = "tool-"

// Part is a closed union of message segments: TextPart or ToolPart.
type Part interface {
	isPart()
}

// TextPart accumulates streamed text.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "text", Text: p.Text})
}

// ToolPart tracks one model-initiated tool call through its states.
type ToolPart struct {
	ToolName  string
	CallID    string
	State     ToolState
	Input     *QueryInput
	Output    *ToolResult
	ErrorText string

	// InputText holds raw argument text while the input is still streaming.
	InputText string
}

func (ToolPart) isPart() {}

type toolPartJSON struct {
	Type       string      `json:"type"`
	ToolCallID string      `json:"toolCallId"`
	State      ToolState   `json:"state"`
	Input      *QueryInput `json:"input,omitempty"`
	Output     *ToolResult `json:"output,omitempty"`
	ErrorText  string      `json:"errorText,omitempty"`
}

func (p ToolPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(toolPartJSON{
		Type:       toolPartPrefix + p.ToolName,
		ToolCallID: p.CallID,
		State:      p.State,
		Input:      p.Input,
		Output:     p.Output,
		ErrorText:  p.ErrorText,
	})
}

// Advance moves the part to next, refusing any backward transition. It reports
// whether the state was accepted.
func (p *ToolPart) Advance(next ToolState) bool {
	if p.State == "" {
		if !next.Valid() {
			return false
		}
		p.State = next
		return true
	}
	if !p.State.CanAdvanceTo(next) {
		return false
	}
	p.State = next
	return true
}

// UnmarshalPart decodes one tagged part. Unknown tags are an error.
func UnmarshalPart(data []byte) (Part, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch {
	case head.Type == "text":
		var t struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return TextPart{Text: t.Text}, nil
	case strings.HasPrefix(head.Type, toolPartPrefix):
		var t toolPartJSON
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		if !t.State.Valid() {
			return nil, fmt.Errorf("tool part %q: invalid state %q", t.ToolCallID, t.State)
		}
		return ToolPart{
			ToolName:  strings.TrimPrefix(t.Type, toolPartPrefix),
			CallID:    t.ToolCallID,
			State:     t.State,
			Input:     t.Input,
			Output:    t.Output,
			ErrorText: t.ErrorText,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartType, head.Type)
	}
}

func clonePart(p Part) Part {
	switch v := p.(type) {
	case ToolPart:
		if v.Input != nil {
			in := *v.Input
			v.Input = &in
		}
		if v.Output != nil {
			out := v.Output.Clone()
			v.Output = &out
		}
		return v
	default:
		return p
	}
}
