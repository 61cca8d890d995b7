package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToolPartAdvanceNeverRegresses(t *testing.T) {
	var p ToolPart
	require.True(t, p.Advance(ToolInputStreaming))
	require.True(t, p.Advance(ToolInputStreaming), "more input deltas stay in the same state")
	require.True(t, p.Advance(ToolInputAvailable))
	require.False(t, p.Advance(ToolInputStreaming))
	require.Equal(t, ToolInputAvailable, p.State)

	require.True(t, p.Advance(ToolOutputAvailable))
	for _, next := range []ToolState{ToolInputStreaming, ToolInputAvailable, ToolOutputError, ToolOutputAvailable} {
		require.False(t, p.Advance(next), "terminal state accepted %s", next)
	}
	require.Equal(t, ToolOutputAvailable, p.State)
}

func TestToolPartAdvanceRejectsUnknownState(t *testing.T) {
	var p ToolPart
	require.False(t, p.Advance(ToolState("paused")))
	require.Empty(t, p.State)
}

func TestMessageUnmarshalParts(t *testing.T) {
	raw := `{
		"id": "m1",
		"role": "assistant",
		"parts": [
			{"type": "text", "text": "Looking up "},
			{"type": "tool-search_linkedin", "toolCallId": "call_1", "state": "output-available",
			 "input": {"query": "AI engineers"},
			 "output": {"success": true, "profiles": [{"title": "Ada", "url": "https://linkedin.com/in/ada", "summary": "ML"}]}}
		]
	}`

	var m Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Equal(t, RoleAssistant, m.Role)
	require.Len(t, m.Parts, 2)
	require.Equal(t, "Looking up ", m.Text())

	tool, idx, ok := m.ToolPart("call_1")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Equal(t, "search_linkedin", tool.ToolName)
	require.Equal(t, ToolOutputAvailable, tool.State)
	require.Equal(t, "AI engineers", tool.Input.Query)
	require.Len(t, tool.Output.Profiles, 1)
}

func TestMessageUnmarshalRejectsUnknownPart(t *testing.T) {
	raw := `{"id":"m1","role":"assistant","parts":[{"type":"reasoning","text":"hmm"}]}`

	var m Message
	err := json.Unmarshal([]byte(raw), &m)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownPartType))
}

func TestMessageUnmarshalLegacyContent(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","role":"user","content":"find AI engineers"}`), &m))
	require.Equal(t, []Part{TextPart{Text: "find AI engineers"}}, m.Parts)
}

func TestMessageUnmarshalRejectsUnknownRole(t *testing.T) {
	var m Message
	require.Error(t, json.Unmarshal([]byte(`{"id":"s1","role":"system","content":"x"}`), &m))
}

func TestCloneDoesNotAliasToolOutput(t *testing.T) {
	score := 0.5
	m := NewAssistantMessage("a1")
	m.Parts = append(m.Parts, ToolPart{
		ToolName: "search_linkedin",
		CallID:   "c1",
		State:    ToolOutputAvailable,
		Output:   &ToolResult{Success: true, Profiles: []Profile{{Title: "Ada", Score: &score}}},
	})

	c := m.Clone()
	orig := m.Parts[0].(ToolPart)
	orig.Output.Profiles[0].Title = "changed"
	*orig.Output.Profiles[0].Score = 0.9

	cp := c.Parts[0].(ToolPart)
	require.Equal(t, "Ada", cp.Output.Profiles[0].Title)
	require.Equal(t, 0.5, *cp.Output.Profiles[0].Score)
}

func TestMessageMarshalTagsParts(t *testing.T) {
	m := Message{ID: "a1", Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "hi"},
		ToolPart{ToolName: "search_linkedin", CallID: "c1", State: ToolInputAvailable, Input: &QueryInput{Query: "x"}},
	}}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id":"a1","role":"assistant","parts":[
			{"type":"text","text":"hi"},
			{"type":"tool-search_linkedin","toolCallId":"c1","state":"input-available","input":{"query":"x"}}
		]}`, string(data))
}
