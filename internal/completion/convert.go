package completion

import (
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/tools"
)

// ToModelMessages converts the stored conversation into OpenAI turns. Each run
// of tool parts inside an assistant message becomes an assistant message with
// tool calls followed by one tool message per call. Tool parts that never
// reached a terminal state carry nothing the model can use and are dropped.
func ToModelMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case models.RoleUser:
			text := m.Text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			})
		case models.RoleAssistant:
			out = append(out, assistantTurns(m)...)
		}
	}
	return out
}

func assistantTurns(m models.Message) []openai.ChatCompletionMessage {
	var (
		out     []openai.ChatCompletionMessage
		text    strings.Builder
		calls   []openai.ToolCall
		results []openai.ChatCompletionMessage
	)

	flush := func() {
		if text.Len() == 0 && len(calls) == 0 {
			return
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   text.String(),
			ToolCalls: calls,
		})
		out = append(out, results...)
		text.Reset()
		calls, results = nil, nil
	}

	for _, part := range m.Parts {
		switch p := part.(type) {
		case models.TextPart:
			if len(calls) > 0 {
				flush()
			}
			text.WriteString(p.Text)
		case models.ToolPart:
			if !p.State.Terminal() {
				continue
			}
			calls = append(calls, openai.ToolCall{
				ID:   p.CallID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      p.ToolName,
					Arguments: encodeInput(p.Input),
				},
			})
			results = append(results, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: p.CallID,
				Content:    toolContent(p),
			})
		}
	}
	flush()
	return out
}

func encodeInput(in *models.QueryInput) string {
	if in == nil {
		return "{}"
	}
	data, err := json.Marshal(in)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func toolContent(p models.ToolPart) string {
	if p.State == models.ToolOutputAvailable && p.Output != nil {
		return tools.ToJSONString(*p.Output)
	}
	data, _ := json.Marshal(map[string]string{"error": p.ErrorText})
	return string(data)
}
