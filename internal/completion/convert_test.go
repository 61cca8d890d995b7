package completion

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/filiksyos/linkedin-search-app/internal/models"
)

func TestToModelMessages(t *testing.T) {
	assistant := models.NewAssistantMessage("a1")
	assistant.Parts = []models.Part{
		models.TextPart{Text: "Searching."},
		models.ToolPart{
			ToolName: "search_linkedin",
			CallID:   "c1",
			State:    models.ToolOutputAvailable,
			Input:    &models.QueryInput{Query: "AI engineers"},
			Output:   &models.ToolResult{Success: true},
		},
		models.ToolPart{
			ToolName: "search_linkedin",
			CallID:   "c2",
			State:    models.ToolInputStreaming,
		},
		models.TextPart{Text: "Here they are."},
	}

	got := ToModelMessages([]models.Message{
		models.NewUserMessage("Find AI engineers"),
		assistant,
		models.NewUserMessage("   "),
	})

	require.Len(t, got, 4)
	require.Equal(t, openai.ChatMessageRoleUser, got[0].Role)
	require.Equal(t, "Find AI engineers", got[0].Content)

	require.Equal(t, openai.ChatMessageRoleAssistant, got[1].Role)
	require.Equal(t, "Searching.", got[1].Content)
	require.Len(t, got[1].ToolCalls, 1)
	require.Equal(t, "c1", got[1].ToolCalls[0].ID)
	require.Equal(t, `{"query":"AI engineers"}`, got[1].ToolCalls[0].Function.Arguments)

	require.Equal(t, openai.ChatMessageRoleTool, got[2].Role)
	require.Equal(t, "c1", got[2].ToolCallID)
	require.JSONEq(t, `{"success":true}`, got[2].Content)

	require.Equal(t, openai.ChatMessageRoleAssistant, got[3].Role)
	require.Equal(t, "Here they are.", got[3].Content)
	require.Empty(t, got[3].ToolCalls)
}

func TestToModelMessagesToolError(t *testing.T) {
	assistant := models.NewAssistantMessage("a1")
	assistant.Parts = []models.Part{models.ToolPart{
		ToolName:  "search_linkedin",
		CallID:    "c1",
		State:     models.ToolOutputError,
		ErrorText: "bad input",
	}}

	got := ToModelMessages([]models.Message{assistant})
	require.Len(t, got, 2)
	require.Equal(t, "{}", got[0].ToolCalls[0].Function.Arguments)
	require.JSONEq(t, `{"error":"bad input"}`, got[1].Content)
}
