package components

import (
	"strings"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/ui/styles"
)

// RenderOptions controls layout only; rendering never changes the messages.
type RenderOptions struct {
	// Width wraps and truncates content. Zero or less means unbounded.
	Width int
}

// RenderMessages renders the conversation in log order, each message's parts
// in their stored order.
func RenderMessages(messages []models.Message, opts RenderOptions) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(RenderMessage(msg, opts))
		b.WriteString("\n")
	}
	return b.String()
}

func RenderMessage(msg models.Message, opts RenderOptions) string {
	var b strings.Builder

	switch msg.Role {
	case models.RoleUser:
		b.WriteString(styles.UserLabelStyle().Render("You"))
	case models.RoleAssistant:
		b.WriteString(styles.AssistantLabelStyle().Render("Assistant"))
	default:
		b.WriteString(styles.MutedStyle().Render(string(msg.Role)))
	}
	b.WriteString("\n")

	body := styles.BodyStyle(opts.Width)
	for _, part := range msg.Parts {
		var rendered string
		switch p := part.(type) {
		case models.TextPart:
			if p.Text == "" {
				continue
			}
			rendered = p.Text
		case models.ToolPart:
			rendered = RenderToolPart(p, contentWidth(opts.Width))
		default:
			rendered = styles.MutedStyle().Render("[unsupported content]")
		}
		b.WriteString(body.Render(rendered))
		b.WriteString("\n")
	}
	return b.String()
}

func contentWidth(width int) int {
	if width <= 0 {
		return 0
	}
	return max(width-2, 10)
}
