package components

import (
	"strings"

	"github.com/filiksyos/linkedin-search-app/ui/styles"
)

var ExamplePrompts = []string{
	"Find AI engineers",
	"Anthropic developers",
	"Product managers in San Francisco",
}

// RenderEmptyState is shown before the first message.
func RenderEmptyState() string {
	var b strings.Builder
	b.WriteString("Search LinkedIn profiles by describing who you are looking for.\n\nTry:\n")
	for _, p := range ExamplePrompts {
		b.WriteString("  • " + p + "\n")
	}
	b.WriteString("\nEnter sends, esc stops a reply, /clear starts over, ctrl+c quits.")
	return styles.HintStyle().Render(b.String())
}

// RenderUpgradePrompt tells the user they hit a usage limit.
func RenderUpgradePrompt(errText string, width int) string {
	var b strings.Builder
	b.WriteString(styles.ErrorStyle().Bold(true).Render("Usage limit reached"))
	b.WriteString("\n")
	b.WriteString("You have run out of searches for now. Wait a moment or upgrade your plan to keep going.")
	if errText != "" {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle().Render(errText))
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle().Render("Press esc to dismiss."))
	return styles.UpgradeStyle(width).Render(b.String())
}
