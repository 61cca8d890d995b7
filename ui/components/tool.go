package components

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/tools"
	"github.com/filiksyos/linkedin-search-app/ui/styles"
)

const (
	SearchingLabel = "Searching LinkedIn…"
	NoResultsText  = "No LinkedIn profiles found."
)

// RenderToolPart renders one invocation by its state. Missing input or output
// is tolerated at every state.
func RenderToolPart(p models.ToolPart, width int) string {
	switch p.State {
	case models.ToolInputStreaming, models.ToolInputAvailable:
		return styles.ToolStyle().Render(pendingLabel(p))
	case models.ToolOutputAvailable:
		return renderOutput(p.Output, width)
	case models.ToolOutputError:
		text := p.ErrorText
		if text == "" {
			text = "unknown error"
		}
		return styles.ErrorStyle().Render("Search failed: " + text)
	default:
		return styles.MutedStyle().Render(fmt.Sprintf("Unsupported tool state %q", string(p.State)))
	}
}

func pendingLabel(p models.ToolPart) string {
	label := SearchingLabel
	if p.ToolName != "" && p.ToolName != tools.LinkedInToolName {
		label = fmt.Sprintf("Running %s…", p.ToolName)
	}
	if p.Input != nil && strings.TrimSpace(p.Input.Query) != "" {
		label += fmt.Sprintf(" %q", p.Input.Query)
	}
	return label
}

func renderOutput(out *models.ToolResult, width int) string {
	if out == nil {
		return styles.MutedStyle().Render("Search finished without results.")
	}
	if !out.Success {
		text := out.Error
		if text == "" {
			text = "Search failed."
		}
		return styles.ErrorStyle().Render(text)
	}
	if len(out.Profiles) == 0 {
		return styles.MutedStyle().Render(NoResultsText)
	}

	var b strings.Builder
	for i, p := range out.Profiles {
		if i > 0 {
			b.WriteString("\n")
		}
		title := p.Title
		if title == "" {
			title = "(untitled profile)"
		}
		heading := fmt.Sprintf("%d. %s", i+1, title)
		if p.Score != nil {
			heading += fmt.Sprintf("  [%.2f]", *p.Score)
		}
		b.WriteString(styles.ResultTitleStyle().Render(truncate(heading, width)))
		b.WriteString("\n")
		if p.URL != "" {
			b.WriteString("   " + styles.ResultURLStyle().Render(truncate(p.URL, width-3)))
			b.WriteString("\n")
		}
		if p.Summary != "" {
			b.WriteString("   " + styles.MutedStyle().Render(truncate(firstLine(p.Summary), width-3)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts s to width terminal cells. A non-positive width keeps s.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}
