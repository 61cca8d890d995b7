package components

import (
	"github.com/filiksyos/linkedin-search-app/ui/styles"
)

// RenderInput frames the input line. While busy the spinner replaces the
// editable field.
func RenderInput(inputView, spinnerView string, busy bool, width int) string {
	content := inputView
	if busy {
		content = spinnerView + " " + styles.MutedStyle().Render("waiting for the assistant (esc to stop)")
	}
	return styles.InputStyle(width, busy).Render(content)
}
