package components

import (
	"github.com/filiksyos/linkedin-search-app/ui/styles"
)

func RenderStatus(status string, width int) string {
	return styles.StatusStyle(width).Render(status)
}
