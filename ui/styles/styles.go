package styles

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent  = lipgloss.Color("62")
	colorUser    = lipgloss.Color("39")
	colorBot     = lipgloss.Color("214")
	colorMuted   = lipgloss.Color("241")
	colorTool    = lipgloss.Color("141")
	colorLink    = lipgloss.Color("75")
	colorError   = lipgloss.Color("203")
	colorWarning = lipgloss.Color("220")
)

func InputStyle(width int, busy bool) lipgloss.Style {
	border := colorAccent
	if busy {
		border = colorMuted
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(width-4, 10))
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(colorMuted).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(max(width, 10))
}

func UserLabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorUser).Bold(true)
}

func AssistantLabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorBot).Bold(true)
}

// BodyStyle indents message content under its label. A non-positive width
// disables wrapping.
func BodyStyle(width int) lipgloss.Style {
	s := lipgloss.NewStyle().PaddingLeft(2)
	if width > 0 {
		s = s.Width(width)
	}
	return s
}

func ToolStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorTool).Italic(true)
}

func ResultTitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true)
}

func ResultURLStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorLink).Underline(true)
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorMuted)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorError)
}

func UpgradeStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorWarning).
		Padding(0, 2).
		Width(max(width-4, 20))
}

func HintStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(colorMuted).
		Padding(1, 2)
}
