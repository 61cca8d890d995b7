package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filiksyos/linkedin-search-app/internal/dispatcher"
	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/update"
	"github.com/filiksyos/linkedin-search-app/ui/components"
)

// AppModel is the Bubble Tea model. It only holds UI state; the conversation
// arrives as snapshots from core.
type AppModel struct {
	appModel   models.AppModel
	input      textinput.Model
	spinner    spinner.Model
	dispatcher *dispatcher.EventDispatcher
}

func newAppModel(ready bool, disp *dispatcher.EventDispatcher) *AppModel {
	ti := textinput.New()
	ti.Placeholder = "Who are you looking for?"
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &AppModel{
		appModel: models.AppModel{
			Messages: make([]models.Message, 0),
			Status:   models.StatusIdle,
			Ready:    ready,
		},
		input:      ti,
		spinner:    sp,
		dispatcher: disp,
	}
	m.appModel.StatusText = update.StatusText(&m.appModel)
	return m
}

func (m *AppModel) widgets() update.Widgets {
	return update.Widgets{Input: &m.input, Spinner: &m.spinner}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.dispatcher.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, m.widgets(), msg, eventBus)

	// Keep listening after each delivered core event.
	if _, ok := msg.(update.CoreEventMsg); ok {
		return m, tea.Batch(cmd, m.dispatcher.ListenForCoreEvents())
	}
	return m, cmd
}

func (m *AppModel) View() string {
	width := m.appModel.Width
	if width <= 0 {
		width = 80
	}

	var conversation string
	if len(m.appModel.Messages) == 0 {
		conversation = components.RenderEmptyState()
	} else {
		conversation = components.RenderMessages(m.appModel.Messages, components.RenderOptions{Width: width - 2})
	}

	var footer strings.Builder
	if m.appModel.ShowUpgrade {
		footer.WriteString(components.RenderUpgradePrompt(m.appModel.LastError, width))
		footer.WriteString("\n")
	}
	footer.WriteString(components.RenderInput(m.input.View(), m.spinner.View(), m.appModel.Status.Busy(), width))
	footer.WriteString("\n")
	footer.WriteString(components.RenderStatus(m.appModel.StatusText, width))

	return tail(conversation, m.appModel.Height-lineCount(footer.String())) + footer.String()
}

// tail keeps the last n lines of s so the newest output stays on screen. A
// non-positive n keeps everything.
func tail(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n"
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}
