package update

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filiksyos/linkedin-search-app/internal/eventbus"
	"github.com/filiksyos/linkedin-search-app/internal/models"
)

// Widgets are the interactive bubbles owned by the app model.
type Widgets struct {
	Input   *textinput.Model
	Spinner *spinner.Model
}

func HandleUpdateWithEventBus(appModel *models.AppModel, w Widgets, msg tea.Msg, eb *eventbus.EventBus) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(appModel, w, msg, eb)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, w, msg)
		return nil
	case spinner.TickMsg:
		return HandleSpinnerTick(appModel, w, msg)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, w, msg)
	}

	var cmd tea.Cmd
	*w.Input, cmd = w.Input.Update(msg)
	return cmd
}
