package update

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/filiksyos/linkedin-search-app/internal/eventbus"
	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/ui/components"
)

const (
	ClearCommand = "/clear"

	statusReady      = "Ready"
	statusSubmitted  = "Sending…"
	statusResponding = "Responding…"
	statusNotReady   = "Chat service not available. Run `linkedin-search profile add` or set OPENROUTER_API_KEY."
)

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, w Widgets, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch keyMsg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		switch {
		case appModel.ShowUpgrade:
			appModel.ShowUpgrade = false
			send(appModel, eb, eventbus.DismissUpgradeEvent{})
		case appModel.Status.Busy():
			send(appModel, eb, eventbus.CancelEvent{})
		}
		return nil
	case tea.KeyEnter:
		return handleEnter(appModel, w, eb)
	}

	if appModel.Status.Busy() {
		return nil
	}
	var cmd tea.Cmd
	*w.Input, cmd = w.Input.Update(keyMsg)
	return cmd
}

func handleEnter(appModel *models.AppModel, w Widgets, eb *eventbus.EventBus) tea.Cmd {
	text := strings.TrimSpace(w.Input.Value())
	if text == "" || appModel.Status.Busy() {
		return nil
	}
	if !appModel.Ready {
		appModel.StatusText = statusNotReady
		return nil
	}

	if text == ClearCommand {
		if send(appModel, eb, eventbus.ClearEvent{}) {
			w.Input.Reset()
		}
		return nil
	}

	if !send(appModel, eb, eventbus.SendMessageEvent{Message: text}) {
		return nil
	}
	w.Input.Reset()
	// Core confirms with a snapshot; reflect the submit right away.
	appModel.Status = models.StatusSubmitted
	appModel.StatusText = statusSubmitted
	w.Input.Blur()
	return w.Spinner.Tick
}

func send(appModel *models.AppModel, eb *eventbus.EventBus, event eventbus.UIEvent) bool {
	if err := eb.SendToCore(event); err != nil {
		appModel.StatusText = "Error sending to chat service: " + err.Error()
		return false
	}
	return true
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, w Widgets, coreEventMsg CoreEventMsg) tea.Cmd {
	event, ok := coreEventMsg.Event.(eventbus.StateUpdateEvent)
	if !ok {
		return nil
	}

	wasBusy := appModel.Status.Busy()
	appModel.Messages = event.Messages
	appModel.Status = event.Status
	appModel.ShowUpgrade = event.ShowUpgrade
	appModel.LastError = ""
	if event.Error != nil {
		appModel.LastError = event.Error.Error()
	}
	appModel.StatusText = StatusText(appModel)

	if appModel.Status.Busy() {
		w.Input.Blur()
		if !wasBusy {
			return w.Spinner.Tick
		}
		return nil
	}
	return w.Input.Focus()
}

// StatusText describes the current turn for the status bar.
func StatusText(appModel *models.AppModel) string {
	if !appModel.Ready {
		return statusNotReady
	}
	switch appModel.Status {
	case models.StatusSubmitted:
		return statusSubmitted
	case models.StatusStreaming:
		if searching(appModel.Messages) {
			return components.SearchingLabel
		}
		return statusResponding
	case models.StatusError:
		if appModel.LastError != "" {
			return "Error: " + appModel.LastError
		}
		return "Error"
	default:
		return statusReady
	}
}

func searching(messages []models.Message) bool {
	if len(messages) == 0 {
		return false
	}
	for _, part := range messages[len(messages)-1].Parts {
		if p, ok := part.(models.ToolPart); ok && !p.State.Terminal() {
			return true
		}
	}
	return false
}

func HandleWindowSizeMsg(appModel *models.AppModel, w Widgets, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
	w.Input.Width = max(sizeMsg.Width-10, 10)
}

// HandleSpinnerTick only keeps the spinner running while a turn is in flight.
func HandleSpinnerTick(appModel *models.AppModel, w Widgets, tick spinner.TickMsg) tea.Cmd {
	if !appModel.Status.Busy() {
		return nil
	}
	var cmd tea.Cmd
	*w.Spinner, cmd = w.Spinner.Update(tick)
	return cmd
}
