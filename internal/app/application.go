package app

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/filiksyos/linkedin-search-app/internal/core"
	"github.com/filiksyos/linkedin-search-app/internal/dispatcher"
	"github.com/filiksyos/linkedin-search-app/internal/eventbus"
)

// Application manages the complete application lifecycle
type Application struct {
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.ChatService
	model      *AppModel
}

// NewApplication wires the terminal UI to a chat service talking to the
// endpoint in opts. An empty endpoint starts the UI in a not-ready state.
func NewApplication(opts core.Options) *Application {
	eb := eventbus.NewEventBus()
	if opts.Logger != nil {
		logger := opts.Logger
		eb.SetErrorCallback(func(e eventbus.EventBusError) {
			logger.Warn("event bus error", slog.String("operation", e.Operation), slog.Any("error", e.Err))
		})
	}

	disp := dispatcher.NewEventDispatcher(eb)
	chatService := core.NewChatService(opts, eb)

	return &Application{
		eventBus:   eb,
		dispatcher: disp,
		service:    chatService,
		model:      newAppModel(chatService.IsReady(), disp),
	}
}

func (app *Application) Start() error {
	app.service.Start()

	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
}
