package app

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/filiksyos/linkedin-search-app/internal/dispatcher"
	"github.com/filiksyos/linkedin-search-app/internal/eventbus"
	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/update"
)

func newTestModel(ready bool) (*AppModel, *eventbus.EventBus) {
	eb := eventbus.NewEventBus()
	return newAppModel(ready, dispatcher.NewEventDispatcher(eb)), eb
}

func TestViewShowsEmptyStateHint(t *testing.T) {
	m, _ := newTestModel(true)
	view := m.View()
	require.Contains(t, view, "Find AI engineers")
	require.Contains(t, view, "Ready")
}

func TestCoreSnapshotReplacesConversation(t *testing.T) {
	m, eb := newTestModel(true)

	assistant := models.NewAssistantMessage("a1")
	assistant.Parts = []models.Part{models.TextPart{Text: "Found 3 engineers."}}
	require.NoError(t, eb.SendToUI(eventbus.StateUpdateEvent{
		Messages: []models.Message{models.NewUserMessage("Find AI engineers"), assistant},
		Status:   models.StatusIdle,
	}))

	msg := m.dispatcher.ListenForCoreEvents()()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)

	view := m.View()
	require.Contains(t, view, "Found 3 engineers.")
	require.NotContains(t, view, "Anthropic developers")
}

func TestUpgradePromptVisible(t *testing.T) {
	m, _ := newTestModel(true)
	m.Update(update.CoreEventMsg{Event: eventbus.StateUpdateEvent{
		Status:      models.StatusError,
		ShowUpgrade: true,
	}})
	require.Contains(t, m.View(), "Usage limit reached")
}

func TestViewKeepsNewestLines(t *testing.T) {
	m, _ := newTestModel(true)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})

	var msgs []models.Message
	for i := 0; i < 20; i++ {
		msgs = append(msgs, models.NewUserMessage("message number "+strings.Repeat("x", i)))
	}
	m.Update(update.CoreEventMsg{Event: eventbus.StateUpdateEvent{Messages: msgs, Status: models.StatusIdle}})

	view := m.View()
	require.LessOrEqual(t, strings.Count(view, "\n")+1, 12)
	require.Contains(t, view, "message number "+strings.Repeat("x", 19))
}

func TestTail(t *testing.T) {
	require.Equal(t, "c\nd\n", tail("a\nb\nc\nd\n", 2))
	require.Equal(t, "a\nb", tail("a\nb", 0))
}

func TestNotReadyStatus(t *testing.T) {
	m, _ := newTestModel(false)
	require.Contains(t, m.View(), "Chat service not available")
}
