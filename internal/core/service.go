package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/filiksyos/linkedin-search-app/internal/eventbus"
	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/stream"
)

const maxErrorBodyBytes = 64 << 10

// Options configures a ChatService.
type Options struct {
	Endpoint       string
	UserID         string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// SendOptions are per-message settings.
type SendOptions struct {
	UserID string
}

// ChatService sends the conversation to the chat endpoint and folds the
// streamed reply into ChatState. With an event bus it also runs the loop that
// serves the terminal UI.
type ChatService struct {
	endpoint       string
	userID         string
	requestTimeout time.Duration
	httpClient     *http.Client
	state          *ChatState
	eventBus       *eventbus.EventBus
	logger         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// turnMu guards turn start and turnCancel. turnSeq identifies the turn
	// that owns turnCancel.
	turnMu     sync.Mutex
	turnCancel context.CancelFunc
	turnSeq    uint64

	// pushMu keeps snapshots reaching the UI in the order they were taken.
	pushMu sync.Mutex
}

// NewChatService builds a service. eb may be nil when no UI is attached.
func NewChatService(opts Options, eb *eventbus.EventBus) *ChatService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatService{
		endpoint:       opts.Endpoint,
		userID:         opts.UserID,
		requestTimeout: opts.RequestTimeout,
		httpClient:     httpClient,
		state:          NewChatState(logger),
		eventBus:       eb,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start runs the core logic in a goroutine
func (cs *ChatService) Start() {
	cs.pushStateToUI()
	go cs.eventLoop()
}

// Stop aborts any in-flight turn and ends the event loop.
func (cs *ChatService) Stop() {
	cs.cancel()
	cs.wg.Wait()
}

func (cs *ChatService) IsReady() bool {
	return cs.endpoint != ""
}

func (cs *ChatService) State() *ChatState {
	return cs.state
}

func (cs *ChatService) eventLoop() {
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		cs.wg.Add(1)
		go func() {
			defer cs.wg.Done()
			if err := cs.SendMessage(cs.ctx, e.Message, SendOptions{}); err != nil {
				cs.logger.Info("turn ended with error", slog.Any("error", err))
			}
		}()
	case eventbus.CancelEvent:
		cs.Cancel()
	case eventbus.ClearEvent:
		if err := cs.state.Clear(); err != nil {
			cs.logger.Warn("clear ignored", slog.Any("error", err))
		}
		cs.pushStateToUI()
	case eventbus.DismissUpgradeEvent:
		cs.state.DismissUpgrade()
		cs.pushStateToUI()
	}
}

// Cancel aborts the in-flight turn, if any. The partial reply stays. The UI
// is resynced either way.
func (cs *ChatService) Cancel() {
	cs.turnMu.Lock()
	if cs.turnCancel != nil {
		cs.turnCancel()
	}
	cs.turnMu.Unlock()
	cs.pushStateToUI()
}

// SendMessage runs one turn: append text as a user message, post the
// conversation and apply the reply as it streams. It blocks until the turn
// ends and returns its failure, if any.
func (cs *ChatService) SendMessage(ctx context.Context, text string, opts SendOptions) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	// A Cancel arriving once the turn is visible must find its cancel func.
	cs.turnMu.Lock()
	messages, err := cs.state.BeginTurn(text)
	if err != nil {
		cs.turnMu.Unlock()
		return err
	}
	turnCtx, cancel := context.WithCancel(ctx)
	cs.turnSeq++
	seq := cs.turnSeq
	cs.turnCancel = cancel
	cs.turnMu.Unlock()

	defer cancel()
	defer func() {
		cs.turnMu.Lock()
		if cs.turnSeq == seq {
			cs.turnCancel = nil
		}
		cs.turnMu.Unlock()
	}()
	cs.pushStateToUI()

	reqCtx := turnCtx
	if cs.requestTimeout > 0 {
		var stop context.CancelFunc
		reqCtx, stop = context.WithTimeout(turnCtx, cs.requestTimeout)
		defer stop()
	}

	userID := opts.UserID
	if userID == "" {
		userID = cs.userID
	}

	err = cs.stream(reqCtx, models.ChatRequest{Messages: messages, UserID: userID})
	switch {
	case err == nil:
		cs.state.Finish()
	case errors.Is(turnCtx.Err(), context.Canceled):
		cs.logger.Info("turn canceled")
		cs.state.Cancel()
		err = context.Canceled
	default:
		var streamErr *StreamError
		// Error fragments already failed the state when applied.
		if !errors.As(err, &streamErr) || streamErr.Text == "" {
			cs.state.Fail(err)
		}
		cs.logger.Warn("turn failed", slog.Any("error", err))
	}
	cs.pushStateToUI()
	return err
}

func (cs *ChatService) stream(ctx context.Context, body models.ChatRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RequestError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cs.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := cs.httpClient.Do(req)
	if err != nil {
		return &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeRequestError(resp)
	}
	if v := resp.Header.Get(stream.ProtocolHeader); v != "" && v != stream.ProtocolVersion {
		return &StreamError{Err: fmt.Errorf("%w: unsupported protocol version %q", ErrProtocol, v)}
	}
	cs.state.MarkStreaming()
	cs.pushStateToUI()

	reader := stream.NewReader(resp.Body)
	for {
		f, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &StreamError{Err: err}
		}
		if err := cs.state.Apply(f); err != nil {
			cs.pushStateToUI()
			return err
		}
		cs.pushStateToUI()
	}
}

func decodeRequestError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	out := &RequestError{StatusCode: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		out.Message = body.Error
		out.Code = body.Code
	} else {
		out.Message = strings.TrimSpace(string(data))
	}
	return out
}

func (cs *ChatService) pushStateToUI() {
	if cs.eventBus == nil {
		return
	}
	cs.pushMu.Lock()
	defer cs.pushMu.Unlock()

	snap := cs.state.Snapshot()
	if err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Messages:    snap.Messages,
		Status:      snap.Status,
		Error:       snap.Err,
		ShowUpgrade: snap.ShowUpgrade,
	}); err != nil {
		cs.logger.Warn("failed to push state to UI", slog.Any("error", err))
	}
}
