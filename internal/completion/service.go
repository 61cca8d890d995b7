// Package completion bridges a stored conversation to the hosted model and
// streams the assistant turn back as wire fragments, running the search tool
// in between model steps.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/stream"
	"github.com/filiksyos/linkedin-search-app/internal/tools"
)

const (
	DefaultModel    = "openai/gpt-4o-mini"
	DefaultMaxSteps = 5
)

const SystemPrompt = `You are a helpful LinkedIn search assistant. When users ask you to find people on LinkedIn, use the search_linkedin tool to search for relevant profiles.

Provide clear, concise summaries of the search results and help users discover the right LinkedIn profiles.

Always use professional and helpful language.`

var (
	ErrMaxStepsExceeded = errors.New("maximum tool call steps reached")
	ErrNoMessages       = errors.New("messages are required")
)

// Service runs assistant turns.
type Service struct {
	model        Model
	modelName    string
	registry     *tools.Registry
	logger       *slog.Logger
	maxSteps     int
	modelTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxSteps(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithModelTimeout bounds each model step. Zero means no extra deadline.
func WithModelTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.modelTimeout = timeout
	}
}

func New(model Model, modelName string, registry *tools.Registry, opts ...Option) *Service {
	if modelName == "" {
		modelName = DefaultModel
	}
	s := &Service{
		model:     model,
		modelName: modelName,
		registry:  registry,
		logger:    slog.Default(),
		maxSteps:  DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream runs one assistant turn for messages and sends its fragments to sink.
// On success the last fragment is finish. On failure a terminal error fragment
// is sent (when the sink is still writable) and the cause is returned.
func (s *Service) Stream(ctx context.Context, messages []models.Message, sink stream.Sink) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}

	history := append([]openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	}}, ToModelMessages(messages)...)

	messageID := models.NewID()
	if err := sink.Send(stream.Fragment{Type: stream.TypeStart, MessageID: messageID}); err != nil {
		return err
	}

	for step := 0; ; step++ {
		if step >= s.maxSteps {
			return s.fail(ctx, sink, ErrMaxStepsExceeded)
		}

		text, calls, err := s.runStep(ctx, history, sink)
		if err != nil {
			return s.fail(ctx, sink, err)
		}
		if len(calls) == 0 {
			break
		}

		history = append(history, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   text,
			ToolCalls: toOpenAIToolCalls(calls),
		})
		for _, call := range calls {
			content, err := s.dispatch(ctx, call, sink)
			if err != nil {
				return s.fail(ctx, sink, err)
			}
			history = append(history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.id,
				Content:    content,
			})
		}
	}

	s.logger.Debug("assistant turn finished", slog.String("message_id", messageID))
	return sink.Send(stream.Fragment{Type: stream.TypeFinish})
}

// pendingCall accumulates one tool call across stream chunks.
type pendingCall struct {
	index      int
	id         string
	providerID string
	name       string
	args       string
	started    bool
}

// callSet groups tool-call deltas into calls. Deltas are matched by index;
// providers that omit the index separate calls by id instead.
type callSet struct {
	byIndex map[int]*pendingCall
	last    *pendingCall
	next    int
}

func newCallSet() *callSet {
	return &callSet{byIndex: make(map[int]*pendingCall)}
}

func (cs *callSet) lookup(tc openai.ToolCall) *pendingCall {
	if tc.Index != nil {
		return cs.at(*tc.Index)
	}
	if cs.last != nil && (tc.ID == "" || cs.last.providerID == "" || tc.ID == cs.last.providerID) {
		return cs.last
	}
	return cs.at(cs.next)
}

func (cs *callSet) at(idx int) *pendingCall {
	c, ok := cs.byIndex[idx]
	if !ok {
		c = &pendingCall{index: idx}
		cs.byIndex[idx] = c
		if idx >= cs.next {
			cs.next = idx + 1
		}
	}
	cs.last = c
	return c
}

func (s *Service) runStep(ctx context.Context, history []openai.ChatCompletionMessage, sink stream.Sink) (string, []*pendingCall, error) {
	if s.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.modelTimeout)
		defer cancel()
	}

	st, err := s.model.Stream(ctx, openai.ChatCompletionRequest{
		Model:    s.modelName,
		Messages: history,
		Tools:    s.registry.GetOpenAIToolsSpec(),
		Stream:   true,
	})
	if err != nil {
		return "", nil, err
	}
	defer st.Close()

	var text string
	calls := newCallSet()

	for {
		chunk, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			text += delta.Content
			if err := sink.Send(stream.TextDelta(delta.Content)); err != nil {
				return "", nil, err
			}
		}

		for _, tc := range delta.ToolCalls {
			if err := s.accumulate(calls, tc, sink); err != nil {
				return "", nil, err
			}
		}
	}

	ordered := make([]*pendingCall, 0, len(calls.byIndex))
	for _, c := range calls.byIndex {
		// A call whose name never arrived cannot be announced or run.
		if c.name == "" {
			s.logger.Warn("dropping tool call without name", slog.Int("index", c.index))
			continue
		}
		if !c.started {
			if err := s.startCall(c, sink); err != nil {
				return "", nil, err
			}
		}
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })
	return text, ordered, nil
}

func (s *Service) accumulate(calls *callSet, tc openai.ToolCall, sink stream.Sink) error {
	c := calls.lookup(tc)
	if c.providerID == "" && tc.ID != "" {
		c.providerID = tc.ID
	}
	if c.id == "" && tc.ID != "" {
		c.id = tc.ID
	}
	if c.name == "" {
		c.name = tc.Function.Name
	}

	chunk := tc.Function.Arguments
	c.args += chunk

	if !c.started && c.name != "" {
		// Arguments buffered before the name arrived go out with the start.
		return s.startCall(c, sink)
	}
	if c.started && chunk != "" {
		return sink.Send(stream.Fragment{
			Type:           stream.TypeToolInputDelta,
			ToolCallID:     c.id,
			InputTextDelta: chunk,
		})
	}
	return nil
}

func (s *Service) startCall(c *pendingCall, sink stream.Sink) error {
	if c.id == "" {
		c.id = "call_" + models.NewID()
	}
	c.started = true
	if err := sink.Send(stream.Fragment{
		Type:       stream.TypeToolInputStart,
		ToolCallID: c.id,
		ToolName:   c.name,
	}); err != nil {
		return err
	}
	if c.args == "" {
		return nil
	}
	return sink.Send(stream.Fragment{
		Type:           stream.TypeToolInputDelta,
		ToolCallID:     c.id,
		InputTextDelta: c.args,
	})
}

// dispatch runs one tool call and streams its state transitions. It returns
// the content handed back to the model. Tool failures are reported in-band;
// only a dead sink is an error here.
func (s *Service) dispatch(ctx context.Context, call *pendingCall, sink stream.Sink) (string, error) {
	var input models.QueryInput
	if call.args != "" {
		if err := json.Unmarshal([]byte(call.args), &input); err != nil {
			msg := fmt.Sprintf("Invalid input for tool %s: %v", call.name, err)
			s.logger.Warn("tool input rejected", slog.String("tool", call.name), slog.String("call_id", call.id), slog.Any("error", err))
			return errorContent(msg), sink.Send(stream.Fragment{
				Type:       stream.TypeToolOutputError,
				ToolCallID: call.id,
				ErrorText:  msg,
			})
		}
	}

	if err := sink.Send(stream.Fragment{
		Type:       stream.TypeToolInputAvailable,
		ToolCallID: call.id,
		ToolName:   call.name,
		Input:      &input,
	}); err != nil {
		return "", err
	}

	start := time.Now()
	res := s.registry.Execute(ctx, tools.ToolCall{ID: call.id, Name: call.name, Arguments: call.args})
	s.logger.Info("tool executed",
		slog.String("tool", call.name),
		slog.String("call_id", call.id),
		slog.Bool("success", res.Error == "" && res.Result.Success),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if res.Error != "" {
		return errorContent(res.Error), sink.Send(stream.Fragment{
			Type:       stream.TypeToolOutputError,
			ToolCallID: call.id,
			ErrorText:  res.Error,
		})
	}

	output := res.Result
	return tools.ToJSONString(output), sink.Send(stream.Fragment{
		Type:       stream.TypeToolOutputAvailable,
		ToolCallID: call.id,
		Output:     &output,
	})
}

func (s *Service) fail(ctx context.Context, sink stream.Sink, err error) error {
	if ctx.Err() != nil {
		// The caller went away; there is nobody to tell.
		return err
	}
	s.logger.Error("assistant turn failed", slog.Any("error", err))
	if sendErr := sink.Send(stream.ErrorFragment(ErrorText(err))); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

// ErrorText is the user-facing text of a terminal stream error. Provider
// rate-limit and credit failures carry the marker the client looks for.
func ErrorText(err error) string {
	switch status := providerStatus(err); status {
	case http.StatusTooManyRequests:
		return stream.RateLimitMarker + ": the model provider is rate limiting requests, try again later"
	case http.StatusPaymentRequired:
		return stream.NoCreditsMarker + ": the model provider account is out of credits"
	}
	if errors.Is(err, ErrMaxStepsExceeded) {
		return "The assistant made too many tool calls in one turn."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The model took too long to respond."
	}
	return "An error occurred while generating the response."
}

func providerStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func toOpenAIToolCalls(calls []*pendingCall) []openai.ToolCall {
	out := make([]openai.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = openai.ToolCall{
			ID:   c.id,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      c.name,
				Arguments: c.args,
			},
		}
	}
	return out
}

func errorContent(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
