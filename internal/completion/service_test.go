package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/search"
	"github.com/filiksyos/linkedin-search-app/internal/stream"
	"github.com/filiksyos/linkedin-search-app/internal/tools"
)

// step is one scripted model response: chunks then err (io.EOF when nil).
type step struct {
	chunks  []openai.ChatCompletionStreamResponse
	err     error
	openErr error
}

type scriptedModel struct {
	steps    []step
	requests []openai.ChatCompletionRequest
}

func (m *scriptedModel) Stream(_ context.Context, req openai.ChatCompletionRequest) (ModelStream, error) {
	m.requests = append(m.requests, req)
	if len(m.steps) == 0 {
		return nil, errors.New("no scripted step left")
	}
	s := m.steps[0]
	m.steps = m.steps[1:]
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &scriptedStream{step: s}, nil
}

type scriptedStream struct {
	step step
	pos  int
}

func (s *scriptedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos < len(s.step.chunks) {
		c := s.step.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.step.err != nil {
		return openai.ChatCompletionStreamResponse{}, s.step.err
	}
	return openai.ChatCompletionStreamResponse{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

func textChunk(text string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: text}}},
	}
}

func toolChunk(index int, id, name, args string) openai.ChatCompletionStreamResponse {
	i := index
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{
			ToolCalls: []openai.ToolCall{{
				Index:    &i,
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: args},
			}},
		}}},
	}
}

// unindexedChunk is a tool-call delta from a provider that leaves out the index.
func unindexedChunk(id, name, args string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{
			ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: args},
			}},
		}}},
	}
}

type stubSearcher struct {
	resp  *search.Response
	err   error
	calls int
}

func (s *stubSearcher) Search(context.Context, search.Request) (*search.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(model Model, searcher search.Searcher, opts ...Option) *Service {
	registry := tools.NewRegistry()
	registry.Register(tools.NewLinkedInSearchTool(searcher, tools.WithLogger(quietLogger())))
	return New(model, "test-model", registry, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func collect(t *testing.T, svc *Service, messages []models.Message) ([]stream.Fragment, error) {
	t.Helper()
	var got []stream.Fragment
	err := svc.Stream(context.Background(), messages, stream.SinkFunc(func(f stream.Fragment) error {
		require.NoError(t, f.Validate())
		got = append(got, f)
		return nil
	}))
	return got, err
}

func types(frags []stream.Fragment) []stream.FragmentType {
	out := make([]stream.FragmentType, len(frags))
	for i, f := range frags {
		out[i] = f.Type
	}
	return out
}

func userTurn(text string) []models.Message {
	return []models.Message{models.NewUserMessage(text)}
}

func TestStreamTextOnlyTurn(t *testing.T) {
	model := &scriptedModel{steps: []step{{chunks: []openai.ChatCompletionStreamResponse{
		{}, // no choices
		textChunk("Hello"),
		textChunk(", world"),
	}}}}
	svc := newService(model, &stubSearcher{})

	frags, err := collect(t, svc, userTurn("hi"))
	require.NoError(t, err)
	require.Equal(t, []stream.FragmentType{
		stream.TypeStart, stream.TypeTextDelta, stream.TypeTextDelta, stream.TypeFinish,
	}, types(frags))
	require.NotEmpty(t, frags[0].MessageID)
	require.Equal(t, "Hello", frags[1].Delta)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	require.Equal(t, "test-model", req.Model)
	require.True(t, req.Stream)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, SystemPrompt, req.Messages[0].Content)
	require.Equal(t, "hi", req.Messages[1].Content)
	require.Len(t, req.Tools, 1)
	require.Equal(t, tools.LinkedInToolName, req.Tools[0].Function.Name)
}

func TestStreamToolCallTurn(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{
			toolChunk(0, "call_1", tools.LinkedInToolName, ""),
			toolChunk(0, "", "", `{"query":`),
			toolChunk(0, "", "", `"AI engineers"}`),
		}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("Found 2 people.")}},
	}}
	searcher := &stubSearcher{resp: &search.Response{Results: []search.Result{
		{Title: "Ada", URL: "https://linkedin.com/in/ada", Text: "ML"},
		{Title: "Alan", URL: "https://linkedin.com/in/alan"},
	}}}
	svc := newService(model, searcher)

	frags, err := collect(t, svc, userTurn("Find AI engineers"))
	require.NoError(t, err)
	require.Equal(t, []stream.FragmentType{
		stream.TypeStart,
		stream.TypeToolInputStart,
		stream.TypeToolInputDelta,
		stream.TypeToolInputDelta,
		stream.TypeToolInputAvailable,
		stream.TypeToolOutputAvailable,
		stream.TypeTextDelta,
		stream.TypeFinish,
	}, types(frags))

	for _, f := range frags[1:6] {
		require.Equal(t, "call_1", f.ToolCallID)
	}
	require.Equal(t, "AI engineers", frags[4].Input.Query)
	out := frags[5].Output
	require.True(t, out.Success)
	require.Len(t, out.Profiles, 2)
	require.Equal(t, tools.NoSummaryText, out.Profiles[1].Summary)
	require.Equal(t, 1, searcher.calls)

	require.Len(t, model.requests, 2)
	second := model.requests[1].Messages
	require.Len(t, second, 4)
	require.Equal(t, openai.ChatMessageRoleAssistant, second[2].Role)
	require.Equal(t, "call_1", second[2].ToolCalls[0].ID)
	require.Equal(t, `{"query":"AI engineers"}`, second[2].ToolCalls[0].Function.Arguments)
	require.Equal(t, openai.ChatMessageRoleTool, second[3].Role)
	require.Equal(t, "call_1", second[3].ToolCallID)
	require.Contains(t, second[3].Content, `"success":true`)
}

func TestStreamSearchFailureStillFinishes(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{toolChunk(0, "c1", tools.LinkedInToolName, `{"query":"x"}`)}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("Sorry, the search failed.")}},
	}}
	svc := newService(model, &stubSearcher{err: errors.New("upstream 500")})

	frags, err := collect(t, svc, userTurn("find x"))
	require.NoError(t, err)
	require.Equal(t, stream.TypeFinish, frags[len(frags)-1].Type)

	var output *models.ToolResult
	for _, f := range frags {
		if f.Type == stream.TypeToolOutputAvailable {
			output = f.Output
		}
	}
	require.NotNil(t, output)
	require.False(t, output.Success)
	require.Equal(t, tools.ErrSearchFailed, output.Error)
}

func TestStreamInvalidArgumentsBecomeOutputError(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{toolChunk(0, "c1", tools.LinkedInToolName, `{"query":`)}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("Let me try again.")}},
	}}
	searcher := &stubSearcher{}
	svc := newService(model, searcher)

	frags, err := collect(t, svc, userTurn("find"))
	require.NoError(t, err)
	require.Equal(t, []stream.FragmentType{
		stream.TypeStart,
		stream.TypeToolInputStart,
		stream.TypeToolInputDelta,
		stream.TypeToolOutputError,
		stream.TypeTextDelta,
		stream.TypeFinish,
	}, types(frags))
	require.Contains(t, frags[3].ErrorText, "Invalid input")
	require.Zero(t, searcher.calls)
	require.Contains(t, model.requests[1].Messages[3].Content, `"error"`)
}

func TestStreamUnknownToolBecomesOutputError(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{toolChunk(0, "c1", "send_email", `{"query":"x"}`)}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("ok")}},
	}}
	svc := newService(model, &stubSearcher{})

	frags, err := collect(t, svc, userTurn("mail"))
	require.NoError(t, err)
	var errText string
	for _, f := range frags {
		if f.Type == stream.TypeToolOutputError {
			errText = f.ErrorText
		}
	}
	require.Equal(t, "tool 'send_email' not found", errText)
}

func TestStreamParallelCallsKeepOrder(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{
			toolChunk(0, "a", tools.LinkedInToolName, `{"query":"one"}`),
			toolChunk(1, "b", tools.LinkedInToolName, `{"query":"two"}`),
		}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("done")}},
	}}
	searcher := &stubSearcher{resp: &search.Response{}}
	svc := newService(model, searcher)

	frags, err := collect(t, svc, userTurn("two searches"))
	require.NoError(t, err)
	require.Equal(t, 2, searcher.calls)

	var available []string
	for _, f := range frags {
		if f.Type == stream.TypeToolInputAvailable {
			available = append(available, f.Input.Query)
		}
	}
	require.Equal(t, []string{"one", "two"}, available)
	require.Len(t, model.requests[1].Messages[2].ToolCalls, 2)
}

func TestStreamUnindexedCallsSplitByID(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{
			unindexedChunk("a", tools.LinkedInToolName, `{"query":`),
			unindexedChunk("", "", `"one"}`),
			unindexedChunk("b", tools.LinkedInToolName, `{"query":"two"}`),
		}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("done")}},
	}}
	searcher := &stubSearcher{resp: &search.Response{}}
	svc := newService(model, searcher)

	frags, err := collect(t, svc, userTurn("two searches"))
	require.NoError(t, err)
	require.Equal(t, 2, searcher.calls)

	var started, available []string
	for _, f := range frags {
		switch f.Type {
		case stream.TypeToolInputStart:
			started = append(started, f.ToolCallID)
		case stream.TypeToolInputAvailable:
			available = append(available, f.Input.Query)
		case stream.TypeToolOutputError:
			t.Fatalf("unexpected tool error: %s", f.ErrorText)
		}
	}
	require.Equal(t, []string{"a", "b"}, started)
	require.Equal(t, []string{"one", "two"}, available)
	require.Len(t, model.requests[1].Messages[2].ToolCalls, 2)
}

func TestStreamGeneratesMissingCallID(t *testing.T) {
	model := &scriptedModel{steps: []step{
		{chunks: []openai.ChatCompletionStreamResponse{toolChunk(0, "", tools.LinkedInToolName, `{"query":"x"}`)}},
		{chunks: []openai.ChatCompletionStreamResponse{textChunk("ok")}},
	}}
	svc := newService(model, &stubSearcher{resp: &search.Response{}})

	frags, err := collect(t, svc, userTurn("x"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(frags[1].ToolCallID, "call_"))
	require.Equal(t, frags[1].ToolCallID, model.requests[1].Messages[3].ToolCallID)
}

func TestStreamModelFailureMidStream(t *testing.T) {
	model := &scriptedModel{steps: []step{{
		chunks: []openai.ChatCompletionStreamResponse{textChunk("partial")},
		err:    errors.New("connection reset"),
	}}}
	svc := newService(model, &stubSearcher{})

	frags, err := collect(t, svc, userTurn("hi"))
	require.Error(t, err)
	require.Equal(t, []stream.FragmentType{
		stream.TypeStart, stream.TypeTextDelta, stream.TypeError,
	}, types(frags))
	require.NotContains(t, frags[2].ErrorText, stream.RateLimitMarker)
}

func TestStreamProviderRateLimit(t *testing.T) {
	model := &scriptedModel{steps: []step{{
		openErr: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
	}}}
	svc := newService(model, &stubSearcher{})

	frags, err := collect(t, svc, userTurn("hi"))
	require.Error(t, err)
	last := frags[len(frags)-1]
	require.Equal(t, stream.TypeError, last.Type)
	require.True(t, strings.HasPrefix(last.ErrorText, stream.RateLimitMarker))
}

func TestStreamStopsAfterMaxSteps(t *testing.T) {
	loop := step{chunks: []openai.ChatCompletionStreamResponse{toolChunk(0, "", tools.LinkedInToolName, `{"query":"again"}`)}}
	model := &scriptedModel{steps: []step{loop, loop, loop}}
	svc := newService(model, &stubSearcher{resp: &search.Response{}}, WithMaxSteps(2))

	frags, err := collect(t, svc, userTurn("loop"))
	require.ErrorIs(t, err, ErrMaxStepsExceeded)
	require.Len(t, model.requests, 2)
	require.Equal(t, stream.TypeError, frags[len(frags)-1].Type)
}

func TestStreamRejectsEmptyConversation(t *testing.T) {
	svc := newService(&scriptedModel{}, &stubSearcher{})
	frags, err := collect(t, svc, nil)
	require.ErrorIs(t, err, ErrNoMessages)
	require.Empty(t, frags)
}

func TestStreamCanceledContextSendsNoError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model := &scriptedModel{steps: []step{{openErr: context.Canceled}}}
	svc := newService(model, &stubSearcher{})

	var got []stream.Fragment
	err := svc.Stream(ctx, userTurn("hi"), stream.SinkFunc(func(f stream.Fragment) error {
		got = append(got, f)
		return nil
	}))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []stream.FragmentType{stream.TypeStart}, types(got))
}

func TestErrorTextMarkers(t *testing.T) {
	require.True(t, strings.HasPrefix(ErrorText(&openai.RequestError{HTTPStatusCode: 429}), stream.RateLimitMarker))
	require.True(t, strings.HasPrefix(ErrorText(fmt.Errorf("wrapped: %w", &openai.APIError{HTTPStatusCode: 402})), stream.NoCreditsMarker))
	require.NotContains(t, ErrorText(&openai.APIError{HTTPStatusCode: 500}), stream.RateLimitMarker)
	require.NotContains(t, ErrorText(errors.New("boom")), stream.NoCreditsMarker)
}

func TestOpenAIModelStreamsFromCompatibleServer(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hi"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" there"},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	svc := newService(NewOpenAIModel("sk-test", srv.URL), &stubSearcher{})
	frags, err := collect(t, svc, userTurn("hello"))
	require.NoError(t, err)
	require.Equal(t, "/chat/completions", gotPath)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, []stream.FragmentType{
		stream.TypeStart, stream.TypeTextDelta, stream.TypeTextDelta, stream.TypeFinish,
	}, types(frags))
	require.Equal(t, " there", frags[2].Delta)
}

func TestOpenAIModelMapsProviderRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`)
	}))
	defer srv.Close()

	svc := newService(NewOpenAIModel("sk-test", srv.URL), &stubSearcher{})
	frags, err := collect(t, svc, userTurn("hello"))
	require.Error(t, err)
	require.True(t, strings.HasPrefix(frags[len(frags)-1].ErrorText, stream.RateLimitMarker))
}
