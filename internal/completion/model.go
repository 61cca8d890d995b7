package completion

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// DefaultBaseURL points go-openai at OpenRouter.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Model opens one streamed chat completion.
type Model interface {
	Stream(ctx context.Context, req openai.ChatCompletionRequest) (ModelStream, error)
}

// ModelStream yields chunks until io.EOF.
type ModelStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// OpenAIModel talks to any OpenAI-compatible endpoint.
type OpenAIModel struct {
	client *openai.Client
}

// NewOpenAIModel builds a client for apiKey. An empty baseURL uses OpenRouter.
// Generation deadlines come from the caller's context.
func NewOpenAIModel(apiKey, baseURL string) *OpenAIModel {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = DefaultBaseURL
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(clientConfig)}
}

func (m *OpenAIModel) Stream(ctx context.Context, req openai.ChatCompletionRequest) (ModelStream, error) {
	req.Stream = true
	s, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &openAIStream{stream: s}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	return s.stream.Recv()
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}
