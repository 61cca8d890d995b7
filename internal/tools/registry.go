package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/filiksyos/linkedin-search-app/internal/models"
)

// Tool represents a function that can be called by the AI
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{} // JSON schema for parameters
	RequiredParameters() []string       // List of required parameter names
	Execute(ctx context.Context, args map[string]interface{}) (models.ToolResult, error)
}

// ToolCall represents a tool call request as the model produced it
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// CallResult is the outcome of running one ToolCall. Error is set when the
// call could not run at all (unknown tool, unparsable arguments); a tool that
// ran and failed reports that inside Result.
type CallResult struct {
	CallID string            `json:"call_id"`
	Name   string            `json:"name"`
	Result models.ToolResult `json:"result"`
	Error  string            `json:"error,omitempty"`
}

// Registry manages available tools
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// GetTool retrieves a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools ordered by name
func (r *Registry) ListTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetOpenAIToolsSpec returns OpenAI-compatible tool definitions
func (r *Registry) GetOpenAIToolsSpec() []openai.Tool {
	tools := r.ListTools()
	specs := make([]openai.Tool, len(tools))

	for i, tool := range tools {
		specs[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": tool.Parameters(),
					"required":   tool.RequiredParameters(),
				},
			},
		}
	}

	return specs
}

// Execute runs a tool call synchronously
func (r *Registry) Execute(ctx context.Context, call ToolCall) CallResult {
	out := CallResult{CallID: call.ID, Name: call.Name}

	tool, exists := r.GetTool(call.Name)
	if !exists {
		out.Error = fmt.Sprintf("tool '%s' not found", call.Name)
		return out
	}

	args, err := ParseArguments(call.Arguments)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Result = result
	return out
}

// ParseArguments decodes the model's JSON argument string. An empty string is
// an empty object.
func ParseArguments(raw string) (map[string]interface{}, error) {
	args := make(map[string]interface{})
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %v", err)
	}
	return args, nil
}

// ToJSONString converts a tool result to the string handed back to the model
func ToJSONString(result models.ToolResult) string {
	data, _ := json.Marshal(result)
	return string(data)
}
