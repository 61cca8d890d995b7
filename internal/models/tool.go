package models

// ToolState is the lifecycle of a tool invocation. It only moves forward:
// input-streaming -> input-available -> output-available | output-error.
type ToolState string

const (
	ToolInputStreaming  ToolState = "input-streaming"
	ToolInputAvailable  ToolState = "input-available"
	ToolOutputAvailable ToolState = "output-available"
	ToolOutputError     ToolState = "output-error"
)

func (s ToolState) rank() int {
	switch s {
	case ToolInputStreaming:
		return 0
	case ToolInputAvailable:
		return 1
	case ToolOutputAvailable, ToolOutputError:
		return 2
	default:
		return -1
	}
}

func (s ToolState) Valid() bool {
	return s.rank() >= 0
}

// Terminal reports whether the invocation has finished.
func (s ToolState) Terminal() bool {
	return s.rank() == 2
}

// CanAdvanceTo allows staying in a non-terminal state (more input deltas) or
// moving to a later one. Terminal states accept nothing.
func (s ToolState) CanAdvanceTo(next ToolState) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// QueryInput is the argument object of the search tool.
type QueryInput struct {
	Query string `json:"query"`
}

// ToolResult is what the search tool hands back to the model and the UI.
type ToolResult struct {
	Success  bool      `json:"success"`
	Profiles []Profile `json:"profiles,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (r ToolResult) Clone() ToolResult {
	out := r
	if r.Profiles != nil {
		out.Profiles = make([]Profile, len(r.Profiles))
		for i, p := range r.Profiles {
			if p.Score != nil {
				s := *p.Score
				p.Score = &s
			}
			out.Profiles[i] = p
		}
	}
	return out
}

// Profile is one LinkedIn search hit.
type Profile struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Summary string   `json:"summary"`
	Score   *float64 `json:"score,omitempty"`
}
