package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/filiksyos/linkedin-search-app/internal/models"
	"github.com/filiksyos/linkedin-search-app/internal/search"
)

const (
	LinkedInToolName = "search_linkedin"

	MaxProfiles      = 10
	MaxSummaryRunes  = 300
	NoSummaryText    = "No summary available"
	ErrQueryRequired = "Query parameter is required"
	ErrSearchFailed  = "Failed to search LinkedIn profiles"

	linkedInCategory = "linkedin profile"
	linkedInDomain   = "linkedin.com"
	searchTypeAuto   = "auto"
)

// LinkedInSearchTool turns a query string into LinkedIn profile candidates.
// Search failures never escape as errors; they become an unsuccessful result
// the model and the UI can show inline.
type LinkedInSearchTool struct {
	searcher search.Searcher
	timeout  time.Duration
	logger   *slog.Logger
}

type LinkedInOption func(*LinkedInSearchTool)

// WithSearchTimeout bounds each search call. Zero means no extra deadline.
func WithSearchTimeout(timeout time.Duration) LinkedInOption {
	return func(t *LinkedInSearchTool) {
		t.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) LinkedInOption {
	return func(t *LinkedInSearchTool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewLinkedInSearchTool(searcher search.Searcher, opts ...LinkedInOption) *LinkedInSearchTool {
	t := &LinkedInSearchTool{
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *LinkedInSearchTool) Name() string {
	return LinkedInToolName
}

func (t *LinkedInSearchTool) Description() string {
	return "Search for LinkedIn profiles based on a query. Use this when the user wants to find people, professionals, or specific roles on LinkedIn."
}

func (t *LinkedInSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"type":        "string",
			"description": `The search query to find LinkedIn profiles (e.g., "AI engineers", "Anthropic developers", "Product managers in San Francisco")`,
		},
	}
}

func (t *LinkedInSearchTool) RequiredParameters() []string {
	return []string{"query"}
}

func (t *LinkedInSearchTool) Execute(ctx context.Context, args map[string]interface{}) (models.ToolResult, error) {
	query, _ := args["query"].(string)
	return t.Search(ctx, models.QueryInput{Query: query}), nil
}

// Search runs one provider query restricted to LinkedIn profiles.
func (t *LinkedInSearchTool) Search(ctx context.Context, input models.QueryInput) models.ToolResult {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		t.logger.Warn("linkedin search called without query")
		return models.ToolResult{Success: false, Error: ErrQueryRequired}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.logger.Info("searching linkedin", slog.String("query", query))
	resp, err := t.searcher.Search(ctx, search.Request{
		Query:          query,
		Type:           searchTypeAuto,
		Category:       linkedInCategory,
		IncludeDomains: []string{linkedInDomain},
		NumResults:     MaxProfiles,
		Contents:       &search.Contents{Text: true},
	})
	if err != nil {
		t.logger.Error("linkedin search failed", slog.String("query", query), slog.Any("error", err))
		return models.ToolResult{Success: false, Error: ErrSearchFailed}
	}

	hits := resp.Results
	if len(hits) > MaxProfiles {
		hits = hits[:MaxProfiles]
	}
	profiles := make([]models.Profile, 0, len(hits))
	for _, hit := range hits {
		profiles = append(profiles, models.Profile{
			Title:   hit.Title,
			URL:     hit.URL,
			Summary: summarize(hit.Text),
			Score:   hit.Score,
		})
	}

	t.logger.Info("linkedin search done", slog.String("query", query), slog.Int("profiles", len(profiles)))
	return models.ToolResult{Success: true, Profiles: profiles}
}

func summarize(text string) string {
	if text == "" {
		return NoSummaryText
	}
	runes := []rune(text)
	if len(runes) > MaxSummaryRunes {
		return string(runes[:MaxSummaryRunes])
	}
	return text
}
