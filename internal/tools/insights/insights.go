// Package insights implements generate_book_insights: an AI-assisted
// tool that asks the connected client to sample a model for book
// commentary, falling back to deterministic templated content built
// from stored metadata when the client doesn't support sampling, the
// request times out, or the client refuses.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/librarymcp/librarymcp/internal/config"
	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

// InsightType enumerates generate_book_insights' valid insight_type values.
const (
	InsightSummary             = "summary"
	InsightThemes              = "themes"
	InsightDiscussionQuestions = "discussion_questions"
	InsightSimilarBooks        = "similar_books"
)

func validInsightType(t string) bool {
	switch t {
	case InsightSummary, InsightThemes, InsightDiscussionQuestions, InsightSimilarBooks:
		return true
	default:
		return false
	}
}

type generateBookInsightsParams struct {
	ISBN        string `json:"isbn"`
	InsightType string `json:"insight_type"`
}

type generateBookInsightsResult struct {
	ISBN           string  `json:"isbn"`
	InsightType    string  `json:"insight_type"`
	Content        string  `json:"content"`
	FallbackReason *string `json:"fallback_reason,omitempty"`
}

// sampler is the subset of *mcp.Server that GenerateBookInsights needs,
// narrowed so the tool can be tested without a live server.
type sampler interface {
	RequestSampling(ctx context.Context, params mcp.SamplingCreateMessageParams, timeout time.Duration) (*mcp.SamplingCreateMessageResult, error)
}

// GenerateBookInsights implements generate_book_insights.
type GenerateBookInsights struct {
	db      *store.Store
	sampler sampler
	timeout time.Duration

	cacheMu sync.Mutex
	cache   map[string]generateBookInsightsResult
}

func NewGenerateBookInsights(db *store.Store, sampler sampler, cfg config.SamplingConfig) *GenerateBookInsights {
	return &GenerateBookInsights{
		db:      db,
		sampler: sampler,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		cache:   make(map[string]generateBookInsightsResult),
	}
}

func (t *GenerateBookInsights) Name() string { return "generate_book_insights" }

func (t *GenerateBookInsights) Description() string {
	return "Generate AI commentary about a book (summary, themes, discussion questions, or similar books), falling back to deterministic templated content when sampling is unavailable."
}

func (t *GenerateBookInsights) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "isbn": {"type": "string"},
    "insight_type": {"type": "string", "enum": ["summary", "themes", "discussion_questions", "similar_books"]}
  },
  "required": ["isbn", "insight_type"]
}`)
}

func (t *GenerateBookInsights) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p generateBookInsightsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.NewInvalidParamError(fmt.Errorf("invalid parameters: %w", err))
	}
	if p.ISBN == "" || !validInsightType(p.InsightType) {
		return nil, domain.NewInvalidParamError(fmt.Errorf("isbn is required and insight_type must be one of summary, themes, discussion_questions, similar_books"))
	}

	cacheKey := p.ISBN + "|" + p.InsightType
	t.cacheMu.Lock()
	if cached, ok := t.cache[cacheKey]; ok {
		t.cacheMu.Unlock()
		return mcp.JSONResult(cached)
	}
	t.cacheMu.Unlock()

	book, err := t.db.Books().Get(ctx, p.ISBN)
	if err != nil {
		return nil, err
	}

	authorNames := t.authorNames(ctx, book.AuthorIDs)

	result, err := t.sample(ctx, book, authorNames, p.InsightType)
	if err != nil {
		return nil, fmt.Errorf("requesting sampling: %w", err)
	}
	if result == nil {
		reason := "no_client_capability"
		result = &generateBookInsightsResult{
			ISBN:           book.ISBN,
			InsightType:    p.InsightType,
			Content:        fallbackContent(book, authorNames, p.InsightType),
			FallbackReason: &reason,
		}
	}

	t.cacheMu.Lock()
	t.cache[cacheKey] = *result
	t.cacheMu.Unlock()

	return mcp.JSONResult(*result)
}

func (t *GenerateBookInsights) authorNames(ctx context.Context, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		a, err := t.db.Authors().Get(ctx, id)
		if err != nil {
			continue
		}
		names = append(names, a.Name)
	}
	return names
}

func (t *GenerateBookInsights) sample(ctx context.Context, book domain.Book, authorNames []string, insightType string) (*generateBookInsightsResult, error) {
	prompt := samplingPrompt(book, authorNames, insightType)
	resp, err := t.sampler.RequestSampling(ctx, mcp.SamplingCreateMessageParams{
		Messages: []mcp.SamplingMessage{
			{Role: "user", Content: mcp.TextContent(prompt)},
		},
		SystemPrompt: "You are a librarian writing concise, accurate commentary about books for patrons.",
		MaxTokens:    512,
	}, t.timeout)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &generateBookInsightsResult{
		ISBN:        book.ISBN,
		InsightType: insightType,
		Content:     resp.Content.Text,
	}, nil
}

func samplingPrompt(book domain.Book, authorNames []string, insightType string) string {
	byline := strings.Join(authorNames, ", ")
	switch insightType {
	case InsightThemes:
		return fmt.Sprintf("List the major themes of %q by %s (%s, %s).", book.Title, byline, book.Genre, yearString(book.PublicationYear))
	case InsightDiscussionQuestions:
		return fmt.Sprintf("Write a book-club discussion questions list for %q by %s.", book.Title, byline)
	case InsightSimilarBooks:
		return fmt.Sprintf("Suggest books similar to %q by %s, a %s novel.", book.Title, byline, book.Genre)
	default:
		return fmt.Sprintf("Write a short, spoiler-free summary of %q by %s.", book.Title, byline)
	}
}

// fallbackContent builds deterministic templated text from stored
// metadata alone — no model call, no randomness, same output every
// time for the same book.
func fallbackContent(book domain.Book, authorNames []string, insightType string) string {
	byline := strings.Join(authorNames, ", ")
	if byline == "" {
		byline = "an unlisted author"
	}
	switch insightType {
	case InsightThemes:
		return fmt.Sprintf("%q is catalogued under %s; its themes are not yet available from sampling.", book.Title, book.Genre)
	case InsightDiscussionQuestions:
		return fmt.Sprintf("What drew you to %q by %s? How does it represent the %s genre?", book.Title, byline, book.Genre)
	case InsightSimilarBooks:
		return fmt.Sprintf("Books in the %s genre similar to %q are not available without AI sampling; browse library://genres/%s/books instead.", book.Genre, book.Title, book.Genre)
	default:
		return fmt.Sprintf("%q by %s is a %s title published in %s, with %d of %d copies currently available.",
			book.Title, byline, book.Genre, yearString(book.PublicationYear), book.AvailableCopies, book.TotalCopies)
	}
}

func yearString(year int) string {
	return fmt.Sprintf("%d", year)
}
