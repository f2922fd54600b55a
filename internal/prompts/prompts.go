// Package prompts implements the library MCP prompt registry:
// book_recommendations, reading_plan, and review_generator. Each
// embeds live store data into the prompt text the teacher's content
// package builds as static guides, since these prompts are
// parameterized by catalog/circulation state rather than fixed copy.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

// --- book_recommendations ---

// BookRecommendationsPrompt asks the model for count recommendations,
// grounded in a patron's recent checkout history when patron_id is given.
type BookRecommendationsPrompt struct {
	db *store.Store
}

func NewBookRecommendationsPrompt(db *store.Store) *BookRecommendationsPrompt {
	return &BookRecommendationsPrompt{db: db}
}

func (p *BookRecommendationsPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "book_recommendations",
		Description: "Ask for book recommendations, optionally grounded in a patron's recent checkout history or a genre.",
		Arguments: []mcp.PromptArgument{
			{Name: "genre", Description: "Restrict recommendations to this genre", Required: false},
			{Name: "patron_id", Description: "Ground recommendations in this patron's checkout history", Required: false},
			{Name: "count", Description: "How many recommendations to ask for (default 5)", Required: false},
		},
	}
}

func (p *BookRecommendationsPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	count := 5
	if raw := arguments["count"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}

	var history string
	if patronID := arguments["patron_id"]; patronID != "" {
		history = p.historySummary(patronID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %d books", count)
	if genre := arguments["genre"]; genre != "" {
		fmt.Fprintf(&b, " in the %s genre", genre)
	}
	b.WriteString(".\n")
	if history != "" {
		b.WriteString("\n" + history + "\n")
	}
	b.WriteString("\nFor each recommendation, give the title, author, and a one-sentence reason it fits.")

	return &mcp.PromptsGetResult{
		Description: "Book recommendation request",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(b.String())},
		},
	}, nil
}

func (p *BookRecommendationsPrompt) historySummary(patronID string) string {
	ctx := context.Background()
	checkouts, err := p.db.Circulation().AllCheckoutsForPatron(ctx, patronID)
	if err != nil || len(checkouts) == 0 {
		return ""
	}
	limit := len(checkouts)
	if limit > 10 {
		limit = 10
	}
	titles := make([]string, 0, limit)
	for _, c := range checkouts[:limit] {
		book, err := p.db.Books().Get(ctx, c.ISBN)
		if err != nil {
			continue
		}
		titles = append(titles, book.Title)
	}
	if len(titles) == 0 {
		return ""
	}
	return "This patron has recently read: " + strings.Join(titles, ", ") + "."
}

// --- reading_plan ---

// ReadingPlanPrompt returns a structured multi-message plan request.
type ReadingPlanPrompt struct{}

func NewReadingPlanPrompt() *ReadingPlanPrompt { return &ReadingPlanPrompt{} }

func (p *ReadingPlanPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "reading_plan",
		Description: "Request a structured multi-month reading plan around a theme.",
		Arguments: []mcp.PromptArgument{
			{Name: "theme", Description: "Subject or theme to build the plan around", Required: true},
			{Name: "duration_months", Description: "Length of the plan in months", Required: true},
			{Name: "level", Description: "beginner, intermediate, or advanced", Required: true},
			{Name: "hours_per_week", Description: "Expected reading time per week", Required: false},
		},
	}
}

func (p *ReadingPlanPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	theme := arguments["theme"]
	duration := arguments["duration_months"]
	level := arguments["level"]
	if theme == "" || duration == "" || level == "" {
		return nil, domain.NewInvalidParamError(fmt.Errorf("theme, duration_months, and level are required"))
	}
	switch level {
	case "beginner", "intermediate", "advanced":
	default:
		return nil, domain.NewInvalidParamError(fmt.Errorf("level must be beginner, intermediate, or advanced"))
	}

	hours := arguments["hours_per_week"]
	if hours == "" {
		hours = "unspecified"
	}

	system := fmt.Sprintf(
		"You are a librarian building a %s-month reading plan on %q for a %s reader. Available reading time: %s hours/week.",
		duration, theme, level, hours)
	user := "Produce a month-by-month plan: which books to read each month, in what order, and why that order builds understanding of the theme."

	return &mcp.PromptsGetResult{
		Description: "Structured reading plan request",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(system)},
			{Role: "user", Content: mcp.TextContent(user)},
		},
	}, nil
}

// --- review_generator ---

// ReviewGeneratorPrompt embeds book metadata and asks for a review in
// a given style and for a given audience.
type ReviewGeneratorPrompt struct {
	db *store.Store
}

func NewReviewGeneratorPrompt(db *store.Store) *ReviewGeneratorPrompt {
	return &ReviewGeneratorPrompt{db: db}
}

func (p *ReviewGeneratorPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "review_generator",
		Description: "Generate a book review in a given style for a given audience, grounded in the book's catalog metadata.",
		Arguments: []mcp.PromptArgument{
			{Name: "isbn", Description: "ISBN-13 of the book to review", Required: true},
			{Name: "style", Description: "academic, casual, or critical", Required: true},
			{Name: "audience", Description: "Intended readership of the review", Required: false},
		},
	}
}

func (p *ReviewGeneratorPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	isbn := arguments["isbn"]
	style := arguments["style"]
	if isbn == "" || style == "" {
		return nil, domain.NewInvalidParamError(fmt.Errorf("isbn and style are required"))
	}
	switch style {
	case "academic", "casual", "critical":
	default:
		return nil, domain.NewInvalidParamError(fmt.Errorf("style must be academic, casual, or critical"))
	}

	book, err := p.db.Books().Get(context.Background(), isbn)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewInvalidParamError(fmt.Errorf("book %q: %w", isbn, err))
		}
		return nil, err
	}

	audience := arguments["audience"]
	if audience == "" {
		audience = "general readers"
	}

	text := fmt.Sprintf(
		"Write a %s review of %q (%s, published %d) for %s.",
		style, book.Title, book.Genre, book.PublicationYear, audience)

	return &mcp.PromptsGetResult{
		Description: "Book review request",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(text)},
		},
	}, nil
}
