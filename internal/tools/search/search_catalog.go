// Package search implements the search_catalog tool.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/librarymcp/librarymcp/internal/config"
	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

type searchCatalogParams struct {
	Query          string `json:"query,omitempty"`
	Genre          string `json:"genre,omitempty"`
	AuthorID       string `json:"author_id,omitempty"`
	AvailableOnly  bool   `json:"available_only,omitempty"`
	PublishedAfter int    `json:"published_after,omitempty"`
	Page           int    `json:"page,omitempty"`
	PageSize       int    `json:"page_size,omitempty"`
}

type searchCatalogResult struct {
	Books      []domain.Book `json:"books"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

// SearchCatalog implements search_catalog: a filtered, paginated book
// search over the catalog.
type SearchCatalog struct {
	db  *store.Store
	pag config.PaginationConfig
}

func NewSearchCatalog(db *store.Store, pag config.PaginationConfig) *SearchCatalog {
	return &SearchCatalog{db: db, pag: pag}
}

func (t *SearchCatalog) Name() string { return "search_catalog" }

func (t *SearchCatalog) Description() string {
	return "Search the book catalog by title text, genre, author, availability, and publication year, with pagination."
}

func (t *SearchCatalog) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Free-text match against book titles"},
    "genre": {"type": "string"},
    "author_id": {"type": "string"},
    "available_only": {"type": "boolean", "description": "Only return books with at least one available copy"},
    "published_after": {"type": "integer", "description": "Only return books published after this year"},
    "page": {"type": "integer", "minimum": 1},
    "page_size": {"type": "integer", "minimum": 1, "maximum": 100}
  }
}`)
}

func (t *SearchCatalog) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p searchCatalogParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, domain.NewInvalidParamError(fmt.Errorf("invalid parameters: %w", err))
		}
	}

	page := p.Page
	if page <= 0 {
		page = 1
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = t.pag.DefaultPageSize
	}
	if pageSize > t.pag.MaxPageSize {
		return nil, domain.NewInvalidParamError(fmt.Errorf("page_size %d exceeds maximum of %d", pageSize, t.pag.MaxPageSize))
	}

	books, total, err := t.db.Books().List(ctx, store.ListOptions{
		Genre:          p.Genre,
		AuthorID:       p.AuthorID,
		Query:          p.Query,
		PublishedAfter: p.PublishedAfter,
		AvailableOnly:  p.AvailableOnly,
		Offset:         (page - 1) * pageSize,
		Limit:          pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	if books == nil {
		books = []domain.Book{}
	}

	return mcp.JSONResult(searchCatalogResult{Books: books, TotalCount: total, Page: page, PageSize: pageSize})
}
