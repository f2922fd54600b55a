package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarymcp/librarymcp/internal/config"
	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addBook(t *testing.T, db *store.Store, isbn, title, genre string, year int) {
	t.Helper()
	_, err := db.Authors().EnsureExists(context.Background(), domain.Author{
		ID: "a1", Name: "Author One", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	require.NoError(t, db.Books().Add(context.Background(), domain.Book{
		ISBN: isbn, Title: title, Genre: genre, PublicationYear: year,
		TotalCopies: 2, AuthorIDs: []string{"a1"},
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
}

func TestSearchCatalog_FiltersByGenre(t *testing.T) {
	db := newTestStore(t)
	addBook(t, db, "9780134190440", "The Go Programming Language", "technology", 2015)
	addBook(t, db, "9780132350884", "Clean Code", "technology", 2008)
	addBook(t, db, "9780439708180", "Harry Potter", "fantasy", 1997)

	tool := NewSearchCatalog(db, config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100})
	params, _ := json.Marshal(map[string]string{"genre": "technology"})

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)

	var got searchCatalogResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 2, got.TotalCount)
	assert.Len(t, got.Books, 2)
}

func TestSearchCatalog_PageSizeExceedsMax(t *testing.T) {
	db := newTestStore(t)
	tool := NewSearchCatalog(db, config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 50})
	params, _ := json.Marshal(map[string]int{"page_size": 200})

	_, err := tool.Execute(context.Background(), params)
	var invalid *domain.InvalidParamError
	require.ErrorAs(t, err, &invalid)
}

func TestSearchCatalog_DefaultsToPageOne(t *testing.T) {
	db := newTestStore(t)
	addBook(t, db, "9780134190440", "The Go Programming Language", "technology", 2015)

	tool := NewSearchCatalog(db, config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100})
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	var got searchCatalogResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 20, got.PageSize)
}

func TestSearchCatalog_NoResults_ReturnsEmptyNotNilSlice(t *testing.T) {
	db := newTestStore(t)
	tool := NewSearchCatalog(db, config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100})

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"genre":"nonexistent"}`))
	require.NoError(t, err)

	var got searchCatalogResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 0, got.TotalCount)
	assert.NotNil(t, got.Books)
	assert.Len(t, got.Books, 0)
}
