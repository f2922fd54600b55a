package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

// BooksResource implements library://books: the paginated full
// catalog, ordered publication_year desc, isbn asc.
type BooksResource struct {
	db    *store.Store
	pager Pager
}

func NewBooksResource(db *store.Store, pager Pager) *BooksResource {
	return &BooksResource{db: db, pager: pager}
}

func (r *BooksResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://books",
		Name:        "Books catalog",
		Description: "Paginated list of every book in the catalog, ordered by publication year (desc) then ISBN.",
		MimeType:    "application/json",
		List:        true,
	}
}

func (r *BooksResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	p, size, offset, err := r.pager.Parse(query)
	if err != nil {
		return nil, err
	}
	books, total, err := r.db.Books().List(ctx, store.ListOptions{
		Genre: query.Get("genre"), Offset: offset, Limit: size,
	})
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return jsonContent("library://books", page[domain.Book]{Items: books, Page: p, PageSize: size, TotalItems: total})
}

// BookDetailResource implements library://books/{isbn}.
type BookDetailResource struct {
	db *store.Store
}

func NewBookDetailResource(db *store.Store) *BookDetailResource {
	return &BookDetailResource{db: db}
}

func (r *BookDetailResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://books/{isbn}",
		Name:        "Book detail",
		Description: "A single book by ISBN-13, including live available_copies.",
		MimeType:    "application/json",
	}
}

func (r *BookDetailResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	isbn := uriParams["isbn"]
	book, err := r.db.Books().Get(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return jsonContent("library://books/"+isbn, book)
}

// GenreBooksResource implements library://genres/{genre}/books.
type GenreBooksResource struct {
	db    *store.Store
	pager Pager
}

func NewGenreBooksResource(db *store.Store, pager Pager) *GenreBooksResource {
	return &GenreBooksResource{db: db, pager: pager}
}

func (r *GenreBooksResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://genres/{genre}/books",
		Name:        "Books by genre",
		Description: "Paginated list of books in a single genre.",
		MimeType:    "application/json",
		List:        true,
	}
}

func (r *GenreBooksResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	genre := uriParams["genre"]
	p, size, offset, err := r.pager.Parse(query)
	if err != nil {
		return nil, err
	}
	books, total, err := r.db.Books().List(ctx, store.ListOptions{Genre: genre, Offset: offset, Limit: size})
	if err != nil {
		return nil, fmt.Errorf("listing books by genre: %w", err)
	}
	return jsonContent("library://genres/"+genre+"/books", page[domain.Book]{Items: books, Page: p, PageSize: size, TotalItems: total})
}

// AuthorBooksResource implements library://authors/{author_id}/books.
type AuthorBooksResource struct {
	db    *store.Store
	pager Pager
}

func NewAuthorBooksResource(db *store.Store, pager Pager) *AuthorBooksResource {
	return &AuthorBooksResource{db: db, pager: pager}
}

func (r *AuthorBooksResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://authors/{author_id}/books",
		Name:        "Books by author",
		Description: "Paginated list of books written by a single author.",
		MimeType:    "application/json",
		List:        true,
	}
}

func (r *AuthorBooksResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	authorID := uriParams["author_id"]
	if ok, err := r.db.Authors().Exists(ctx, authorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrNotFound
	}

	p, size, offset, err := r.pager.Parse(query)
	if err != nil {
		return nil, err
	}
	isbns, total, err := r.db.Authors().BooksByAuthor(ctx, authorID, offset, size)
	if err != nil {
		return nil, fmt.Errorf("listing author books: %w", err)
	}

	books := make([]domain.Book, 0, len(isbns))
	for _, isbn := range isbns {
		b, err := r.db.Books().Get(ctx, isbn)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	return jsonContent("library://authors/"+authorID+"/books", page[domain.Book]{Items: books, Page: p, PageSize: size, TotalItems: total})
}
