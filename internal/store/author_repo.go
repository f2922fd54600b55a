package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/librarymcp/librarymcp/internal/domain"
)

type AuthorRepo struct {
	q Querier
}

func (r *AuthorRepo) Add(ctx context.Context, a domain.Author) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO authors (id, name, bio, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Bio, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("author %s: %w", a.ID, domain.ErrDuplicateID)
		}
		return fmt.Errorf("inserting author: %w", err)
	}
	return nil
}

func (r *AuthorRepo) Get(ctx context.Context, id string) (domain.Author, error) {
	var a domain.Author
	if err := r.q.GetContext(ctx, &a, `SELECT id, name, bio, created_at, updated_at FROM authors WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Author{}, domain.ErrNotFound
		}
		return domain.Author{}, fmt.Errorf("getting author: %w", err)
	}
	return a, nil
}

func (r *AuthorRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := r.q.GetContext(ctx, &count, `SELECT COUNT(*) FROM authors WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("checking author existence: %w", err)
	}
	return count > 0, nil
}

// EnsureExists inserts the author if its id is new, or updates name/bio
// on an existing row — the author-side half of bulk_import_books'
// per-record upsert.
func (r *AuthorRepo) EnsureExists(ctx context.Context, a domain.Author) (created bool, err error) {
	exists, err := r.Exists(ctx, a.ID)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := r.Add(ctx, a); err != nil {
			return false, err
		}
		return true, nil
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE authors SET name = ?, bio = ?, updated_at = ? WHERE id = ?`, a.Name, a.Bio, a.UpdatedAt, a.ID); err != nil {
		return false, fmt.Errorf("updating author: %w", err)
	}
	return false, nil
}

// BooksByAuthor lists every book with this author attached, ordered
// the same deterministic way as the book catalog.
func (r *AuthorRepo) BooksByAuthor(ctx context.Context, authorID string, offset, limit int) ([]string, int, error) {
	var total int
	if err := r.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM book_authors WHERE author_id = ?`, authorID); err != nil {
		return nil, 0, fmt.Errorf("counting author books: %w", err)
	}

	var isbns []string
	err := r.q.SelectContext(ctx, &isbns, `
		SELECT b.isbn FROM books b
		JOIN book_authors ba ON ba.isbn = b.isbn
		WHERE ba.author_id = ?
		ORDER BY b.publication_year DESC, b.isbn ASC
		LIMIT ? OFFSET ?`, authorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing author books: %w", err)
	}
	return isbns, total, nil
}
