package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/librarymcp/librarymcp/internal/domain"
)

// BookRepo is the repository for Book rows, following the
// sqlx-over-database/sql shape used throughout this package:
// Add/Get/List/SetTotalCopies/Upsert, with Get and SetTotalCopies
// reporting a missing row as domain.ErrNotFound.
type BookRepo struct {
	q Querier
}

// bookRow mirrors domain.Book's storage columns; AvailableCopies is
// computed separately (it's derived, not stored) and AuthorIDs come
// from a join, so neither lives on this struct.
type bookRow struct {
	ISBN            string `db:"isbn"`
	Title           string `db:"title"`
	Genre           string `db:"genre"`
	PublicationYear int    `db:"publication_year"`
	TotalCopies     int    `db:"total_copies"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

func (r *BookRepo) Add(ctx context.Context, b domain.Book) error {
	query := `
		INSERT INTO books (isbn, title, genre, publication_year, total_copies, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.q.ExecContext(ctx, query,
		b.ISBN, b.Title, b.Genre, b.PublicationYear, b.TotalCopies, b.CreatedAt, b.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateISBN
		}
		return fmt.Errorf("inserting book: %w", err)
	}

	for _, authorID := range b.AuthorIDs {
		if _, err := r.q.ExecContext(ctx, `INSERT INTO book_authors (isbn, author_id) VALUES (?, ?)`, b.ISBN, authorID); err != nil {
			return fmt.Errorf("linking author %s: %w", authorID, err)
		}
	}

	return nil
}

func (r *BookRepo) Get(ctx context.Context, isbn string) (domain.Book, error) {
	var row bookRow
	if err := r.q.GetContext(ctx, &row, `SELECT isbn, title, genre, publication_year, total_copies, created_at, updated_at FROM books WHERE isbn = ?`, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Book{}, domain.ErrNotFound
		}
		return domain.Book{}, fmt.Errorf("getting book: %w", err)
	}

	authorIDs, err := r.authorIDsFor(ctx, isbn)
	if err != nil {
		return domain.Book{}, err
	}

	available, err := r.availableCopies(ctx, isbn, row.TotalCopies)
	if err != nil {
		return domain.Book{}, err
	}

	return rowToBook(row, authorIDs, available), nil
}

// availableCopies realizes I1: total copies minus open checkouts.
func (r *BookRepo) availableCopies(ctx context.Context, isbn string, total int) (int, error) {
	var openCheckouts int
	if err := r.q.GetContext(ctx, &openCheckouts, `SELECT COUNT(*) FROM checkouts WHERE isbn = ? AND return_date IS NULL`, isbn); err != nil {
		return 0, fmt.Errorf("counting open checkouts: %w", err)
	}
	return total - openCheckouts, nil
}

func (r *BookRepo) authorIDsFor(ctx context.Context, isbn string) ([]string, error) {
	var ids []string
	if err := r.q.SelectContext(ctx, &ids, `SELECT author_id FROM book_authors WHERE isbn = ? ORDER BY author_id`, isbn); err != nil {
		return nil, fmt.Errorf("listing book authors: %w", err)
	}
	return ids, nil
}

// ListOptions filters and paginates List, matching the resource
// catalog's query surface (genre filter, author filter, pagination,
// deterministic publication_year desc, isbn asc ordering) plus
// search_catalog's text/year filters. AvailableOnly is applied in the
// SQL itself by recomputing availability in a subquery, since
// availability is derived rather than stored.
type ListOptions struct {
	Genre          string
	AuthorID       string
	Query          string
	PublishedAfter int
	AvailableOnly  bool
	Offset         int
	Limit          int
}

func (r *BookRepo) List(ctx context.Context, opts ListOptions) ([]domain.Book, int, error) {
	var where []string
	var args []any

	base := `FROM books b`
	if opts.AuthorID != "" {
		base += ` JOIN book_authors ba ON ba.isbn = b.isbn`
		where = append(where, "ba.author_id = ?")
		args = append(args, opts.AuthorID)
	}
	if opts.Genre != "" {
		where = append(where, "b.genre = ?")
		args = append(args, opts.Genre)
	}
	if opts.Query != "" {
		where = append(where, "b.title LIKE ?")
		args = append(args, "%"+opts.Query+"%")
	}
	if opts.PublishedAfter > 0 {
		where = append(where, "b.publication_year > ?")
		args = append(args, opts.PublishedAfter)
	}
	if opts.AvailableOnly {
		where = append(where, `(b.total_copies - (SELECT COUNT(*) FROM checkouts c WHERE c.isbn = b.isbn AND c.return_date IS NULL)) > 0`)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(DISTINCT b.isbn) " + base + whereClause
	if err := r.q.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("counting books: %w", err)
	}

	listQuery := `SELECT DISTINCT b.isbn, b.title, b.genre, b.publication_year, b.total_copies, b.created_at, b.updated_at ` +
		base + whereClause +
		` ORDER BY b.publication_year DESC, b.isbn ASC LIMIT ? OFFSET ?`
	listArgs := append(append([]any{}, args...), opts.Limit, opts.Offset)

	var rows []bookRow
	if err := r.q.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("listing books: %w", err)
	}

	books := make([]domain.Book, 0, len(rows))
	for _, row := range rows {
		authorIDs, err := r.authorIDsFor(ctx, row.ISBN)
		if err != nil {
			return nil, 0, err
		}
		available, err := r.availableCopies(ctx, row.ISBN, row.TotalCopies)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, rowToBook(row, authorIDs, available))
	}

	return books, total, nil
}

func rowToBook(row bookRow, authorIDs []string, available int) domain.Book {
	return domain.Book{
		ISBN: row.ISBN, Title: row.Title, Genre: row.Genre,
		PublicationYear: row.PublicationYear, TotalCopies: row.TotalCopies,
		AvailableCopies: available, AuthorIDs: authorIDs,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

// SetTotalCopies updates a book's total copy count, for manual catalog
// corrections. Available copies are always recomputed from this value,
// never stored directly.
func (r *BookRepo) SetTotalCopies(ctx context.Context, isbn string, total int, updatedAt string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE books SET total_copies = ?, updated_at = ? WHERE isbn = ?`, total, updatedAt, isbn)
	if err != nil {
		return fmt.Errorf("updating total copies: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert inserts a new book or, if the ISBN already exists, updates its
// mutable fields and replaces its author links — the per-record
// idempotence bulk_import_books relies on. Returns created=true for a
// fresh insert, false for an update of an existing row.
func (r *BookRepo) Upsert(ctx context.Context, b domain.Book) (created bool, err error) {
	var exists int
	if err := r.q.GetContext(ctx, &exists, `SELECT COUNT(*) FROM books WHERE isbn = ?`, b.ISBN); err != nil {
		return false, fmt.Errorf("checking existing book: %w", err)
	}

	if exists == 0 {
		if err := r.Add(ctx, b); err != nil {
			return false, err
		}
		return true, nil
	}

	if _, err := r.q.ExecContext(ctx,
		`UPDATE books SET title = ?, genre = ?, publication_year = ?, total_copies = ?, updated_at = ? WHERE isbn = ?`,
		b.Title, b.Genre, b.PublicationYear, b.TotalCopies, b.UpdatedAt, b.ISBN); err != nil {
		return false, fmt.Errorf("updating book: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM book_authors WHERE isbn = ?`, b.ISBN); err != nil {
		return false, fmt.Errorf("clearing author links: %w", err)
	}
	for _, authorID := range b.AuthorIDs {
		if _, err := r.q.ExecContext(ctx, `INSERT INTO book_authors (isbn, author_id) VALUES (?, ?)`, b.ISBN, authorID); err != nil {
			return false, fmt.Errorf("relinking author %s: %w", authorID, err)
		}
	}

	return false, nil
}
