package store

import (
	"context"
	"fmt"
)

// StatsRepo backs the library://stats aggregate resource with a small
// set of independent count queries.
type StatsRepo struct {
	q Querier
}

func (r *StatsRepo) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM books`); err != nil {
		return 0, fmt.Errorf("counting books: %w", err)
	}
	return n, nil
}

func (r *StatsRepo) CountAuthors(ctx context.Context) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM authors`); err != nil {
		return 0, fmt.Errorf("counting authors: %w", err)
	}
	return n, nil
}

func (r *StatsRepo) CountPatrons(ctx context.Context) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM patrons`); err != nil {
		return 0, fmt.Errorf("counting patrons: %w", err)
	}
	return n, nil
}

func (r *StatsRepo) CountActiveCheckouts(ctx context.Context) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM checkouts WHERE return_date IS NULL`); err != nil {
		return 0, fmt.Errorf("counting active checkouts: %w", err)
	}
	return n, nil
}

func (r *StatsRepo) CountOverdueCheckouts(ctx context.Context, asOf string) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM checkouts WHERE return_date IS NULL AND due_date < ?`, asOf); err != nil {
		return 0, fmt.Errorf("counting overdue checkouts: %w", err)
	}
	return n, nil
}

func (r *StatsRepo) CountActiveReservations(ctx context.Context) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, `SELECT COUNT(*) FROM reservations WHERE status = 'active'`); err != nil {
		return 0, fmt.Errorf("counting active reservations: %w", err)
	}
	return n, nil
}

// GenreCount pairs a genre with the number of checkouts (open or
// closed) ever issued against books in it — the basis for "popular
// genres" ranking.
type GenreCount struct {
	Genre string `db:"genre"`
	Count int    `db:"count"`
}

func (r *StatsRepo) CheckoutsByGenre(ctx context.Context, limit int) ([]GenreCount, error) {
	var rows []GenreCount
	err := r.q.SelectContext(ctx, &rows,
		`SELECT b.genre AS genre, COUNT(*) AS count
		 FROM checkouts c JOIN books b ON b.isbn = c.isbn
		 GROUP BY b.genre ORDER BY count DESC, b.genre ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("counting checkouts by genre: %w", err)
	}
	return rows, nil
}
