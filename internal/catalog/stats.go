package catalog

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

const popularGenreLimit = 5

type statsReport struct {
	TotalBooks         int      `json:"total_books"`
	TotalAuthors       int      `json:"total_authors"`
	TotalPatrons       int      `json:"total_patrons"`
	ActiveCheckouts    int      `json:"active_checkouts"`
	OverdueCheckouts   int      `json:"overdue_checkouts"`
	ActiveReservations int      `json:"active_reservations"`
	PopularGenres      []string `json:"popular_genres"`
}

// StatsResource implements library://stats. Its six independent
// counts and one ranking query have no dependency on each other, so
// they run concurrently, each writing into its own slot of a
// pre-sized slice — the same indexed-slice, no-shared-state shape the
// teacher's graph-summary tool uses for its per-type counts.
type StatsResource struct {
	db *store.Store
}

func NewStatsResource(db *store.Store) *StatsResource {
	return &StatsResource{db: db}
}

func (r *StatsResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://stats",
		Name:        "Library statistics",
		Description: "Aggregate counts, popular genres, and overdue checkout count.",
		MimeType:    "application/json",
	}
}

type statQuery func(ctx context.Context, db *store.Store) (any, error)

func (r *StatsResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	queries := []statQuery{
		func(ctx context.Context, db *store.Store) (any, error) { return db.Stats().CountBooks(ctx) },
		func(ctx context.Context, db *store.Store) (any, error) { return db.Stats().CountAuthors(ctx) },
		func(ctx context.Context, db *store.Store) (any, error) { return db.Stats().CountPatrons(ctx) },
		func(ctx context.Context, db *store.Store) (any, error) { return db.Stats().CountActiveCheckouts(ctx) },
		func(ctx context.Context, db *store.Store) (any, error) {
			return db.Stats().CountOverdueCheckouts(ctx, time.Now().UTC().Format(time.RFC3339))
		},
		func(ctx context.Context, db *store.Store) (any, error) { return db.Stats().CountActiveReservations(ctx) },
		func(ctx context.Context, db *store.Store) (any, error) {
			return db.Stats().CheckoutsByGenre(ctx, popularGenreLimit)
		},
	}

	results := make([]any, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	wg.Add(len(queries))
	for i, q := range queries {
		go func(idx int, q statQuery) {
			defer wg.Done()
			v, err := q(ctx, r.db)
			results[idx] = v
			errs[idx] = err
		}(i, q)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	genres := results[6].([]store.GenreCount)
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Genre)
	}

	report := statsReport{
		TotalBooks:         results[0].(int),
		TotalAuthors:       results[1].(int),
		TotalPatrons:       results[2].(int),
		ActiveCheckouts:    results[3].(int),
		OverdueCheckouts:   results[4].(int),
		ActiveReservations: results[5].(int),
		PopularGenres:      names,
	}

	return jsonContent("library://stats", report)
}
