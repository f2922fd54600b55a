package catalog

import (
	"context"
	"errors"
	"net/url"
	"sort"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

const recommendationGenreLimit = 3
const recommendationBookLimit = 20

// genreRank is one genre's standing in a patron's circulation history.
type genreRank struct {
	Genre          string
	Count          int
	MostRecentDate string
}

// RecommendationsResource implements library://recommendations/{patron_id}.
//
// Ranking is deterministic, not AI-generated: a patron's most-frequent
// genres among their past checkouts (by count, ties broken by
// most-recent checkout_date), then the highest (publication_year desc,
// isbn asc) available books in those genres the patron has never
// checked out.
type RecommendationsResource struct {
	db *store.Store
}

func NewRecommendationsResource(db *store.Store) *RecommendationsResource {
	return &RecommendationsResource{db: db}
}

func (r *RecommendationsResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://recommendations/{patron_id}",
		Name:        "Book recommendations",
		Description: "Ranked recommendation list derived from a patron's circulation history.",
		MimeType:    "application/json",
	}
}

func (r *RecommendationsResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	patronID := uriParams["patron_id"]

	if _, err := r.db.Patrons().Get(ctx, patronID); err != nil {
		return nil, err
	}

	history, err := r.db.Circulation().AllCheckoutsForPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}

	alreadyRead := make(map[string]bool, len(history))
	genreCounts := map[string]int{}
	genreMostRecent := map[string]string{}
	for _, c := range history {
		alreadyRead[c.ISBN] = true
		book, err := r.db.Books().Get(ctx, c.ISBN)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		genreCounts[book.Genre]++
		if c.CheckoutDate > genreMostRecent[book.Genre] {
			genreMostRecent[book.Genre] = c.CheckoutDate
		}
	}

	ranks := make([]genreRank, 0, len(genreCounts))
	for genre, count := range genreCounts {
		ranks = append(ranks, genreRank{Genre: genre, Count: count, MostRecentDate: genreMostRecent[genre]})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Count != ranks[j].Count {
			return ranks[i].Count > ranks[j].Count
		}
		if ranks[i].MostRecentDate != ranks[j].MostRecentDate {
			return ranks[i].MostRecentDate > ranks[j].MostRecentDate
		}
		return ranks[i].Genre < ranks[j].Genre
	})
	if len(ranks) > recommendationGenreLimit {
		ranks = ranks[:recommendationGenreLimit]
	}

	var recommended []domain.Book
	for _, rank := range ranks {
		books, _, err := r.db.Books().List(ctx, store.ListOptions{Genre: rank.Genre, Limit: recommendationBookLimit})
		if err != nil {
			return nil, err
		}
		for _, b := range books {
			if alreadyRead[b.ISBN] || b.AvailableCopies <= 0 {
				continue
			}
			recommended = append(recommended, b)
		}
	}
	if recommended == nil {
		recommended = []domain.Book{}
	}
	if len(recommended) > recommendationBookLimit {
		recommended = recommended[:recommendationBookLimit]
	}

	result := struct {
		PatronID        string        `json:"patron_id"`
		BasedOnGenres   []string      `json:"based_on_genres"`
		Recommendations []domain.Book `json:"recommendations"`
	}{
		PatronID:        patronID,
		BasedOnGenres:   genreNames(ranks),
		Recommendations: recommended,
	}

	return jsonContent("library://recommendations/"+patronID, result)
}

func genreNames(ranks []genreRank) []string {
	names := make([]string, 0, len(ranks))
	for _, r := range ranks {
		names = append(names, r.Genre)
	}
	return names
}
