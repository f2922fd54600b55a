package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/librarymcp/librarymcp/internal/store"
)

// checkAvailabilityDrift verifies I1: a book's open-checkout count can
// never exceed its total_copies. Available copies are always derived
// at read time (never stored redundantly), so there's nothing to
// repair here — a violation can only mean a rule was bypassed
// (impossible through the tool layer) or total_copies was lowered
// below the number of books already checked out. Both are reported,
// not silently fixed, since guessing which side is wrong would be
// fabricating data.
func checkAvailabilityDrift(ctx context.Context, db *store.Store) ([]Issue, error) {
	books, _, err := db.Books().List(ctx, store.ListOptions{Limit: 1 << 30})
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	var issues []Issue
	for _, b := range books {
		if b.AvailableCopies < 0 {
			issues = append(issues, Issue{
				Severity:    "critical",
				EntityType:  "book",
				EntityID:    b.ISBN,
				Description: fmt.Sprintf("total_copies (%d) is less than the number of open checkouts", b.TotalCopies),
				Repaired:    false,
			})
		}
	}
	return issues, nil
}

// checkQueueDensity verifies I2: active reservation queue positions
// for each ISBN form a dense 1..N sequence. Gaps are repaired by
// renumbering in place, since the only source of a gap is a prior
// CloseReservation call that didn't fully renumber (e.g. a crash
// mid-sweep) — the fix is mechanical, not a judgment call.
func checkQueueDensity(ctx context.Context, db *store.Store) ([]Issue, error) {
	isbns, err := distinctReservedISBNs(ctx, db)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	now := time.Now().UTC().Format(time.RFC3339)
	for _, isbn := range isbns {
		reservations, err := db.Circulation().ActiveReservations(ctx, isbn)
		if err != nil {
			return nil, fmt.Errorf("listing reservations for %s: %w", isbn, err)
		}
		for i, res := range reservations {
			want := i + 1
			if res.QueuePosition != want {
				issues = append(issues, Issue{
					Severity:    "warning",
					EntityType:  "reservation",
					EntityID:    res.ID,
					Description: fmt.Sprintf("queue position %d should be %d", res.QueuePosition, want),
					Repaired:    true,
				})
				if err := db.WithTx(ctx, func(tx *store.Tx) error {
					return tx.Circulation().RenumberReservation(ctx, res.ID, want, now)
				}); err != nil {
					return nil, fmt.Errorf("repairing queue position for %s: %w", res.ID, err)
				}
			}
		}
	}
	return issues, nil
}

func distinctReservedISBNs(ctx context.Context, db *store.Store) ([]string, error) {
	var isbns []string
	books, _, err := db.Books().List(ctx, store.ListOptions{Limit: 1 << 30})
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	for _, b := range books {
		reservations, err := db.Circulation().ActiveReservations(ctx, b.ISBN)
		if err != nil {
			return nil, err
		}
		if len(reservations) > 0 {
			isbns = append(isbns, b.ISBN)
		}
	}
	return isbns, nil
}
