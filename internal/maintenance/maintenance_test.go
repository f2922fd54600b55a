package maintenance

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestRun_AllScope_CleanCatalogFindsNothing(t *testing.T) {
	db := newTestStore(t)
	report, err := Run(context.Background(), db, ScopeAll, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.IssuesFound)
	assert.Equal(t, 0, report.IssuesFixed)
}

func TestRun_Integrity_ReportsNegativeAvailability(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	book := domain.Book{
		ISBN: "9780134190440", Title: "T", Genre: "technology", PublicationYear: 2020,
		TotalCopies: 1, AuthorIDs: []string{"a1"},
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
	require.NoError(t, db.Authors().Add(ctx, domain.Author{
		ID: "a1", Name: "A", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Books().Add(ctx, book))
	require.NoError(t, db.Patrons().Add(ctx, domain.Patron{
		ID: "p1", Name: "P", Email: "p@example.com", MembershipStatus: domain.MembershipActive,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Circulation().OpenCheckout(ctx, domain.Checkout{
		ID: "c1", ISBN: book.ISBN, PatronID: "p1",
		CheckoutDate: "2026-01-01T00:00:00Z", DueDate: "2026-01-15T00:00:00Z",
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	// lowering total_copies below the open-checkout count simulates the
	// only real way I1 drift occurs, since available_copies is always
	// derived rather than stored.
	book.TotalCopies = 0
	_, err := db.Books().Upsert(ctx, book)
	require.NoError(t, err)

	report, err := Run(ctx, db, ScopeIntegrity, nil)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "critical", report.Issues[0].Severity)
	assert.False(t, report.Issues[0].Repaired)
}

func TestRun_Indexes_RepairsQueueGap(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	book := domain.Book{
		ISBN: "9780134190440", Title: "T", Genre: "technology", PublicationYear: 2020,
		TotalCopies: 0, AuthorIDs: []string{"a1"},
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
	require.NoError(t, db.Authors().Add(ctx, domain.Author{
		ID: "a1", Name: "A", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Books().Add(ctx, book))
	require.NoError(t, db.Patrons().Add(ctx, domain.Patron{
		ID: "p1", Name: "P", Email: "p@example.com", MembershipStatus: domain.MembershipActive,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	// a reservation with a queue position that doesn't match its dense
	// rank (simulating a crash mid-CloseReservation renumber).
	require.NoError(t, db.Circulation().CreateReservation(ctx, domain.Reservation{
		ID: "r1", ISBN: book.ISBN, PatronID: "p1", QueuePosition: 3,
		Status: domain.ReservationActive,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))

	report, err := Run(ctx, db, ScopeIndexes, nil)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.True(t, report.Issues[0].Repaired)
	assert.Equal(t, 1, report.IssuesFixed)

	got, err := db.Circulation().GetReservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.QueuePosition)
}

func TestSweepJob_RunsCleanly(t *testing.T) {
	db := newTestStore(t)
	job := NewSweepJob(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "catalog_maintenance_sweep", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}
