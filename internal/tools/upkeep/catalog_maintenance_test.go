package upkeep

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/maintenance"
	"github.com/librarymcp/librarymcp/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCatalogMaintenance_DefaultScopeIsAll(t *testing.T) {
	db := newTestStore(t)
	tool := NewCatalogMaintenance(db)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	var report maintenance.Report
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &report))
	assert.Equal(t, maintenance.ScopeAll, report.Scope)
}

func TestCatalogMaintenance_InvalidScope(t *testing.T) {
	db := newTestStore(t)
	tool := NewCatalogMaintenance(db)

	params, _ := json.Marshal(map[string]string{"scope": "bogus"})
	_, err := tool.Execute(context.Background(), params)
	var invalid *domain.InvalidParamError
	require.ErrorAs(t, err, &invalid)
}

func TestCatalogMaintenance_IndexesScope_RepairsGap(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, db.Authors().Add(ctx, domain.Author{
		ID: "a1", Name: "A", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Books().Add(ctx, domain.Book{
		ISBN: "9780134190440", Title: "T", Genre: "technology", PublicationYear: 2020,
		TotalCopies: 0, AuthorIDs: []string{"a1"},
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Patrons().Add(ctx, domain.Patron{
		ID: "p1", Name: "P", Email: "p@example.com", MembershipStatus: domain.MembershipActive,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Circulation().CreateReservation(ctx, domain.Reservation{
		ID: "r1", ISBN: "9780134190440", PatronID: "p1", QueuePosition: 5,
		Status: domain.ReservationActive,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}))

	tool := NewCatalogMaintenance(db)
	params, _ := json.Marshal(map[string]string{"scope": "indexes"})
	result, err := tool.Execute(ctx, params)
	require.NoError(t, err)

	var report maintenance.Report
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &report))
	assert.Equal(t, 1, report.IssuesFound)
	assert.Equal(t, 1, report.IssuesFixed)
}
