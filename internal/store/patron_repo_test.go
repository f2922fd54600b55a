package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarymcp/librarymcp/internal/domain"
)

func samplePatron() domain.Patron {
	return domain.Patron{
		ID: "p_anderson_01", Name: "Anderson", Email: "anderson@example.com",
		MembershipStatus: domain.MembershipActive,
		CreatedAt:        "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
}

func TestPatronRepo_AddAndGet(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	repo := db.Patrons()

	patron := samplePatron()
	require.NoError(t, repo.Add(ctx, patron))

	got, err := repo.Get(ctx, patron.ID)
	require.NoError(t, err)
	assert.Equal(t, patron.Name, got.Name)
	assert.True(t, got.OutstandingFines.Equal(decimal.Zero))
}

func TestPatronRepo_Get_NotFound(t *testing.T) {
	db := newTestStore(t)
	_, err := db.Patrons().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatronRepo_OutstandingFines_SumsUnpaid(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	patron := samplePatron()
	require.NoError(t, db.Patrons().Add(ctx, patron))

	require.NoError(t, db.Circulation().AddFine(ctx, domain.Fine{
		ID: "f1", PatronID: patron.ID, Amount: decimal.NewFromFloat(1.50),
		Reason: "overdue_return", Paid: false, CreatedAt: "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, db.Circulation().AddFine(ctx, domain.Fine{
		ID: "f2", PatronID: patron.ID, Amount: decimal.NewFromFloat(5.00),
		Reason: "overdue_return", Paid: true, CreatedAt: "2026-01-01T00:00:00Z",
	}))

	got, err := db.Patrons().Get(ctx, patron.ID)
	require.NoError(t, err)
	assert.True(t, got.OutstandingFines.Equal(decimal.NewFromFloat(1.50)))
}

func TestPatronRepo_SetMembershipStatus(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	patron := samplePatron()
	require.NoError(t, db.Patrons().Add(ctx, patron))

	require.NoError(t, db.Patrons().SetMembershipStatus(ctx, patron.ID, domain.MembershipSuspended, "2026-02-01T00:00:00Z"))

	got, err := db.Patrons().Get(ctx, patron.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipSuspended, got.MembershipStatus)
}

func TestPatronRepo_SetMembershipStatus_NotFound(t *testing.T) {
	db := newTestStore(t)
	err := db.Patrons().SetMembershipStatus(context.Background(), "missing", domain.MembershipSuspended, "2026-02-01T00:00:00Z")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
