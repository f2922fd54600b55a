package circulation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarymcp/librarymcp/internal/domain"
)

func TestReserveBook_Success(t *testing.T) {
	db := newTestStore(t)
	seedBook(t, db, "9780134190440", 0)
	seedPatron(t, db, "p1", domain.MembershipActive)

	tool := NewReserveBook(db)
	params, _ := json.Marshal(map[string]string{"isbn": "9780134190440", "patron_id": "p1"})

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)

	var got domain.Reservation
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 1, got.QueuePosition)
	assert.Equal(t, domain.ReservationActive, got.Status)
}

func TestReserveBook_CopiesAvailable_Blocked(t *testing.T) {
	db := newTestStore(t)
	seedBook(t, db, "9780134190440", 2)
	seedPatron(t, db, "p1", domain.MembershipActive)

	tool := NewReserveBook(db)
	params, _ := json.Marshal(map[string]string{"isbn": "9780134190440", "patron_id": "p1"})

	_, err := tool.Execute(context.Background(), params)
	var ruleErr *domain.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "copies_available", ruleErr.ToolReason())
}

func TestReserveBook_DuplicateReservation_Blocked(t *testing.T) {
	db := newTestStore(t)
	seedBook(t, db, "9780134190440", 0)
	seedPatron(t, db, "p1", domain.MembershipActive)

	tool := NewReserveBook(db)
	params, _ := json.Marshal(map[string]string{"isbn": "9780134190440", "patron_id": "p1"})

	_, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), params)
	var ruleErr *domain.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "duplicate_reservation", ruleErr.ToolReason())
}

func TestReserveBook_QueuePositionsAreDense(t *testing.T) {
	db := newTestStore(t)
	seedBook(t, db, "9780134190440", 0)
	seedPatron(t, db, "p1", domain.MembershipActive)
	seedPatron(t, db, "p2", domain.MembershipActive)

	tool := NewReserveBook(db)

	params1, _ := json.Marshal(map[string]string{"isbn": "9780134190440", "patron_id": "p1"})
	result1, err := tool.Execute(context.Background(), params1)
	require.NoError(t, err)
	var r1 domain.Reservation
	require.NoError(t, json.Unmarshal([]byte(result1.Content[0].Text), &r1))
	assert.Equal(t, 1, r1.QueuePosition)

	params2, _ := json.Marshal(map[string]string{"isbn": "9780134190440", "patron_id": "p2"})
	result2, err := tool.Execute(context.Background(), params2)
	require.NoError(t, err)
	var r2 domain.Reservation
	require.NoError(t, json.Unmarshal([]byte(result2.Content[0].Text), &r2))
	assert.Equal(t, 2, r2.QueuePosition)
}
