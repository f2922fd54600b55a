package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/store"
)

// cancelAfterNContext reports itself cancelled via Err() only once
// its Err method has been polled more than n times, simulating a
// cancellation that lands after the first batch's transaction has
// already committed.
type cancelAfterNContext struct {
	context.Context
	n     int
	calls int
}

func (c *cancelAfterNContext) Err() error {
	c.calls++
	if c.calls > c.n {
		return context.Canceled
	}
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func validRecord(isbn string) importRecord {
	return importRecord{
		ISBN: isbn, Title: "Test Book", Genre: "technology", PublicationYear: 2020,
		TotalCopies: 2, Authors: []importAuthor{{ID: "a1", Name: "Author One"}},
	}
}

func TestBulkImportBooks_ImportsAndUpdates(t *testing.T) {
	db := newTestStore(t)
	tool := NewBulkImportBooks(db)

	params, _ := json.Marshal(bulkImportBooksParams{Records: []importRecord{validRecord("9780134190440")}})
	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)

	var got bulkImportBooksResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 1, got.Imported)
	assert.Equal(t, 0, got.Updated)

	// re-importing the same ISBN updates rather than duplicates (idempotent).
	result, err = tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 0, got.Imported)
	assert.Equal(t, 1, got.Updated)

	_, total, err := db.Books().List(context.Background(), store.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestBulkImportBooks_SkipsInvalidRecords(t *testing.T) {
	db := newTestStore(t)
	tool := NewBulkImportBooks(db)

	bad := validRecord("123") // too short to be a valid ISBN-13
	params, _ := json.Marshal(bulkImportBooksParams{Records: []importRecord{bad, validRecord("9780134190440")}})

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)

	var got bulkImportBooksResult
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &got))
	assert.Equal(t, 1, got.Imported)
	assert.Equal(t, 1, got.Skipped)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "123", got.Errors[0].ISBN)
}

func TestBulkImportBooks_RejectsPathAndRecordsTogether(t *testing.T) {
	db := newTestStore(t)
	tool := NewBulkImportBooks(db)

	params, _ := json.Marshal(bulkImportBooksParams{Path: "/tmp/x.json", Records: []importRecord{validRecord("9780134190440")}})
	_, err := tool.Execute(context.Background(), params)
	var invalid *domain.InvalidParamError
	require.ErrorAs(t, err, &invalid)
}

func TestBulkImportBooks_BatchSizeOutOfRange(t *testing.T) {
	db := newTestStore(t)
	tool := NewBulkImportBooks(db)

	params, _ := json.Marshal(bulkImportBooksParams{Records: []importRecord{validRecord("9780134190440")}, BatchSize: 501})
	_, err := tool.Execute(context.Background(), params)
	var invalid *domain.InvalidParamError
	require.ErrorAs(t, err, &invalid)
}

func TestBulkImportBooks_CancellationMidRun(t *testing.T) {
	db := newTestStore(t)
	tool := NewBulkImportBooks(db)

	records := []importRecord{validRecord("9780134190440"), validRecord("9780132350884")}
	params, _ := json.Marshal(bulkImportBooksParams{Records: records, BatchSize: 1})

	// reports cancelled starting from the tool's first post-commit
	// ctx.Err() poll; the embedded Done() channel is never closed, so
	// the in-flight transaction itself is unaffected.
	ctx := &cancelAfterNContext{Context: context.Background(), n: 0}

	_, err := tool.ExecuteWithProgress(ctx, params, nil)
	var cancelled *domain.ErrCancelled
	require.ErrorAs(t, err, &cancelled)
	assert.Equal(t, 1, cancelled.Done)
	assert.Equal(t, 1, cancelled.Remaining)
}
