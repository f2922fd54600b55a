package store

import "testing"

// newTestStore opens a fresh in-memory database for one test. SQLite's
// in-memory mode only persists for the lifetime of the single
// connection Open pins via SetMaxOpenConns(1), so each test gets an
// isolated, schema-applied store.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
