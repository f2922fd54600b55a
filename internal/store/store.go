// Package store implements the relational persistence layer: a
// single-node SQLite database accessed through sqlx, with a
// transactional Session abstraction that the tool layer uses to get
// guaranteed acquire/release semantics around each mutation.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, letting
// repositories run unmodified whether they're given a connection pool
// or a transaction.
type Querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store owns the database connection pool.
type Store struct {
	db *sqlx.DB
}

// Open applies the embedded schema and returns a ready Store. Writes
// are serialized at the connection-pool level (SetMaxOpenConns(1))
// combined with SQLite's immediate-transaction locking, which is the
// simplest faithful realization of "the store must serialise
// conflicting writes" for a single-node engine with no external lock
// manager.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Tx is the scoped session handed to WithTx's callback. It exposes
// one repository per entity family, bound to this transaction.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) Books() *BookRepo              { return &BookRepo{q: t.tx} }
func (t *Tx) Authors() *AuthorRepo          { return &AuthorRepo{q: t.tx} }
func (t *Tx) Patrons() *PatronRepo          { return &PatronRepo{q: t.tx} }
func (t *Tx) Circulation() *CirculationRepo { return &CirculationRepo{q: t.tx} }

// Books, Authors, Patrons, Circulation return repositories bound
// directly to the connection pool, for reads that don't need a
// transaction (resource reads, list queries).
func (s *Store) Books() *BookRepo              { return &BookRepo{q: s.db} }
func (s *Store) Authors() *AuthorRepo          { return &AuthorRepo{q: s.db} }
func (s *Store) Patrons() *PatronRepo          { return &PatronRepo{q: s.db} }
func (s *Store) Circulation() *CirculationRepo { return &CirculationRepo{q: s.db} }
func (s *Store) Stats() *StatsRepo             { return &StatsRepo{q: s.db} }

// WithTx runs fn inside a transaction: it commits on a nil return and
// rolls back on any error, including a panic, which it re-raises
// after rollback. This is the Session abstraction with scoped
// acquisition and guaranteed release the component design calls for.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlxTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlxTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&Tx{tx: sqlxTx}); err != nil {
		if rbErr := sqlxTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err = sqlxTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
