// Package circulation implements the circulation tools: checkout_book,
// return_book, and reserve_book. All three run their rule checks and
// mutation inside a single transaction, so a failure midway never
// leaves a book decremented without a matching Checkout row or any
// other partial effect spec.md §7 forbids.
package circulation

import (
	"time"

	"github.com/google/uuid"
)

func newID() string { return uuid.NewString() }

func now() string { return time.Now().UTC().Format(time.RFC3339) }
