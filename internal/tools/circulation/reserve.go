package circulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/rules"
	"github.com/librarymcp/librarymcp/internal/store"
)

type reserveBookParams struct {
	ISBN     string `json:"isbn"`
	PatronID string `json:"patron_id"`
}

// ReserveBook implements reserve_book: places a patron at the back of
// an ISBN's hold queue. It refuses to run when copies are currently
// available — callers should check out instead — and refuses a
// second concurrent reservation by the same patron for the same book.
type ReserveBook struct {
	db     *store.Store
	runner *rules.Runner
}

func NewReserveBook(db *store.Store) *ReserveBook {
	return &ReserveBook{db: db, runner: rules.NewRunner()}
}

func (t *ReserveBook) Name() string { return "reserve_book" }

func (t *ReserveBook) Description() string {
	return "Reserve a book that currently has no available copies, placing the patron in the hold queue."
}

func (t *ReserveBook) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "isbn": {"type": "string"},
    "patron_id": {"type": "string"}
  },
  "required": ["isbn", "patron_id"]
}`)
}

func (t *ReserveBook) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p reserveBookParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.NewInvalidParamError(fmt.Errorf("invalid parameters: %w", err))
	}
	if p.ISBN == "" || p.PatronID == "" {
		return nil, domain.NewInvalidParamError(fmt.Errorf("isbn and patron_id are required"))
	}

	isbn, err := domain.ParseISBN(p.ISBN)
	if err != nil {
		return nil, domain.NewInvalidParamError(err)
	}

	var reservation domain.Reservation
	err = t.db.WithTx(ctx, func(tx *store.Tx) error {
		patron, err := tx.Patrons().Get(ctx, p.PatronID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewInvalidParamError(fmt.Errorf("patron %q not found", p.PatronID))
			}
			return err
		}

		book, err := tx.Books().Get(ctx, isbn)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewInvalidParamError(fmt.Errorf("book %q not found", isbn))
			}
			return err
		}

		hasActive, err := tx.Circulation().HasActiveReservation(ctx, p.PatronID, isbn)
		if err != nil {
			return err
		}

		outcome := t.runner.Run(ctx, &rules.CirculationContext{
			PatronActive:         patron.MembershipStatus == domain.MembershipActive,
			AvailableCopies:      book.AvailableCopies,
			HasActiveReservation: hasActive,
		}, rules.ReservationGuards())
		if outcome.Blocked {
			f := outcome.FirstFailure()
			return domain.NewRuleError(f.Reason, fmt.Errorf("%s", f.Message))
		}

		position, err := tx.Circulation().NextQueuePosition(ctx, isbn)
		if err != nil {
			return err
		}

		reservation = domain.Reservation{
			ID:            newID(),
			ISBN:          isbn,
			PatronID:      p.PatronID,
			QueuePosition: position,
			Status:        domain.ReservationActive,
			CreatedAt:     now(),
			UpdatedAt:     now(),
		}
		return tx.Circulation().CreateReservation(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}

	return mcp.JSONResult(reservation)
}
