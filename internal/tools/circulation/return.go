package circulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/librarymcp/librarymcp/internal/config"
	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

type returnBookParams struct {
	CheckoutID string `json:"checkout_id"`
	Condition  string `json:"condition,omitempty"`
}

type returnBookResult struct {
	Checkout          domain.Checkout `json:"checkout"`
	LateFeeCharged    *string         `json:"late_fee_charged,omitempty"`
	ReservationFilled *string         `json:"reservation_filled,omitempty"`
}

// ReturnBook implements return_book: closes a checkout, charges a late
// fee if it was overdue, and advances the next active reservation (if
// any) to fulfilled, notifying subscribers of the book's new
// available_copies.
type ReturnBook struct {
	db       *store.Store
	lateFee  config.LateFeeConfig
	notifier *mcp.Server
}

func NewReturnBook(db *store.Store, lateFee config.LateFeeConfig, notifier *mcp.Server) *ReturnBook {
	return &ReturnBook{db: db, lateFee: lateFee, notifier: notifier}
}

func (t *ReturnBook) Name() string { return "return_book" }

func (t *ReturnBook) Description() string {
	return "Return a checked-out book, charging a late fee if it was overdue and fulfilling the next patron's reservation if one is queued."
}

func (t *ReturnBook) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "checkout_id": {"type": "string"},
    "condition": {"type": "string", "description": "Optional free-text note on the returned book's condition"}
  },
  "required": ["checkout_id"]
}`)
}

func (t *ReturnBook) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p returnBookParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.NewInvalidParamError(fmt.Errorf("invalid parameters: %w", err))
	}
	if p.CheckoutID == "" {
		return nil, domain.NewInvalidParamError(fmt.Errorf("checkout_id is required"))
	}

	returnDate := time.Now().UTC()
	var (
		checkout    domain.Checkout
		feeCharged  *string
		fulfilledID *string
	)

	err := t.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		checkout, err = tx.Circulation().GetCheckout(ctx, p.CheckoutID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewInvalidParamError(fmt.Errorf("checkout %q not found", p.CheckoutID))
			}
			return err
		}
		if !checkout.IsOpen() {
			return domain.NewRuleError("already_returned", domain.ErrCheckoutAlreadyReturned)
		}

		lateFeeAssessed := decimal.Zero
		due, err := time.Parse(time.RFC3339, checkout.DueDate)
		if err == nil && returnDate.After(due) {
			daysLate := int(returnDate.Sub(due).Hours() / 24)
			if daysLate > 0 {
				lateFeeAssessed = t.lateFee.PerDayAmount().Mul(decimal.NewFromInt(int64(daysLate)))
			}
		}

		var condition *string
		if p.Condition != "" {
			condition = &p.Condition
		}

		if err := tx.Circulation().CloseCheckout(ctx, checkout.ID, returnDate.Format(time.RFC3339), condition, lateFeeAssessed, now()); err != nil {
			return err
		}
		checkout.ReturnDate = ptr(returnDate.Format(time.RFC3339))
		checkout.ConditionOnReturn = condition
		checkout.LateFeeAssessed = lateFeeAssessed
		checkout.UpdatedAt = now()

		if lateFeeAssessed.IsPositive() {
			fine := domain.Fine{
				ID:         newID(),
				PatronID:   checkout.PatronID,
				CheckoutID: checkout.ID,
				Amount:     lateFeeAssessed,
				Reason:     "overdue_return",
				Paid:       false,
				CreatedAt:  now(),
			}
			if err := tx.Circulation().AddFine(ctx, fine); err != nil {
				return err
			}
			s := lateFeeAssessed.String()
			feeCharged = &s
		}

		reservations, err := tx.Circulation().ActiveReservations(ctx, checkout.ISBN)
		if err != nil {
			return err
		}
		if len(reservations) > 0 {
			next := reservations[0]
			if err := tx.Circulation().CloseReservation(ctx, next.ID, domain.ReservationFulfilled, now()); err != nil {
				return err
			}
			fulfilledID = &next.ID
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if t.notifier != nil {
		book, bookErr := t.db.Books().Get(ctx, checkout.ISBN)
		diff := map[string]any{"isbn": checkout.ISBN}
		if bookErr == nil {
			diff["available_copies"] = book.AvailableCopies
		}
		t.notifier.NotifyResourceUpdated("library://books", "library://books/"+checkout.ISBN, diff)
	}

	return mcp.JSONResult(returnBookResult{
		Checkout:          checkout,
		LateFeeCharged:    feeCharged,
		ReservationFilled: fulfilledID,
	})
}

func ptr(s string) *string { return &s }
