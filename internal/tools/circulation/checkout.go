package circulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/librarymcp/librarymcp/internal/config"
	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/rules"
	"github.com/librarymcp/librarymcp/internal/store"
)

type checkoutBookParams struct {
	ISBN     string `json:"isbn"`
	PatronID string `json:"patron_id"`
	DueDate  string `json:"due_date,omitempty"`
}

// CheckoutBook implements checkout_book.
type CheckoutBook struct {
	db     *store.Store
	loan   config.LoanConfig
	runner *rules.Runner
}

func NewCheckoutBook(db *store.Store, loan config.LoanConfig) *CheckoutBook {
	return &CheckoutBook{db: db, loan: loan, runner: rules.NewRunner()}
}

func (t *CheckoutBook) Name() string { return "checkout_book" }

func (t *CheckoutBook) Description() string {
	return "Check out a book to a patron, decrementing its available copies. Fails if the patron is inactive, the book has no copies available, or the patron already holds an open checkout for it."
}

func (t *CheckoutBook) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "isbn": {"type": "string"},
    "patron_id": {"type": "string"},
    "due_date": {"type": "string", "description": "RFC3339 timestamp; defaults to checkout time plus loan.default_days"}
  },
  "required": ["isbn", "patron_id"]
}`)
}

func (t *CheckoutBook) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p checkoutBookParams
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

	checkoutDate := time.Now().UTC()
	dueDate := checkoutDate.AddDate(0, 0, t.loan.DefaultDays)
	if p.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, p.DueDate)
		if err != nil {
			return nil, domain.NewInvalidParamError(fmt.Errorf("due_date must be RFC3339: %w", err))
		}
		maxDue := checkoutDate.AddDate(0, 0, t.loan.MaxDays)
		if !parsed.After(checkoutDate) || parsed.After(maxDue) {
			return nil, domain.NewInvalidParamError(fmt.Errorf("due_date must be after checkout time and within loan.max_days (%d)", t.loan.MaxDays))
		}
		dueDate = parsed
	}

	var checkout domain.Checkout
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

		hasOpen, err := tx.Circulation().HasOpenCheckout(ctx, p.PatronID, isbn)
		if err != nil {
			return err
		}

		outcome := t.runner.Run(ctx, &rules.CirculationContext{
			PatronActive:    patron.MembershipStatus == domain.MembershipActive,
			HasOpenCheckout: hasOpen,
			AvailableCopies: book.AvailableCopies,
		}, rules.CheckoutGuards())
		if outcome.Blocked {
			f := outcome.FirstFailure()
			return domain.NewRuleError(f.Reason, fmt.Errorf("%s", f.Message))
		}

		checkout = domain.Checkout{
			ID:           newID(),
			ISBN:         isbn,
			PatronID:     p.PatronID,
			CheckoutDate: checkoutDate.Format(time.RFC3339),
			DueDate:      dueDate.Format(time.RFC3339),
			CreatedAt:    now(),
			UpdatedAt:    now(),
		}
		return tx.Circulation().OpenCheckout(ctx, checkout)
	})
	if err != nil {
		return nil, err
	}

	return mcp.JSONResult(checkout)
}
