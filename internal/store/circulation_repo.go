package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/validation"
)

// CirculationRepo covers Checkout, Reservation, and Fine rows — the
// three entities whose invariants (I2, I4, I5) span more than one
// table and so don't fit naturally as book/patron sub-resources.
type CirculationRepo struct {
	q Querier
}

// transitions enforces the Checkout and Reservation lifecycle
// allow-lists (open->returned; active->fulfilled/cancelled/expired)
// ahead of the mutations below. It holds no state of its own, so one
// package-level registry is shared by every CirculationRepo.
var transitions = validation.NewDefaultRegistry()

// classifyTransitionErr maps the validation package's generic
// sentinels back to the domain-level errors callers already match on
// with errors.Is.
func classifyTransitionErr(err error, alreadyInState error) error {
	switch {
	case errors.Is(err, validation.ErrAlreadyInState):
		return alreadyInState
	case errors.Is(err, validation.ErrInvalidTransition):
		return domain.ErrInvalidTransition
	default:
		return err
	}
}

// --- Checkouts ---

func (r *CirculationRepo) OpenCheckout(ctx context.Context, c domain.Checkout) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO checkouts (id, isbn, patron_id, checkout_date, due_date, return_date, condition_on_return, late_fee_assessed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULL, NULL, '0', ?, ?)`,
		c.ID, c.ISBN, c.PatronID, c.CheckoutDate, c.DueDate, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting checkout: %w", err)
	}
	return nil
}

func (r *CirculationRepo) GetCheckout(ctx context.Context, id string) (domain.Checkout, error) {
	var c domain.Checkout
	if err := r.q.GetContext(ctx, &c, `SELECT id, isbn, patron_id, checkout_date, due_date, return_date, condition_on_return, late_fee_assessed, created_at, updated_at FROM checkouts WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Checkout{}, domain.ErrNotFound
		}
		return domain.Checkout{}, fmt.Errorf("getting checkout: %w", err)
	}
	return c, nil
}

// CloseCheckout closes an open checkout, recording the returned book's
// condition (if given) and any late fee assessed against it.
func (r *CirculationRepo) CloseCheckout(ctx context.Context, id, returnDate string, condition *string, lateFeeAssessed decimal.Decimal, updatedAt string) error {
	c, err := r.GetCheckout(ctx, id)
	if err != nil {
		return err
	}
	from := "open"
	if !c.IsOpen() {
		from = "returned"
	}
	if err := transitions.Validate("checkout", from, "returned", id); err != nil {
		return classifyTransitionErr(err, domain.ErrCheckoutAlreadyReturned)
	}

	_, err = r.q.ExecContext(ctx,
		`UPDATE checkouts SET return_date = ?, condition_on_return = ?, late_fee_assessed = ?, updated_at = ? WHERE id = ?`,
		returnDate, condition, lateFeeAssessed.String(), updatedAt, id)
	if err != nil {
		return fmt.Errorf("closing checkout: %w", err)
	}
	return nil
}

func (r *CirculationRepo) HasOpenCheckout(ctx context.Context, patronID, isbn string) (bool, error) {
	var count int
	err := r.q.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM checkouts WHERE patron_id = ? AND isbn = ? AND return_date IS NULL`, patronID, isbn)
	if err != nil {
		return false, fmt.Errorf("checking open checkout: %w", err)
	}
	return count > 0, nil
}

// ActiveCheckoutsForPatron lists a patron's currently open checkouts.
func (r *CirculationRepo) ActiveCheckoutsForPatron(ctx context.Context, patronID string) ([]domain.Checkout, error) {
	var rows []domain.Checkout
	err := r.q.SelectContext(ctx, &rows,
		`SELECT id, isbn, patron_id, checkout_date, due_date, return_date, condition_on_return, late_fee_assessed, created_at, updated_at
		 FROM checkouts WHERE patron_id = ? AND return_date IS NULL ORDER BY due_date ASC`, patronID)
	if err != nil {
		return nil, fmt.Errorf("listing active checkouts for patron: %w", err)
	}
	return rows, nil
}

// AllCheckoutsForPatron lists a patron's full checkout history (open
// and returned), most recent first — the basis for recommendation
// ranking.
func (r *CirculationRepo) AllCheckoutsForPatron(ctx context.Context, patronID string) ([]domain.Checkout, error) {
	var rows []domain.Checkout
	err := r.q.SelectContext(ctx, &rows,
		`SELECT id, isbn, patron_id, checkout_date, due_date, return_date, condition_on_return, late_fee_assessed, created_at, updated_at
		 FROM checkouts WHERE patron_id = ? ORDER BY checkout_date DESC`, patronID)
	if err != nil {
		return nil, fmt.Errorf("listing checkout history for patron: %w", err)
	}
	return rows, nil
}

// OverdueCheckouts returns open checkouts whose due date has passed
// asOf (both RFC 3339 strings, which sort correctly as text).
func (r *CirculationRepo) OverdueCheckouts(ctx context.Context, asOf string) ([]domain.Checkout, error) {
	var rows []domain.Checkout
	err := r.q.SelectContext(ctx, &rows,
		`SELECT id, isbn, patron_id, checkout_date, due_date, return_date, condition_on_return, late_fee_assessed, created_at, updated_at
		 FROM checkouts WHERE return_date IS NULL AND due_date < ?`, asOf)
	if err != nil {
		return nil, fmt.Errorf("listing overdue checkouts: %w", err)
	}
	return rows, nil
}

// --- Reservations ---

// NextQueuePosition returns the position a new active reservation for
// isbn should take: the count of active reservations plus one, which
// is one past the current maximum while the queue keeps I2's dense
// 1..N ordering.
func (r *CirculationRepo) NextQueuePosition(ctx context.Context, isbn string) (int, error) {
	var count int
	if err := r.q.GetContext(ctx, &count, `SELECT COUNT(*) FROM reservations WHERE isbn = ? AND status = 'active'`, isbn); err != nil {
		return 0, fmt.Errorf("counting active reservations: %w", err)
	}
	return count + 1, nil
}

func (r *CirculationRepo) CreateReservation(ctx context.Context, res domain.Reservation) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO reservations (id, isbn, patron_id, queue_position, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.ISBN, res.PatronID, res.QueuePosition, string(res.Status), res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

func (r *CirculationRepo) HasActiveReservation(ctx context.Context, patronID, isbn string) (bool, error) {
	var count int
	err := r.q.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM reservations WHERE patron_id = ? AND isbn = ? AND status = 'active'`, patronID, isbn)
	if err != nil {
		return false, fmt.Errorf("checking active reservation: %w", err)
	}
	return count > 0, nil
}

// ActiveReservations lists active reservations for isbn in queue
// order.
func (r *CirculationRepo) ActiveReservations(ctx context.Context, isbn string) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	err := r.q.SelectContext(ctx, &rows,
		`SELECT id, isbn, patron_id, queue_position, status, created_at, updated_at
		 FROM reservations WHERE isbn = ? AND status = 'active' ORDER BY queue_position ASC`, isbn)
	if err != nil {
		return nil, fmt.Errorf("listing active reservations: %w", err)
	}
	return rows, nil
}

func (r *CirculationRepo) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	var res domain.Reservation
	if err := r.q.GetContext(ctx, &res, `SELECT id, isbn, patron_id, queue_position, status, created_at, updated_at FROM reservations WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, fmt.Errorf("getting reservation: %w", err)
	}
	return res, nil
}

// CloseReservation transitions a reservation out of active status
// (fulfilled, cancelled, or expired) and closes the dense-queue gap
// this leaves behind by decrementing every later active reservation's
// position by one, preserving I2.
func (r *CirculationRepo) CloseReservation(ctx context.Context, id string, newStatus domain.ReservationStatus, updatedAt string) error {
	res, err := r.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if err := transitions.Validate("reservation", string(res.Status), string(newStatus), id); err != nil {
		return classifyTransitionErr(err, domain.ErrAlreadyInState)
	}

	if _, err := r.q.ExecContext(ctx, `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`, string(newStatus), updatedAt, id); err != nil {
		return fmt.Errorf("closing reservation: %w", err)
	}

	if _, err := r.q.ExecContext(ctx,
		`UPDATE reservations SET queue_position = queue_position - 1, updated_at = ?
		 WHERE isbn = ? AND status = 'active' AND queue_position > ?`,
		updatedAt, res.ISBN, res.QueuePosition); err != nil {
		return fmt.Errorf("renumbering reservation queue: %w", err)
	}

	return nil
}

// RenumberReservation forces a single reservation's queue_position to
// an explicit value, used by the maintenance sweep to repair a gap
// left by an interrupted CloseReservation.
func (r *CirculationRepo) RenumberReservation(ctx context.Context, id string, position int, updatedAt string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE reservations SET queue_position = ?, updated_at = ? WHERE id = ?`, position, updatedAt, id)
	if err != nil {
		return fmt.Errorf("renumbering reservation: %w", err)
	}
	return nil
}

// --- Fines ---

func (r *CirculationRepo) AddFine(ctx context.Context, f domain.Fine) error {
	var checkoutID any
	if f.CheckoutID != "" {
		checkoutID = f.CheckoutID
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO fines (id, patron_id, checkout_id, amount, reason, paid, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.PatronID, checkoutID, f.Amount.String(), f.Reason, f.Paid, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting fine: %w", err)
	}
	return nil
}
