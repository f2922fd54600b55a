package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/librarymcp/librarymcp/internal/domain"
)

type PatronRepo struct {
	q Querier
}

type patronRow struct {
	ID               string `db:"id"`
	Name             string `db:"name"`
	Email            string `db:"email"`
	MembershipStatus string `db:"membership_status"`
	CreatedAt        string `db:"created_at"`
	UpdatedAt        string `db:"updated_at"`
}

func (r *PatronRepo) Add(ctx context.Context, p domain.Patron) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO patrons (id, name, email, membership_status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, string(p.MembershipStatus), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting patron: %w", err)
	}
	return nil
}

func (r *PatronRepo) Get(ctx context.Context, id string) (domain.Patron, error) {
	var row patronRow
	if err := r.q.GetContext(ctx, &row, `SELECT id, name, email, membership_status, created_at, updated_at FROM patrons WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Patron{}, domain.ErrNotFound
		}
		return domain.Patron{}, fmt.Errorf("getting patron: %w", err)
	}

	fines, err := r.outstandingFines(ctx, id)
	if err != nil {
		return domain.Patron{}, err
	}

	return domain.Patron{
		ID: row.ID, Name: row.Name, Email: row.Email,
		MembershipStatus: domain.MembershipStatus(row.MembershipStatus),
		OutstandingFines: fines,
		CreatedAt:        row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *PatronRepo) outstandingFines(ctx context.Context, patronID string) (decimal.Decimal, error) {
	var amounts []string
	if err := r.q.SelectContext(ctx, &amounts, `SELECT amount FROM fines WHERE patron_id = ? AND paid = 0`, patronID); err != nil {
		return decimal.Zero, fmt.Errorf("summing fines: %w", err)
	}
	total := decimal.Zero
	for _, a := range amounts {
		d, err := decimal.NewFromString(a)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total, nil
}

func (r *PatronRepo) SetMembershipStatus(ctx context.Context, id string, status domain.MembershipStatus, updatedAt string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE patrons SET membership_status = ?, updated_at = ? WHERE id = ?`, string(status), updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating membership status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
