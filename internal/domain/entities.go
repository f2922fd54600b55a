package domain

import "github.com/shopspring/decimal"

// MembershipStatus is the enum of valid Patron.MembershipStatus values.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipExpired   MembershipStatus = "expired"
)

func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipActive, MembershipSuspended, MembershipExpired:
		return true
	default:
		return false
	}
}

// ReservationStatus is the enum of valid Reservation.Status values.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// Book is a catalog entry. ISBN is the primary key (validated
// ISBN-13). AvailableCopies is a derived quantity (I1): TotalCopies
// minus the number of currently-open Checkouts against this ISBN.
type Book struct {
	ISBN            string   `db:"isbn" json:"isbn" validate:"required,len=13,numeric"`
	Title           string   `db:"title" json:"title" validate:"required"`
	Genre           string   `db:"genre" json:"genre" validate:"required"`
	PublicationYear int      `db:"publication_year" json:"publication_year" validate:"gt=0"`
	TotalCopies     int      `db:"total_copies" json:"total_copies" validate:"gte=0"`
	AvailableCopies int      `db:"available_copies" json:"available_copies" validate:"gte=0"`
	AuthorIDs       []string `db:"-" json:"author_ids" validate:"required,min=1,dive,required"`
	CreatedAt       string   `db:"created_at" json:"created_at"`
	UpdatedAt       string   `db:"updated_at" json:"updated_at"`
}

// Author is a catalog contributor. A Book may list more than one.
type Author struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Bio       string `db:"bio" json:"bio,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// Patron is a library member. OutstandingFines is derived from unpaid
// Fine rows (I3 gates circulation operations on MembershipStatus).
type Patron struct {
	ID               string           `db:"id" json:"id" validate:"required"`
	Name             string           `db:"name" json:"name" validate:"required"`
	Email            string           `db:"email" json:"email" validate:"required,email"`
	MembershipStatus MembershipStatus `db:"membership_status" json:"membership_status" validate:"required,oneof=active suspended expired"`
	OutstandingFines decimal.Decimal  `db:"-" json:"outstanding_fines"`
	CreatedAt        string           `db:"created_at" json:"created_at"`
	UpdatedAt        string           `db:"updated_at" json:"updated_at"`
}

// Checkout is an open or closed loan of a Book to a Patron. It is
// open while ReturnDate is nil (I5: a patron may not hold two open
// Checkouts for the same ISBN at once).
type Checkout struct {
	ID                string          `db:"id" json:"id"`
	ISBN              string          `db:"isbn" json:"isbn"`
	PatronID          string          `db:"patron_id" json:"patron_id"`
	CheckoutDate      string          `db:"checkout_date" json:"checkout_date"`
	DueDate           string          `db:"due_date" json:"due_date"`
	ReturnDate        *string         `db:"return_date" json:"return_date,omitempty"`
	ConditionOnReturn *string         `db:"condition_on_return" json:"condition_on_return,omitempty"`
	LateFeeAssessed   decimal.Decimal `db:"late_fee_assessed" json:"late_fee_assessed"`
	CreatedAt         string          `db:"created_at" json:"created_at"`
	UpdatedAt         string          `db:"updated_at" json:"updated_at"`
}

func (c Checkout) IsOpen() bool { return c.ReturnDate == nil }

// Reservation holds a Patron's place in the hold queue for an ISBN
// that has no available copies. QueuePosition is dense per ISBN among
// active reservations (I2): 1..N with no gaps.
type Reservation struct {
	ID            string            `db:"id" json:"id"`
	ISBN          string            `db:"isbn" json:"isbn"`
	PatronID      string            `db:"patron_id" json:"patron_id"`
	QueuePosition int               `db:"queue_position" json:"queue_position"`
	Status        ReservationStatus `db:"status" json:"status"`
	CreatedAt     string            `db:"created_at" json:"created_at"`
	UpdatedAt     string            `db:"updated_at" json:"updated_at"`
}

// Fine is a single monetary charge against a Patron (a late-return
// fee, a lost-book charge, or a manual adjustment). Patron.OutstandingFines
// is the sum of unpaid Fine rows.
type Fine struct {
	ID        string          `db:"id" json:"id"`
	PatronID  string          `db:"patron_id" json:"patron_id"`
	CheckoutID string         `db:"checkout_id" json:"checkout_id,omitempty"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reason    string          `db:"reason" json:"reason"`
	Paid      bool            `db:"paid" json:"paid"`
	CreatedAt string          `db:"created_at" json:"created_at"`
}
