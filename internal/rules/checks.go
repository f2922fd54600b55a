package rules

import "context"

// PatronActiveGuard fails unless the patron's membership is active (I3).
var PatronActiveGuard = NewGuardFunc("patron_active", func(ctx context.Context, cctx *CirculationContext) Result {
	if !cctx.PatronActive {
		return Fail("patron_active", "patron_inactive", "patron membership is not active")
	}
	return Pass("patron_active")
})

// NoDuplicateCheckoutGuard fails if the patron already holds an open
// checkout for this book (I5).
var NoDuplicateCheckoutGuard = NewGuardFunc("no_duplicate_checkout", func(ctx context.Context, cctx *CirculationContext) Result {
	if cctx.HasOpenCheckout {
		return Fail("no_duplicate_checkout", "duplicate_checkout", "patron already has an open checkout for this book")
	}
	return Pass("no_duplicate_checkout")
})

// CopiesAvailableGuard fails if there are no available copies left (I1).
var CopiesAvailableGuard = NewGuardFunc("copies_available", func(ctx context.Context, cctx *CirculationContext) Result {
	if cctx.AvailableCopies <= 0 {
		return Fail("copies_available", "no_copies", "no copies available")
	}
	return Pass("copies_available")
})

// NoDuplicateReservationGuard fails if the patron already holds an
// active reservation for this book.
var NoDuplicateReservationGuard = NewGuardFunc("no_duplicate_reservation", func(ctx context.Context, cctx *CirculationContext) Result {
	if cctx.HasActiveReservation {
		return Fail("no_duplicate_reservation", "duplicate_reservation", "patron already has an active reservation for this book")
	}
	return Pass("no_duplicate_reservation")
})

// CopiesNotAvailableGuard fails a reservation attempt when copies are
// still available — callers should check out instead of reserving.
var CopiesNotAvailableGuard = NewGuardFunc("copies_not_available", func(ctx context.Context, cctx *CirculationContext) Result {
	if cctx.AvailableCopies > 0 {
		return Fail("copies_not_available", "copies_available", "copies are available; check out instead of reserving")
	}
	return Pass("copies_not_available")
})

// CheckoutGuards is the rule set checkout_book runs, in order.
func CheckoutGuards() []Guard {
	return []Guard{PatronActiveGuard, NoDuplicateCheckoutGuard, CopiesAvailableGuard}
}

// ReservationGuards is the rule set reserve_book runs, in order.
func ReservationGuards() []Guard {
	return []Guard{PatronActiveGuard, NoDuplicateReservationGuard, CopiesNotAvailableGuard}
}
