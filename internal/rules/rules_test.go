package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunner_CheckoutGuards(t *testing.T) {
	tests := []struct {
		name       string
		cctx       CirculationContext
		wantBlock  bool
		wantReason string
	}{
		{
			name:      "all pass",
			cctx:      CirculationContext{PatronActive: true, HasOpenCheckout: false, AvailableCopies: 1},
			wantBlock: false,
		},
		{
			name:       "inactive patron blocks first",
			cctx:       CirculationContext{PatronActive: false, HasOpenCheckout: true, AvailableCopies: 0},
			wantBlock:  true,
			wantReason: "patron_inactive",
		},
		{
			name:       "duplicate checkout blocks",
			cctx:       CirculationContext{PatronActive: true, HasOpenCheckout: true, AvailableCopies: 1},
			wantBlock:  true,
			wantReason: "duplicate_checkout",
		},
		{
			name:       "no copies blocks",
			cctx:       CirculationContext{PatronActive: true, HasOpenCheckout: false, AvailableCopies: 0},
			wantBlock:  true,
			wantReason: "no_copies",
		},
	}

	runner := NewRunner()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := runner.Run(context.Background(), &tc.cctx, CheckoutGuards())
			assert.Equal(t, tc.wantBlock, outcome.Blocked)
			if tc.wantBlock {
				f := outcome.FirstFailure()
				if assert.NotNil(t, f) {
					assert.Equal(t, tc.wantReason, f.Reason)
				}
			} else {
				assert.Nil(t, outcome.FirstFailure())
			}
		})
	}
}

func TestRunner_ReservationGuards(t *testing.T) {
	tests := []struct {
		name       string
		cctx       CirculationContext
		wantBlock  bool
		wantReason string
	}{
		{
			name:      "no copies, eligible patron",
			cctx:      CirculationContext{PatronActive: true, AvailableCopies: 0, HasActiveReservation: false},
			wantBlock: false,
		},
		{
			name:       "copies available blocks reservation",
			cctx:       CirculationContext{PatronActive: true, AvailableCopies: 2, HasActiveReservation: false},
			wantBlock:  true,
			wantReason: "copies_available",
		},
		{
			name:       "duplicate reservation blocks",
			cctx:       CirculationContext{PatronActive: true, AvailableCopies: 0, HasActiveReservation: true},
			wantBlock:  true,
			wantReason: "duplicate_reservation",
		},
	}

	runner := NewRunner()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := runner.Run(context.Background(), &tc.cctx, ReservationGuards())
			assert.Equal(t, tc.wantBlock, outcome.Blocked)
			if tc.wantBlock {
				f := outcome.FirstFailure()
				if assert.NotNil(t, f) {
					assert.Equal(t, tc.wantReason, f.Reason)
				}
			}
		})
	}
}
