package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SameStateIsAlwaysAlreadyInState(t *testing.T) {
	r := NewDefaultRegistry()
	err := r.Validate("reservation", "active", "active", "r1")
	assert.ErrorIs(t, err, ErrAlreadyInState)
}

func TestRegistry_UnregisteredEntityTypeHasNoRestrictions(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Validate("widget", "anything", "else", "w1"))
}

func TestReservationValidator_AllowsDocumentedTransitions(t *testing.T) {
	r := NewDefaultRegistry()
	for _, to := range []string{"fulfilled", "cancelled", "expired"} {
		assert.NoError(t, r.Validate("reservation", "active", to, "r1"), "active -> %s", to)
	}
}

func TestReservationValidator_RejectsTransitionOutOfTerminalState(t *testing.T) {
	r := NewDefaultRegistry()
	err := r.Validate("reservation", "fulfilled", "active", "r1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckoutValidator_AllowsOpenToReturned(t *testing.T) {
	r := NewDefaultRegistry()
	assert.NoError(t, r.Validate("checkout", "open", "returned", "c1"))
}

func TestCheckoutValidator_RejectsReturnedToOpen(t *testing.T) {
	r := NewDefaultRegistry()
	err := r.Validate("checkout", "returned", "open", "c1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
