// Package rules implements the circulation business-rule checks tools
// run before mutating the store: patron eligibility, copy
// availability, and duplicate-checkout/reservation guards. It
// generalizes the composable Guard/Runner idiom to a binary
// pass/fail outcome carrying a single machine-readable reason, since
// every failure here maps onto one RPC error code (-32003) rather
// than a graded advisory system.
package rules

import "context"

// Result is the outcome of a single rule check.
type Result struct {
	Name    string
	Passed  bool
	Reason  string // machine-readable, stable across releases
	Message string // human-readable explanation
}

// Outcome aggregates every rule run for one operation.
type Outcome struct {
	Blocked bool
	Results []Result
}

// FirstFailure returns the first failing result, or nil if every rule
// passed.
func (o *Outcome) FirstFailure() *Result {
	for i := range o.Results {
		if !o.Results[i].Passed {
			return &o.Results[i]
		}
	}
	return nil
}

// Guard is a single composable check.
type Guard interface {
	Name() string
	Check(ctx context.Context, cctx *CirculationContext) Result
}

// CirculationContext carries the precomputed facts guards need, so
// each guard doesn't have to independently query the store.
type CirculationContext struct {
	PatronActive         bool
	HasOpenCheckout      bool
	AvailableCopies      int
	HasActiveReservation bool
}

// GuardFunc adapts a plain function to the Guard interface.
type GuardFunc struct {
	name  string
	check func(ctx context.Context, cctx *CirculationContext) Result
}

func NewGuardFunc(name string, fn func(ctx context.Context, cctx *CirculationContext) Result) *GuardFunc {
	return &GuardFunc{name: name, check: fn}
}

func (g *GuardFunc) Name() string { return g.name }
func (g *GuardFunc) Check(ctx context.Context, cctx *CirculationContext) Result {
	return g.check(ctx, cctx)
}

// Pass returns a passing result.
func Pass(name string) Result { return Result{Name: name, Passed: true} }

// Fail returns a failing result with a machine-readable reason.
func Fail(name, reason, message string) Result {
	return Result{Name: name, Passed: false, Reason: reason, Message: message}
}

// Runner executes a set of guards in order and stops at the first
// failure — circulation rules are independent but cheap to check, and
// the caller only ever needs to report the first violation.
type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) Run(ctx context.Context, cctx *CirculationContext, guards []Guard) *Outcome {
	outcome := &Outcome{}
	for _, g := range guards {
		result := g.Check(ctx, cctx)
		outcome.Results = append(outcome.Results, result)
		if !result.Passed {
			outcome.Blocked = true
			break
		}
	}
	return outcome
}
