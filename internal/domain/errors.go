package domain

import "errors"

// Sentinel errors returned by the store and rules layers. Tool
// implementations wrap the relevant one in a *RuleError so the MCP
// server can surface a machine-readable reason on the wire (see
// internal/mcp.ToolReasoner), while repository callers can still use
// errors.Is against these directly.
var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateISBN           = errors.New("a book with this ISBN already exists")
	ErrDuplicateID             = errors.New("an entity with this id already exists")
	ErrInvalidISBN             = errors.New("invalid ISBN-13 checksum")
	ErrPatronInactive          = errors.New("patron membership is not active")
	ErrDuplicateActiveCheckout = errors.New("patron already has an open checkout for this book")
	ErrNoCopiesAvailable       = errors.New("no copies available")
	ErrDuplicateReservation    = errors.New("patron already has an active reservation for this book")
	ErrCheckoutAlreadyReturned = errors.New("checkout has already been returned")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrAlreadyInState          = errors.New("entity is already in the requested state")
)

// RuleError wraps a sentinel domain error with a stable, machine
// readable reason string, for use as the Data.reason field of a
// -32003 tool-execution-failed RPC error.
type RuleError struct {
	Reason string
	Err    error
}

func NewRuleError(reason string, err error) *RuleError {
	return &RuleError{Reason: reason, Err: err}
}

func (e *RuleError) Error() string      { return e.Err.Error() }
func (e *RuleError) Unwrap() error      { return e.Err }
func (e *RuleError) ToolReason() string { return e.Reason }

// InvalidParamError wraps a sentinel domain error that should surface
// as a -32602 invalid-params RPC error rather than a -32003 tool
// failure — the case spec.md §7 calls out explicitly: an unknown
// entity id referenced by a tool's own params, as opposed to a
// business-rule violation discovered while executing the tool.
type InvalidParamError struct {
	Err error
}

func NewInvalidParamError(err error) *InvalidParamError { return &InvalidParamError{Err: err} }

func (e *InvalidParamError) Error() string       { return e.Err.Error() }
func (e *InvalidParamError) Unwrap() error       { return e.Err }
func (e *InvalidParamError) InvalidParams() bool { return true }

// ErrCancelled is returned by long-running tools (bulk_import_books,
// catalog_maintenance) when they observe ctx.Done() mid-run. Done and
// Remaining describe how much work had landed before the cancellation
// was observed, surfaced on the wire as the -32800 error's data
// payload. DoneKey lets each caller choose the field name the result
// shape already uses (bulk_import_books: "imported"; catalog_maintenance:
// "issues_fixed").
type ErrCancelled struct {
	DoneKey   string
	Done      int
	Remaining int
}

func (e *ErrCancelled) Error() string { return "operation cancelled" }

func (e *ErrCancelled) CancelProgress() map[string]any {
	key := e.DoneKey
	if key == "" {
		key = "done"
	}
	return map[string]any{key: e.Done, "remaining": e.Remaining}
}
