package catalog

import (
	"context"
	"net/url"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

// patronDetail is the library://patrons/{patron_id} response shape:
// the patron record plus their currently open checkouts.
type patronDetail struct {
	domain.Patron
	ActiveCheckouts []domain.Checkout `json:"active_checkouts"`
}

// PatronDetailResource implements library://patrons/{patron_id}.
type PatronDetailResource struct {
	db *store.Store
}

func NewPatronDetailResource(db *store.Store) *PatronDetailResource {
	return &PatronDetailResource{db: db}
}

func (r *PatronDetailResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "library://patrons/{patron_id}",
		Name:        "Patron detail",
		Description: "A single patron, including currently open checkouts and outstanding fines.",
		MimeType:    "application/json",
	}
}

func (r *PatronDetailResource) Read(ctx context.Context, uriParams map[string]string, query url.Values) (*mcp.ResourcesReadResult, error) {
	patronID := uriParams["patron_id"]

	patron, err := r.db.Patrons().Get(ctx, patronID)
	if err != nil {
		return nil, err
	}

	checkouts, err := r.db.Circulation().ActiveCheckoutsForPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}
	if checkouts == nil {
		checkouts = []domain.Checkout{}
	}

	return jsonContent("library://patrons/"+patronID, patronDetail{Patron: patron, ActiveCheckouts: checkouts})
}
