// Package catalog implements the resource catalog from the component
// design: URI-templated, paginated resources backed by the store,
// plus the library://stats aggregate resource.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
)

// Pager turns a resource URI's query string into a bounded
// (offset, limit) pair.
type Pager struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Parse reads ?page and ?page_size from query, defaulting both to the
// configured values. A malformed page/page_size, a non-positive value,
// or a page_size over MaxPageSize is rejected rather than silently
// defaulted or clamped.
func (p Pager) Parse(query url.Values) (page, pageSize, offset int, err error) {
	page = 1
	if v := query.Get("page"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return 0, 0, 0, domain.NewInvalidParamError(fmt.Errorf("page must be a positive integer, got %q", v))
		}
		page = n
	}
	pageSize = p.DefaultPageSize
	if v := query.Get("page_size"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return 0, 0, 0, domain.NewInvalidParamError(fmt.Errorf("page_size must be a positive integer, got %q", v))
		}
		pageSize = n
	}
	if pageSize > p.MaxPageSize {
		return 0, 0, 0, domain.NewInvalidParamError(fmt.Errorf("page_size %d exceeds maximum of %d", pageSize, p.MaxPageSize))
	}
	offset = (page - 1) * pageSize
	return page, pageSize, offset, nil
}

// jsonContent marshals v and wraps it in the single-content-item
// shape every resource in this package returns.
func jsonContent(uri string, v any) (*mcp.ResourcesReadResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource content: %w", err)
	}
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: uri, MimeType: "application/json", Text: string(b)},
		},
	}, nil
}

type page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
}
