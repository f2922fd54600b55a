// Package upkeep implements catalog_maintenance, a thin progress
// reporting wrapper around internal/maintenance's integrity/index/stats
// sweep — the same sweep the background scheduler runs periodically,
// exposed here as an on-demand tool.
package upkeep

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/maintenance"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

type catalogMaintenanceParams struct {
	Scope string `json:"scope,omitempty"`
}

func validScope(s string) bool {
	switch s {
	case maintenance.ScopeIntegrity, maintenance.ScopeIndexes, maintenance.ScopeStats, maintenance.ScopeAll:
		return true
	default:
		return false
	}
}

// CatalogMaintenance implements catalog_maintenance.
type CatalogMaintenance struct {
	db *store.Store
}

func NewCatalogMaintenance(db *store.Store) *CatalogMaintenance {
	return &CatalogMaintenance{db: db}
}

func (t *CatalogMaintenance) Name() string { return "catalog_maintenance" }

func (t *CatalogMaintenance) Description() string {
	return "Run integrity, index, or stats checks over the catalog, repairing reservation queue gaps it finds and reporting (not repairing) available_copies drift."
}

func (t *CatalogMaintenance) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "scope": {"type": "string", "enum": ["integrity", "indexes", "stats", "all"], "default": "all"}
  }
}`)
}

func (t *CatalogMaintenance) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	return t.ExecuteWithProgress(ctx, params, nil)
}

func (t *CatalogMaintenance) ExecuteWithProgress(ctx context.Context, params json.RawMessage, reporter *mcp.ProgressReporter) (*mcp.ToolsCallResult, error) {
	var p catalogMaintenanceParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, domain.NewInvalidParamError(fmt.Errorf("invalid parameters: %w", err))
		}
	}
	scope := p.Scope
	if scope == "" {
		scope = maintenance.ScopeAll
	}
	if !validScope(scope) {
		return nil, domain.NewInvalidParamError(fmt.Errorf("scope must be one of integrity, indexes, stats, all"))
	}

	report, err := maintenance.Run(ctx, t.db, scope, func(done, total int, msg string) {
		if reporter != nil {
			reporter.Report(float64(done), float64(total), msg)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("running maintenance: %w", err)
	}
	if ctx.Err() != nil {
		return nil, &domain.ErrCancelled{DoneKey: "issues_fixed", Done: report.IssuesFixed, Remaining: report.IssuesFound - report.IssuesFixed}
	}

	return mcp.JSONResult(report)
}
