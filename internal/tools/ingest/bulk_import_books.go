// Package ingest implements bulk_import_books: a batched, progress
// reporting, cancellable catalog loader. Each batch commits as one
// transaction and upserts by ISBN, so re-running the same input (or
// resuming after a cancelled run) never duplicates a book or author.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/librarymcp/librarymcp/internal/domain"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/store"
)

const (
	defaultBatchSize = 100
	minBatchSize     = 1
	maxBatchSize     = 500
)

// importAuthor is one author attached to an importRecord.
type importAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// importRecord is a single book to upsert, in whatever source format
// bulk_import_books was handed (inline list or a JSON file on disk).
type importRecord struct {
	ISBN            string         `json:"isbn"`
	Title           string         `json:"title"`
	Genre           string         `json:"genre"`
	PublicationYear int            `json:"publication_year"`
	TotalCopies     int            `json:"total_copies"`
	Authors         []importAuthor `json:"authors"`
}

type bulkImportBooksParams struct {
	Path      string         `json:"path,omitempty"`
	Records   []importRecord `json:"records,omitempty"`
	BatchSize int            `json:"batch_size,omitempty"`
}

// recordError names one skipped record and why.
type recordError struct {
	ISBN   string `json:"isbn,omitempty"`
	Reason string `json:"reason"`
}

type bulkImportBooksResult struct {
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []recordError `json:"errors,omitempty"`
}

// BulkImportBooks implements bulk_import_books.
type BulkImportBooks struct {
	db *store.Store
}

func NewBulkImportBooks(db *store.Store) *BulkImportBooks {
	return &BulkImportBooks{db: db}
}

func (t *BulkImportBooks) Name() string { return "bulk_import_books" }

func (t *BulkImportBooks) Description() string {
	return "Bulk-import books and their authors from an inline record list or a JSON file, upserting by ISBN in batches, with progress reporting and cooperative cancellation."
}

func (t *BulkImportBooks) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Path to a JSON file containing an array of book records"},
    "records": {"type": "array", "description": "Inline array of book records; mutually exclusive with path"},
    "batch_size": {"type": "integer", "minimum": 1, "maximum": 500}
  }
}`)
}

// Execute supports direct (non-progress) invocation, delegating to
// ExecuteWithProgress with a nil reporter.
func (t *BulkImportBooks) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	return t.ExecuteWithProgress(ctx, params, nil)
}

func (t *BulkImportBooks) ExecuteWithProgress(ctx context.Context, params json.RawMessage, reporter *mcp.ProgressReporter) (*mcp.ToolsCallResult, error) {
	var p bulkImportBooksParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, domain.NewInvalidParamError(fmt.Errorf("invalid parameters: %w", err))
		}
	}

	records, err := t.loadRecords(p)
	if err != nil {
		return nil, domain.NewInvalidParamError(err)
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize < minBatchSize || batchSize > maxBatchSize {
		return nil, domain.NewInvalidParamError(fmt.Errorf("batch_size must be between %d and %d", minBatchSize, maxBatchSize))
	}

	total := len(records)
	result := bulkImportBooksResult{}
	done := 0

	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := records[start:end]

		err := t.db.WithTx(ctx, func(tx *store.Tx) error {
			for _, rec := range batch {
				if err := t.upsertRecord(ctx, tx, rec, &result); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("importing batch: %w", err)
		}

		done = end
		if reporter != nil {
			reporter.Report(float64(done), float64(total), fmt.Sprintf("imported batch %d/%d", done, total))
		}

		if ctx.Err() != nil {
			return nil, &domain.ErrCancelled{DoneKey: "imported", Done: result.Imported + result.Updated, Remaining: total - done}
		}
	}

	if reporter != nil {
		reporter.Report(float64(total), float64(total), "import complete")
	}

	return mcp.JSONResult(result)
}

func (t *BulkImportBooks) upsertRecord(ctx context.Context, tx *store.Tx, rec importRecord, result *bulkImportBooksResult) error {
	if rec.ISBN == "" {
		result.Skipped++
		result.Errors = append(result.Errors, recordError{Reason: "missing isbn"})
		return nil
	}
	isbn, err := domain.ParseISBN(rec.ISBN)
	if err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, recordError{ISBN: rec.ISBN, Reason: err.Error()})
		return nil
	}

	authorIDs := make([]string, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		if a.ID == "" || a.Name == "" {
			continue
		}
		author := domain.Author{ID: a.ID, Name: a.Name, Bio: a.Bio, CreatedAt: now(), UpdatedAt: now()}
		if _, err := tx.Authors().EnsureExists(ctx, author); err != nil {
			return fmt.Errorf("ensuring author %s: %w", a.ID, err)
		}
		authorIDs = append(authorIDs, a.ID)
	}

	book := domain.Book{
		ISBN:            isbn,
		Title:           rec.Title,
		Genre:           rec.Genre,
		PublicationYear: rec.PublicationYear,
		TotalCopies:     rec.TotalCopies,
		AuthorIDs:       authorIDs,
		CreatedAt:       now(),
		UpdatedAt:       now(),
	}
	if err := domain.Validate(book); err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, recordError{ISBN: isbn, Reason: err.Error()})
		return nil
	}

	created, err := tx.Books().Upsert(ctx, book)
	if err != nil {
		return fmt.Errorf("upserting book %s: %w", isbn, err)
	}
	if created {
		result.Imported++
	} else {
		result.Updated++
	}
	return nil
}

func (t *BulkImportBooks) loadRecords(p bulkImportBooksParams) ([]importRecord, error) {
	if len(p.Records) > 0 && p.Path != "" {
		return nil, fmt.Errorf("path and records are mutually exclusive")
	}
	if len(p.Records) > 0 {
		return p.Records, nil
	}
	if p.Path == "" {
		return nil, fmt.Errorf("one of path or records is required")
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.Path, err)
	}
	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.Path, err)
	}
	return records, nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }
