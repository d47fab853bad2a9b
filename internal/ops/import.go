package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// maxImportLineBytes bounds one JSONL record.
const maxImportLineBytes = 4 << 20

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // new ID on collision
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line   int
	report *report.Report
}

// Import loads reports from a JSONL export file. Fields derived from the body are
// recomputed rather than trusted.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.SnagError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, cfg)

	if input.Mode == ImportModeError {
		// mode:error is all or nothing
		if len(parseErrors) > 0 {
			return &ImportOutput{Errors: parseErrors}, nil
		}
		return importAtomic(ctx, database, records)
	}
	return importEach(ctx, database, records, parseErrors, input.Mode)
}

// parseExportFile reads records from r, skipping the header line.
func parseExportFile(r io.Reader, cfg *config.Config) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var record report.ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if record.SnagExport {
			continue
		}
		if record.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}
		if cfg.BodyRejectBytes > 0 && len(record.Body) >= cfg.BodyRejectBytes {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    string(errors.ErrBodyTooLarge),
				Message: fmt.Sprintf("body is %d bytes (max %d)", len(record.Body), cfg.BodyRejectBytes),
			})
			continue
		}

		records = append(records, importRecord{line: lineNum, report: record.ToReport()})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, parseErrors
}

// importAtomic inserts every record in one transaction, rolling back on the first
// ID collision.
func importAtomic(ctx context.Context, database *sql.DB, records []importRecord) (*ImportOutput, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range records {
		exists, err := db.Exists(ctx, tx, rec.report.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return &ImportOutput{Errors: []ImportError{collisionError(rec)}}, nil
		}
		if err := db.Insert(ctx, tx, rec.report); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ImportOutput{Imported: len(records), Errors: []ImportError{}}, nil
}

// importEach imports records one at a time, replacing or re-identifying on ID
// collision. Parse errors are reported as skipped.
func importEach(ctx context.Context, database *sql.DB, records []importRecord, parseErrors []ImportError, mode ImportMode) (*ImportOutput, error) {
	output := &ImportOutput{
		Skipped: len(parseErrors),
		Errors:  append([]ImportError{}, parseErrors...),
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		if mode == ImportModeReplace {
			if err := db.Upsert(ctx, database, rec.report); err != nil {
				return nil, err
			}
			output.Imported++
			continue
		}

		exists, err := db.Exists(ctx, database, rec.report.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			id, err := generateULID()
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			rec.report.ID = id
		}
		if err := db.Insert(ctx, database, rec.report); err != nil {
			output.Errors = append(output.Errors, ImportError{
				Line:    rec.line,
				ID:      rec.report.ID,
				Code:    "INSERT_FAILED",
				Message: fmt.Sprintf("failed to insert: %v", err),
			})
			output.Skipped++
			continue
		}
		output.Imported++
	}
	return output, nil
}

func collisionError(rec importRecord) ImportError {
	return ImportError{
		Line:    rec.line,
		ID:      rec.report.ID,
		Code:    "ID_COLLISION",
		Message: fmt.Sprintf("report with id %q already exists", rec.report.ID),
	}
}
