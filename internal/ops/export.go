package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
)

// ExportSchemaVersion is written to the header line of every export file.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path           string  // optional, default: ~/.snag/exports/<label|reports>-<timestamp>.jsonl
	Label          *string // optional filter by label
	IncludeDeleted bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	SnagExport    bool   `json:"_snag_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes reports to a JSONL file: a header line, then one ExportRecord per
// line, oldest first. The file is written to a temporary name and renamed into
// place, so an existing file survives a failed export.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	label := cleanOptionalString(input.Label)

	exportPath := input.Path
	if exportPath == "" {
		var err error
		if exportPath, err = defaultExportPath(label, now); err != nil {
			return nil, err
		}
	}
	// Default paths are validated too since labels end up in the file name
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	count, err := writeExport(ctx, database, bufio.NewWriter(file), db.ListFilter{
		Label:          label,
		IncludeDeleted: input.IncludeDeleted,
	}, now.Unix())
	if err != nil {
		return nil, err
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted at the destination
	if isSymlink(exportPath) {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows, os.Rename fails when the destination exists. That is reported
	// rather than replaced with a non-atomic delete and rename.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// writeExport streams the header and matching reports to w and flushes it.
func writeExport(ctx context.Context, database *sql.DB, w *bufio.Writer, filter db.ListFilter, exportedAt int64) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := ExportHeader{SnagExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: exportedAt}
	if err := enc.Encode(header); err != nil {
		return 0, errors.NewInternal(err)
	}

	if ctx.Err() != nil {
		return 0, errors.NewCancelled("export")
	}
	rows, err := db.StreamForExport(ctx, database, filter)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return 0, errors.NewCancelled("export")
		}
		r, err := db.ScanReportFromRows(rows)
		if err != nil {
			return 0, errors.NewInternal(err)
		}
		if err := enc.Encode(r.ToExportRecord()); err != nil {
			return 0, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, errors.NewInternal(err)
	}
	if err := w.Flush(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// defaultExportPath returns ~/.snag/exports/<name>-<timestamp>.jsonl, where name is
// the sanitized label filter or "reports".
func defaultExportPath(label *string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := "reports"
	if label != nil {
		name = SanitizeForFilename(*label)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))), nil
}
