package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// MaxSearchQueryChars bounds full-text queries.
const MaxSearchQueryChars = 500

// ErrUniqueConstraint is returned when an insert reuses an existing report id.
var ErrUniqueConstraint = &errors.SnagError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const reportColumns = `
	id, title, body, size_bytes, context_hash, source_url, labels_json,
	milestone, sections_json, truncated, screenshot_url,
	created_at, updated_at, deleted_at`

// summaryColumns select everything but the body.
const summaryColumns = `
	r.id, r.title, r.size_bytes, r.context_hash, r.source_url, r.labels_json,
	r.milestone, r.sections_json, r.truncated, r.screenshot_url IS NOT NULL,
	r.created_at, r.updated_at, r.deleted_at`

// Insert stores a new report.
func Insert(ctx context.Context, ex Execer, r *report.Report) error {
	labels, sections, err := encodeLists(r)
	if err != nil {
		return err
	}

	query := `INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = ex.ExecContext(ctx, query,
		r.ID, r.Title, r.Body, r.SizeBytes, r.ContextHash, toNullString(r.SourceURL), labels,
		toNullInt(r.Milestone), sections, r.Truncated, toNullString(r.ScreenshotURL),
		r.CreatedAt, r.UpdatedAt, toNullInt64(r.DeletedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// Upsert inserts a report or overwrites every column of the report with the same id.
func Upsert(ctx context.Context, ex Execer, r *report.Report) error {
	labels, sections, err := encodeLists(r)
	if err != nil {
		return err
	}

	query := `INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, body = excluded.body, size_bytes = excluded.size_bytes,
			context_hash = excluded.context_hash, source_url = excluded.source_url,
			labels_json = excluded.labels_json, milestone = excluded.milestone,
			sections_json = excluded.sections_json, truncated = excluded.truncated,
			screenshot_url = excluded.screenshot_url, created_at = excluded.created_at,
			updated_at = excluded.updated_at, deleted_at = excluded.deleted_at`
	_, err = ex.ExecContext(ctx, query,
		r.ID, r.Title, r.Body, r.SizeBytes, r.ContextHash, toNullString(r.SourceURL), labels,
		toNullInt(r.Milestone), sections, r.Truncated, toNullString(r.ScreenshotURL),
		r.CreatedAt, r.UpdatedAt, toNullInt64(r.DeletedAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func encodeLists(r *report.Report) (labels, sections sql.NullString, err error) {
	if labels, err = toNullJSON(r.Labels); err != nil {
		return labels, sections, errors.NewInternal(err)
	}
	if sections, err = toNullJSON(r.Sections); err != nil {
		return labels, sections, errors.NewInternal(err)
	}
	return labels, sections, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a report by its ULID.
// If includeDeleted is false, soft-deleted reports are excluded.
func GetByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	r, err := scanReport(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListFilter narrows ListReports.
type ListFilter struct {
	Label          *string
	IncludeDeleted bool
}

// ListReports returns summaries newest first, plus the total matching count.
func ListReports(ctx context.Context, db *sql.DB, filter ListFilter, limit, offset int) ([]report.Summary, int, error) {
	where, args := listWhere(filter)

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports r`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + summaryColumns + ` FROM reports r` + where +
		` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// CountReports returns the number of active reports.
func CountReports(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func listWhere(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	if !filter.IncludeDeleted {
		conds = append(conds, "r.deleted_at IS NULL")
	}
	if filter.Label != nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(r.labels_json) WHERE json_each.value = ?)")
		args = append(args, *filter.Label)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindByHash returns active reports with the given context hash, oldest first.
func FindByHash(ctx context.Context, db *sql.DB, hash string) ([]report.Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM reports r
		WHERE r.context_hash = ? AND r.deleted_at IS NULL
		ORDER BY r.created_at ASC, r.id ASC`
	rows, err := db.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// SearchResult is a summary with a highlighted match excerpt. Snippet marks
// matches with [[[B]]] and [[[/B]]].
type SearchResult struct {
	Summary report.Summary
	Snippet string
}

// SearchFullText runs an FTS5 query over titles and bodies, best matches first.
// Title matches weigh five times body matches.
func SearchFullText(ctx context.Context, db *sql.DB, ftsQuery string, limit, offset int) ([]SearchResult, int, error) {
	from := ` FROM reports_fts JOIN reports r ON r.rowid = reports_fts.rowid
		WHERE reports_fts MATCH ? AND r.deleted_at IS NULL`

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, ftsQuery).Scan(&total); err != nil {
		return nil, 0, searchError(err)
	}

	query := `SELECT ` + summaryColumns + `,
		snippet(reports_fts, 1, '[[[B]]]', '[[[/B]]]', '…', 24)` + from +
		` ORDER BY bm25(reports_fts, 5.0, 1.0), r.created_at DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, ftsQuery, limit, offset)
	if err != nil {
		return nil, 0, searchError(err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var res SearchResult
		if err := scanSummaryInto(rows, &res.Summary, &res.Snippet); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return results, total, nil
}

func searchError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "fts5") || strings.Contains(msg, "syntax error") ||
		strings.Contains(msg, "unterminated") || strings.Contains(msg, "no such column") {
		return errors.NewInvalidRequest("invalid search query")
	}
	return errors.NewInternal(err)
}

// UpdateBody rewrites the body-derived columns of an active report and bumps
// updated_at.
func UpdateBody(ctx context.Context, db *sql.DB, r *report.Report) error {
	sections, err := toNullJSON(r.Sections)
	if err != nil {
		return errors.NewInternal(err)
	}
	now := time.Now().Unix()

	query := `
		UPDATE reports
		SET body = ?, size_bytes = ?, sections_json = ?, truncated = ?,
			screenshot_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := db.ExecContext(ctx, query,
		r.Body, r.SizeBytes, sections, r.Truncated, toNullString(r.ScreenshotURL), now, r.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := requireRow(result, r.ID); err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

// SoftDelete marks a report as deleted by setting deleted_at.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE reports SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, id)
}

// PurgeDeleted permanently removes soft-deleted reports. With olderThanDays set,
// only reports deleted before that many days ago are removed.
func PurgeDeleted(ctx context.Context, db *sql.DB, olderThanDays *int) (int, error) {
	query := `DELETE FROM reports WHERE deleted_at IS NOT NULL`
	var args []any
	if olderThanDays != nil {
		cutoff := time.Now().Unix() - int64(*olderThanDays)*86400
		query += " AND deleted_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// StreamForExport returns rows of full reports matching filter, oldest first. The
// caller must close the rows and scan them with ScanReportFromRows.
func StreamForExport(ctx context.Context, db *sql.DB, filter ListFilter) (*sql.Rows, error) {
	where, args := listWhere(filter)
	query := `SELECT ` + reportColumns + ` FROM reports r` + where + ` ORDER BY r.created_at ASC, r.id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// Exists reports whether a report with id is stored, soft-deleted or not.
func Exists(ctx context.Context, q Queryer, id string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE id = ?`, id).Scan(&n); err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanReport scans a single row into a Report struct.
func scanReport(row scanner) (*report.Report, error) {
	var (
		r          report.Report
		sourceURL  sql.NullString
		labels     sql.NullString
		milestone  sql.NullInt64
		sections   sql.NullString
		screenshot sql.NullString
		deletedAt  sql.NullInt64
	)

	err := row.Scan(
		&r.ID, &r.Title, &r.Body, &r.SizeBytes, &r.ContextHash, &sourceURL, &labels,
		&milestone, &sections, &r.Truncated, &screenshot,
		&r.CreatedAt, &r.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	r.SourceURL = fromNullString(sourceURL)
	r.ScreenshotURL = fromNullString(screenshot)
	r.Milestone = fromNullInt(milestone)
	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.Int64
	}
	if err := fromNullJSON(labels, &r.Labels); err != nil {
		return nil, err
	}
	if err := fromNullJSON(sections, &r.Sections); err != nil {
		return nil, err
	}
	return &r, nil
}

// ScanReportFromRows scans the current row of StreamForExport.
func ScanReportFromRows(rows *sql.Rows) (*report.Report, error) {
	return scanReport(rows)
}

func scanSummaries(rows *sql.Rows) ([]report.Summary, error) {
	var out []report.Summary
	for rows.Next() {
		var s report.Summary
		if err := scanSummaryInto(rows, &s); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanSummaryInto(row scanner, s *report.Summary, extra ...any) error {
	var (
		sourceURL sql.NullString
		labels    sql.NullString
		milestone sql.NullInt64
		sections  sql.NullString
		deletedAt sql.NullInt64
	)
	dest := []any{
		&s.ID, &s.Title, &s.SizeBytes, &s.ContextHash, &sourceURL, &labels,
		&milestone, &sections, &s.Truncated, &s.HasScreenshot,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	s.SourceURL = fromNullString(sourceURL)
	s.Milestone = fromNullInt(milestone)
	if deletedAt.Valid {
		s.DeletedAt = &deletedAt.Int64
	}
	if err := fromNullJSON(labels, &s.Labels); err != nil {
		return err
	}
	return fromNullJSON(sections, &s.Sections)
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func toNullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// toNullJSON stores empty lists as NULL.
func toNullJSON(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func fromNullJSON(ns sql.NullString, dest *[]string) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), dest)
}
