package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/snag/internal/capture"
	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/logging"
	"github.com/hpungsan/snag/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance. A nil logger discards.
func NewHandlers(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{db: db, cfg: cfg, logger: logger}
}

// Request types for each tool

// CaptureRequest carries a capture document either as an object or as text.
type CaptureRequest struct {
	Capture  any    `json:"capture,omitempty"`
	Document string `json:"document,omitempty"`
	Format   string `json:"format,omitempty"`
}

// BuildRequest represents the arguments for report_build.
type BuildRequest struct {
	CaptureRequest
	Mode string `json:"mode,omitempty"`
}

// FetchRequest represents the arguments for report_fetch.
type FetchRequest struct {
	ID             string `json:"id"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
	IncludeBody    *bool  `json:"include_body,omitempty"`
}

// ListRequest represents the arguments for report_list.
type ListRequest struct {
	Label          *string `json:"label,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	Offset         int     `json:"offset,omitempty"`
	IncludeDeleted bool    `json:"include_deleted,omitempty"`
}

// DuplicatesRequest represents the arguments for report_duplicates.
type DuplicatesRequest struct {
	Hash string `json:"hash,omitempty"`
	ID   string `json:"id,omitempty"`
}

// AttachRequest represents the arguments for report_attach_screenshot.
type AttachRequest struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// DeleteRequest represents the arguments for report_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// PurgeRequest represents the arguments for report_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// SearchRequest represents the arguments for report_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for report_export.
type ExportRequest struct {
	Path           string  `json:"path,omitempty"`
	Label          *string `json:"label,omitempty"`
	IncludeDeleted bool    `json:"include_deleted,omitempty"`
}

// ImportRequest represents the arguments for report_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// document resolves the capture argument, falling back to document text.
func (r CaptureRequest) document() (*capture.Document, error) {
	if r.Capture != nil {
		return capture.FromValue(r.Capture)
	}
	if strings.TrimSpace(r.Document) == "" {
		return nil, errors.NewInvalidRequest("capture or document is required")
	}
	format, err := capture.ParseFormat(r.Format)
	if err != nil {
		return nil, err
	}
	return capture.Decode([]byte(r.Document), format)
}

// Handler implementations

// HandleBuild handles the report_build tool call.
func (h *Handlers) HandleBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BuildRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	doc, err := input.document()
	if err != nil {
		return h.fail("report_build", err), nil
	}

	result, err := ops.Build(ctx, h.db, h.cfg, ops.BuildInput{
		Document: doc,
		Mode:     ops.DuplicateMode(strings.ToLower(strings.TrimSpace(input.Mode))),
	})
	if err != nil {
		return h.fail("report_build", err), nil
	}

	logging.WithReport(h.logger, result.ID).Info("report stored",
		"size_bytes", result.SizeBytes,
		"context_hash", result.ContextHash,
		"duplicates", len(result.DuplicateOf))
	return successResult(result)
}

// HandlePreview handles the report_preview tool call.
func (h *Handlers) HandlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaptureRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	doc, err := input.document()
	if err != nil {
		return h.fail("report_preview", err), nil
	}

	result, err := ops.Preview(ctx, h.db, h.cfg, ops.PreviewInput{Document: doc})
	if err != nil {
		return h.fail("report_preview", err), nil
	}

	return successResult(result)
}

// HandleFetch handles the report_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{
		ID:             input.ID,
		IncludeDeleted: input.IncludeDeleted,
		IncludeBody:    input.IncludeBody,
	})
	if err != nil {
		return h.fail("report_fetch", err), nil
	}

	return successResult(result)
}

// HandleList handles the report_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Label:          input.Label,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return h.fail("report_list", err), nil
	}

	return successResult(result)
}

// HandleDuplicates handles the report_duplicates tool call.
func (h *Handlers) HandleDuplicates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DuplicatesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Duplicates(ctx, h.db, ops.DuplicatesInput{Hash: input.Hash, ID: input.ID})
	if err != nil {
		return h.fail("report_duplicates", err), nil
	}

	return successResult(result)
}

// HandleAttachScreenshot handles the report_attach_screenshot tool call.
func (h *Handlers) HandleAttachScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AttachRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AttachScreenshot(ctx, h.db, h.cfg, ops.AttachInput{ID: input.ID, URL: input.URL})
	if err != nil {
		return h.fail("report_attach_screenshot", err), nil
	}

	logging.WithReport(h.logger, result.ID).Info("screenshot attached", "replaced", result.Replaced)
	return successResult(result)
}

// HandleDelete handles the report_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return h.fail("report_delete", err), nil
	}

	logging.WithReport(h.logger, result.ID).Info("report deleted")
	return successResult(result)
}

// HandlePurge handles the report_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{OlderThanDays: input.OlderThanDays})
	if err != nil {
		return h.fail("report_purge", err), nil
	}

	h.logger.Info("reports purged", "count", result.Purged)
	return successResult(result)
}

// HandleSearch handles the report_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.db, ops.SearchInput{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return h.fail("report_search", err), nil
	}

	return successResult(result)
}

// HandleExport handles the report_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:           input.Path,
		Label:          input.Label,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return h.fail("report_export", err), nil
	}

	h.logger.Info("reports exported", "path", result.Path, "count", result.Count)
	return successResult(result)
}

// HandleImport handles the report_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return h.fail("report_import", err), nil
	}

	h.logger.Info("reports imported", "imported", result.Imported, "skipped", result.Skipped)
	return successResult(result)
}

// Result helpers

// fail logs err and converts it to an error result. Internal causes are logged
// here because the result never carries them.
func (h *Handlers) fail(tool string, err error) *mcp.CallToolResult {
	var sErr *errors.SnagError
	if !stderrors.As(err, &sErr) || sErr.Code == errors.ErrInternal {
		h.logger.Error("tool failed", "tool", tool, "error", err)
	} else {
		h.logger.Debug("tool rejected request", "tool", tool, "code", sErr.Code, "message", sErr.Message)
	}
	return errorResult(err)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.SnagError
	if stderrors.As(err, &sErr) {
		message := sErr.Message
		// Keep wrapper context such as "line 3: " ahead of the message.
		if prefix := strings.TrimSuffix(err.Error(), sErr.Error()); prefix != err.Error() && prefix != "" {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": message,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
