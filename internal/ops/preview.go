package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/snag/internal/capture"
	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/report"
)

// PreviewInput contains parameters for the Preview operation.
type PreviewInput struct {
	Document *capture.Document // required
}

// PreviewOutput is what Build would store, without storing it.
type PreviewOutput struct {
	Title       string                `json:"title"`
	Body        string                `json:"body"`
	SizeBytes   int                   `json:"size_bytes"`
	ContextHash string                `json:"context_hash"`
	Labels      []string              `json:"labels,omitempty"`
	Outline     []report.OutlineEntry `json:"outline"`
	Truncated   bool                  `json:"truncated"`
	Summary     string                `json:"summary"`
	Warnings    []string              `json:"warnings,omitempty"`
	DuplicateOf []string              `json:"duplicate_of,omitempty"`
}

// Preview assembles a capture document without persisting it. When database is
// non-nil, stored reports with the same context hash are listed.
func Preview(ctx context.Context, database *sql.DB, cfg *config.Config, input PreviewInput) (*PreviewOutput, error) {
	a, err := assemble(cfg, input.Document)
	if err != nil {
		return nil, err
	}
	r := a.report

	outline := report.Outline(r.Body)
	if outline == nil {
		outline = []report.OutlineEntry{}
	}

	output := &PreviewOutput{
		Title:       r.Title,
		Body:        r.Body,
		SizeBytes:   r.SizeBytes,
		ContextHash: r.ContextHash,
		Labels:      r.Labels,
		Outline:     outline,
		Truncated:   r.Truncated,
		Summary:     report.Preview(input.Document.Context),
		Warnings:    a.warnings,
	}

	if database != nil {
		output.DuplicateOf, err = existingIDs(ctx, database, r.ContextHash)
		if err != nil {
			return nil, err
		}
	}
	return output, nil
}
