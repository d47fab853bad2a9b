package ops

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hpungsan/snag/internal/capture"
	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// DuplicateMode controls what Build does when a capture's context hash matches a
// stored report.
type DuplicateMode string

const (
	DuplicateAllow DuplicateMode = "allow" // store anyway and report the matches
	DuplicateError DuplicateMode = "error" // fail with DUPLICATE_CAPTURE
)

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	Document *capture.Document // required
	Mode     DuplicateMode     // default: cfg.DuplicateMode, then allow
}

// BuildOutput contains the result of the Build operation.
type BuildOutput struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	SizeBytes   int      `json:"size_bytes"`
	ContextHash string   `json:"context_hash"`
	Labels      []string `json:"labels,omitempty"`
	Sections    []string `json:"sections"`
	Truncated   bool     `json:"truncated"`
	Warnings    []string `json:"warnings,omitempty"`
	DuplicateOf []string `json:"duplicate_of,omitempty"`
}

// assembled is a report built from a document but not yet stored.
type assembled struct {
	report   *report.Report
	warnings []string
}

// Build assembles a capture document into an issue and stores it as a report.
func Build(ctx context.Context, database *sql.DB, cfg *config.Config, input BuildInput) (*BuildOutput, error) {
	mode, err := resolveDuplicateMode(input.Mode, cfg)
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, input.Document)
	if err != nil {
		return nil, err
	}
	r := a.report

	duplicateOf, err := existingIDs(ctx, database, r.ContextHash)
	if err != nil {
		return nil, err
	}
	if len(duplicateOf) > 0 && mode == DuplicateError {
		return nil, errors.NewDuplicateCapture(r.ContextHash, duplicateOf)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	r.ID = id

	if err := db.Insert(ctx, database, r); err != nil {
		return nil, err
	}

	return &BuildOutput{
		ID:          r.ID,
		Title:       r.Title,
		SizeBytes:   r.SizeBytes,
		ContextHash: r.ContextHash,
		Labels:      r.Labels,
		Sections:    nonNil(r.Sections),
		Truncated:   r.Truncated,
		Warnings:    a.warnings,
		DuplicateOf: duplicateOf,
	}, nil
}

// assemble runs the sanitizer over doc and applies the body size policy.
func assemble(cfg *config.Config, doc *capture.Document) (*assembled, error) {
	if doc == nil {
		return nil, errors.NewInvalidRequest("capture document is required")
	}

	issue := report.BuildSanitizedIssue(doc.Context, doc.Input)
	body := issue.Body

	var screenshot *string
	if doc.ScreenshotURL != nil && strings.TrimSpace(*doc.ScreenshotURL) != "" {
		u, err := validateImageURL(*doc.ScreenshotURL)
		if err != nil {
			return nil, err
		}
		screenshot = &u
		body = report.AppendScreenshot(body, u)
	}

	warnings, err := checkBodySize(cfg, len(body))
	if err != nil {
		return nil, err
	}

	labels := normalizeLabels(doc.Labels)
	if len(labels) == 0 {
		labels = normalizeLabels(cfg.DefaultLabels)
	}

	var sourceURL *string
	if doc.Context.URL != nil {
		if u := report.Redact(report.StripQueryAndHash(*doc.Context.URL)); u != "" {
			sourceURL = &u
		}
	}

	now := time.Now().Unix()
	return &assembled{
		report: &report.Report{
			Title:         issue.Title,
			Body:          body,
			SizeBytes:     len(body),
			ContextHash:   report.ContextHash(doc.Context),
			SourceURL:     sourceURL,
			Labels:        labels,
			Milestone:     doc.Milestone,
			Sections:      report.OutlineLabels(body),
			Truncated:     report.IsTruncated(body),
			ScreenshotURL: screenshot,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		warnings: warnings,
	}, nil
}

// checkBodySize rejects bodies at or over BodyRejectBytes and warns at
// BodyWarnBytes. A zero limit disables that check.
func checkBodySize(cfg *config.Config, size int) ([]string, error) {
	if cfg.BodyRejectBytes > 0 && size >= cfg.BodyRejectBytes {
		return nil, errors.NewBodyTooLarge(cfg.BodyRejectBytes, size)
	}
	if cfg.BodyWarnBytes > 0 && size >= cfg.BodyWarnBytes {
		return []string{fmt.Sprintf("body is %d bytes, over the %d byte warning threshold", size, cfg.BodyWarnBytes)}, nil
	}
	return nil, nil
}

func resolveDuplicateMode(mode DuplicateMode, cfg *config.Config) (DuplicateMode, error) {
	if mode == "" {
		mode = DuplicateMode(cfg.DuplicateMode)
	}
	if mode == "" {
		mode = DuplicateAllow
	}
	if mode != DuplicateAllow && mode != DuplicateError {
		return "", errors.NewInvalidRequest("mode must be one of: allow, error")
	}
	return mode, nil
}

func existingIDs(ctx context.Context, database *sql.DB, hash string) ([]string, error) {
	matches, err := db.FindByHash(ctx, database, hash)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// validateImageURL accepts absolute http and https URLs only.
func validateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.NewInvalidRequest("screenshot_url must be an absolute http or https URL")
	}
	return raw, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
