package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// AttachInput contains parameters for the AttachScreenshot operation.
type AttachInput struct {
	ID  string // required
	URL string // required, http or https
}

// AttachOutput contains the result of the AttachScreenshot operation.
type AttachOutput struct {
	ID            string   `json:"id"`
	ScreenshotURL string   `json:"screenshot_url"`
	SizeBytes     int      `json:"size_bytes"`
	Replaced      bool     `json:"replaced"`
	Warnings      []string `json:"warnings,omitempty"`
}

// AttachScreenshot appends an uploaded screenshot to a stored report's body. A
// screenshot already attached is replaced.
func AttachScreenshot(ctx context.Context, database *sql.DB, cfg *config.Config, input AttachInput) (*AttachOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	imageURL, err := validateImageURL(input.URL)
	if err != nil {
		return nil, err
	}

	r, err := db.GetByID(ctx, database, id, false)
	if err != nil {
		return nil, err
	}
	replaced := r.ScreenshotURL != nil

	r.Body = report.AppendScreenshot(r.Body, imageURL)
	r.SizeBytes = len(r.Body)
	r.Sections = report.OutlineLabels(r.Body)
	r.Truncated = report.IsTruncated(r.Body)
	r.ScreenshotURL = &imageURL

	warnings, err := checkBodySize(cfg, r.SizeBytes)
	if err != nil {
		return nil, err
	}
	if err := db.UpdateBody(ctx, database, r); err != nil {
		return nil, err
	}

	return &AttachOutput{
		ID:            r.ID,
		ScreenshotURL: imageURL,
		SizeBytes:     r.SizeBytes,
		Replaced:      replaced,
		Warnings:      warnings,
	}, nil
}
