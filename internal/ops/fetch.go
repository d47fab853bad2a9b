package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID             string
	IncludeDeleted bool
	IncludeBody    *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	report.Report                       // embedded (copy, not pointer)
	Outline       []report.OutlineEntry `json:"outline"`
}

// Fetch retrieves a report by ID.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	r, err := db.GetByID(ctx, database, id, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{
		Report:  *r,
		Outline: report.Outline(r.Body),
	}
	if output.Outline == nil {
		output.Outline = []report.OutlineEntry{}
	}

	if input.IncludeBody != nil && !*input.IncludeBody {
		output.Body = ""
	}
	return output, nil
}
