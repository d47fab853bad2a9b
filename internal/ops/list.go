package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/report"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Label          *string // optional filter
	Limit          int     // default: 20, max: 100
	Offset         int     // default: 0
	IncludeDeleted bool
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []report.Summary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List retrieves report summaries, newest first.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	limit, offset := page(input.Limit, input.Offset, DefaultListLimit, MaxListLimit)

	filter := db.ListFilter{
		Label:          cleanOptionalString(input.Label),
		IncludeDeleted: input.IncludeDeleted,
	}
	summaries, total, err := db.ListReports(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []report.Summary{}
	}

	return &ListOutput{
		Items:      summaries,
		Pagination: newPagination(limit, offset, len(summaries), total),
		Sort:       "created_at_desc",
	}, nil
}
