package ops

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

var contextHashPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// DuplicatesInput selects the capture to look up, either by context hash or by the
// ID of a stored report whose hash is used.
type DuplicatesInput struct {
	Hash string
	ID   string
}

// DuplicatesOutput lists active reports sharing a context hash, oldest first.
type DuplicatesOutput struct {
	ContextHash string           `json:"context_hash"`
	Items       []report.Summary `json:"items"`
}

// Duplicates finds stored reports built from the same capture.
func Duplicates(ctx context.Context, database *sql.DB, input DuplicatesInput) (*DuplicatesOutput, error) {
	hash := strings.ToLower(strings.TrimSpace(input.Hash))
	id := strings.TrimSpace(input.ID)

	switch {
	case hash != "" && id != "":
		return nil, errors.NewInvalidRequest("specify either hash or id, not both")
	case hash == "" && id == "":
		return nil, errors.NewInvalidRequest("must specify either hash or id")
	case id != "":
		r, err := db.GetByID(ctx, database, id, true)
		if err != nil {
			return nil, err
		}
		hash = r.ContextHash
	case !contextHashPattern.MatchString(hash):
		return nil, errors.NewInvalidRequest("hash must be 8 lowercase hex digits")
	}

	items, err := db.FindByHash(ctx, database, hash)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []report.Summary{}
	}
	return &DuplicatesOutput{ContextHash: hash, Items: items}, nil
}
