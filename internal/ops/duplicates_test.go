package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
)

func TestDuplicates(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()

	doc := testDocument("https://a.example/", 99, "one")
	first, err := Build(ctx, database, cfg, BuildInput{Document: doc})
	require.NoError(t, err)
	second, err := Build(ctx, database, cfg, BuildInput{Document: doc})
	require.NoError(t, err)
	_, err = Build(ctx, database, cfg, BuildInput{Document: testDocument("https://b.example/", 99, "other")})
	require.NoError(t, err)

	byHash, err := Duplicates(ctx, database, DuplicatesInput{Hash: first.ContextHash})
	require.NoError(t, err)
	require.Equal(t, first.ContextHash, byHash.ContextHash)
	require.Len(t, byHash.Items, 2)
	require.Equal(t, first.ID, byHash.Items[0].ID, "oldest first")
	require.Equal(t, second.ID, byHash.Items[1].ID)

	byID, err := Duplicates(ctx, database, DuplicatesInput{ID: second.ID})
	require.NoError(t, err)
	require.Equal(t, byHash, byID)
}

func TestDuplicates_NoMatches(t *testing.T) {
	out, err := Duplicates(context.Background(), openTestDB(t), DuplicatesInput{Hash: "DEADBEEF"})
	require.NoError(t, err)
	require.Equal(t, "deadbeef", out.ContextHash)
	require.NotNil(t, out.Items)
	require.Empty(t, out.Items)
}

func TestDuplicates_InvalidInput(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	tests := []struct {
		name  string
		input DuplicatesInput
		code  errors.ErrorCode
	}{
		{"neither", DuplicatesInput{}, errors.ErrInvalidRequest},
		{"both", DuplicatesInput{Hash: "deadbeef", ID: "01X"}, errors.ErrInvalidRequest},
		{"short hash", DuplicatesInput{Hash: "abc"}, errors.ErrInvalidRequest},
		{"non-hex hash", DuplicatesInput{Hash: "zzzzzzzz"}, errors.ErrInvalidRequest},
		{"unknown id", DuplicatesInput{ID: "01MISSING"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Duplicates(ctx, database, tt.input)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}
