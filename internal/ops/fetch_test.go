package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
)

func TestFetch(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	built, err := Build(ctx, database, config.DefaultConfig(), BuildInput{
		Document: testDocument("https://a.example/", 1, "fetch me"),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	output, err := Fetch(ctx, database, FetchInput{ID: built.ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if output.ID != built.ID {
		t.Errorf("ID = %q, want %q", output.ID, built.ID)
	}
	if output.Body == "" {
		t.Error("Body is empty, want included by default")
	}
	if len(output.Outline) != 1 || output.Outline[0].Label != "Description" {
		t.Errorf("Outline = %+v, want [Description]", output.Outline)
	}
}

func TestFetch_ExcludeBody(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	built, err := Build(ctx, database, config.DefaultConfig(), BuildInput{
		Document: testDocument("https://a.example/", 1, "fetch me"),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	includeBody := false
	output, err := Fetch(ctx, database, FetchInput{ID: built.ID, IncludeBody: &includeBody})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if output.Body != "" {
		t.Errorf("Body = %q, want empty", output.Body)
	}
	if output.SizeBytes != built.SizeBytes {
		t.Errorf("SizeBytes = %d, want %d", output.SizeBytes, built.SizeBytes)
	}
	if len(output.Outline) != 1 {
		t.Errorf("Outline should still describe the body, got %+v", output.Outline)
	}
}

func TestFetch_Errors(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	if _, err := Fetch(ctx, database, FetchInput{ID: "  "}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("blank id: error = %v, want INVALID_REQUEST", err)
	}
	if _, err := Fetch(ctx, database, FetchInput{ID: "01MISSING"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing id: error = %v, want NOT_FOUND", err)
	}
}

func TestFetch_IncludeDeleted(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	built, err := Build(ctx, database, config.DefaultConfig(), BuildInput{
		Document: testDocument("https://a.example/", 1, "x"),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := Delete(ctx, database, DeleteInput{ID: built.ID}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := Fetch(ctx, database, FetchInput{ID: built.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
	output, err := Fetch(ctx, database, FetchInput{ID: built.ID, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Fetch(IncludeDeleted) failed: %v", err)
	}
	if output.DeletedAt == nil {
		t.Error("DeletedAt = nil, want set")
	}
}
