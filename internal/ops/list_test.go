package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/snag/internal/config"
)

func TestList(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()

	for i := range 5 {
		doc := testDocument("https://a.example/", int64(i+1), "x")
		if i%2 == 0 {
			doc.Labels = []string{"even"}
		}
		if _, err := Build(ctx, database, cfg, BuildInput{Document: doc}); err != nil {
			t.Fatalf("Build failed: %v", err)
		}
	}

	output, err := List(ctx, database, ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(output.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(output.Items))
	}
	if output.Sort != "created_at_desc" {
		t.Errorf("Sort = %q, want created_at_desc", output.Sort)
	}
	if !output.Pagination.HasMore || output.Pagination.Total != 5 {
		t.Errorf("Pagination = %+v, want has_more and total 5", output.Pagination)
	}

	output, err = List(ctx, database, ListInput{Offset: 4})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(output.Items) != 1 || output.Pagination.HasMore {
		t.Errorf("last page = %d items, has_more %v; want 1, false", len(output.Items), output.Pagination.HasMore)
	}

	output, err = List(ctx, database, ListInput{Label: stringPtr(" even ")})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if output.Pagination.Total != 3 {
		t.Errorf("label total = %d, want 3", output.Pagination.Total)
	}
}

func TestList_Empty(t *testing.T) {
	output, err := List(context.Background(), openTestDB(t), ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if output.Items == nil {
		t.Error("Items = nil, want empty slice")
	}
	if output.Pagination.Limit != DefaultListLimit {
		t.Errorf("Limit = %d, want %d", output.Pagination.Limit, DefaultListLimit)
	}
}

func TestList_IncludeDeleted(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	out, err := Build(ctx, database, config.DefaultConfig(), BuildInput{Document: testDocument("https://a.example/", 1, "x")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := Delete(ctx, database, DeleteInput{ID: out.ID}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	active, err := List(ctx, database, ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	all, err := List(ctx, database, ListInput{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active.Items) != 0 || len(all.Items) != 1 {
		t.Errorf("active=%d all=%d, want 0 and 1", len(active.Items), len(all.Items))
	}
}
