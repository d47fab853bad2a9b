package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// exportConfig allows exports into dir.
func exportConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

// readExport returns the header and records of an export file.
func readExport(t *testing.T, path string) (ExportHeader, []report.ExportRecord) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var header ExportHeader
	var records []report.ExportRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLineBytes)
	for first := true; scanner.Scan(); first = false {
		if first {
			if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
				t.Fatalf("header: %v", err)
			}
			continue
		}
		var rec report.ExportRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("record: %v", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return header, records
}

func TestExport_HappyPath(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	dir := t.TempDir()
	cfg := exportConfig(dir)

	first, err := Build(ctx, database, cfg, BuildInput{Document: testDocument("https://a.example/", 1, "first <b>html</b>")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := Build(ctx, database, cfg, BuildInput{Document: testDocument("https://a.example/", 2, "second")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	path := filepath.Join(dir, "out.jsonl")
	output, err := Export(ctx, database, cfg, ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Count != 2 || output.Path != path || output.ExportedAt == 0 {
		t.Errorf("output = %+v", output)
	}

	header, records := readExport(t, path)
	if !header.SnagExport || header.SchemaVersion != ExportSchemaVersion || header.ExportedAt != output.ExportedAt {
		t.Errorf("header = %+v", header)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	ids := map[string]bool{records[0].ID: true, records[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("record ids = %v, want %s and %s", ids, first.ID, second.ID)
	}
	for _, rec := range records {
		if rec.SnagExport || rec.Body == "" || rec.ContextHash == "" {
			t.Errorf("incomplete record: %+v", rec)
		}
	}

	// Bodies are written without HTML escaping
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), `\u003c`) || !strings.Contains(string(raw), "<b>html</b>") {
		t.Error("export escapes HTML characters")
	}
}

func TestExport_FiltersAndDeleted(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	dir := t.TempDir()
	cfg := exportConfig(dir)

	labeled := testDocument("https://a.example/", 1, "x")
	labeled.Labels = []string{"ui"}
	if _, err := Build(ctx, database, cfg, BuildInput{Document: labeled}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	gone, err := Build(ctx, database, cfg, BuildInput{Document: testDocument("https://a.example/", 2, "y")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := Delete(ctx, database, DeleteInput{ID: gone.ID}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	tests := []struct {
		name  string
		input ExportInput
		want  int
	}{
		{"active", ExportInput{}, 1},
		{"include deleted", ExportInput{IncludeDeleted: true}, 2},
		{"label", ExportInput{Label: stringPtr("ui"), IncludeDeleted: true}, 1},
		{"unknown label", ExportInput{Label: stringPtr("nope")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Path = filepath.Join(dir, SanitizeForFilename(tt.name)+".jsonl")
			output, err := Export(ctx, database, cfg, tt.input)
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			if output.Count != tt.want {
				t.Errorf("Count = %d, want %d", output.Count, tt.want)
			}
			if _, records := readExport(t, output.Path); len(records) != tt.want {
				t.Errorf("file has %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()

	output, err := Export(ctx, database, cfg, ExportInput{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	wantDir := filepath.Join(home, ".snag", "exports")
	if filepath.Dir(output.Path) != wantDir {
		t.Errorf("Path = %q, want in %q", output.Path, wantDir)
	}
	if !strings.HasPrefix(filepath.Base(output.Path), "reports-") {
		t.Errorf("Path = %q, want reports- prefix", output.Path)
	}

	output, err = Export(ctx, database, cfg, ExportInput{Label: stringPtr("../../evil")})
	if err != nil {
		t.Fatalf("Export with label failed: %v", err)
	}
	if filepath.Dir(output.Path) != wantDir || !strings.HasPrefix(filepath.Base(output.Path), "evil-") {
		t.Errorf("label path = %q, want sanitized name in exports dir", output.Path)
	}
}

func TestExport_FilePermissionsAndNoTempLeft(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "out.jsonl")
	if _, err := Export(ctx, database, exportConfig(dir), ExportInput{Path: path}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the export", len(entries))
	}
}

func TestExport_RejectsBadPaths(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	dir := t.TempDir()
	cfg := exportConfig(dir)

	for _, path := range []string{
		filepath.Join(dir, "out.json"),
		filepath.Join(dir, "..", "out.jsonl"),
		filepath.Join(t.TempDir(), "out.jsonl"),
	} {
		if _, err := Export(ctx, database, cfg, ExportInput{Path: path}); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Export(%q) error = %v, want INVALID_REQUEST", path, err)
		}
	}
}

func TestExport_Cancelled(t *testing.T) {
	database := openTestDB(t)
	dir := t.TempDir()
	cfg := exportConfig(dir)

	if _, err := Build(context.Background(), database, cfg, BuildInput{Document: testDocument("https://a.example/", 1, "x")}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(dir, "out.jsonl")
	_, err := Export(ctx, database, cfg, ExportInput{Path: path})
	if !errors.Is(err, errors.ErrCancelled) {
		t.Fatalf("expected CANCELLED, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("export file exists after failure: %v", err)
	}
}
