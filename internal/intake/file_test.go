package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDraftFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := writeDraftFile(t, dir, "draft.yaml", completeDoc)

	drafts, malformed, err := NewFileSource(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(malformed) != 0 {
		t.Errorf("malformed = %+v, want none", malformed)
	}
	if len(drafts) != 1 || drafts[0].Draft.DraftID != "d-001" {
		t.Errorf("drafts = %+v, want single d-001", drafts)
	}
}

func TestFileSource_MalformedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDraftFile(t, dir, "bad.yaml", "variant: core\n")

	drafts, malformed, err := NewFileSource(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("a malformed document is recorded, not fatal: %v", err)
	}
	if len(drafts) != 0 {
		t.Errorf("drafts = %+v, want none", drafts)
	}
	if len(malformed) != 1 {
		t.Fatalf("malformed count = %d, want 1", len(malformed))
	}
	if malformed[0].Source != path {
		t.Errorf("malformed source = %q, want %q", malformed[0].Source, path)
	}
	if !strings.Contains(malformed[0].Reason, "draft_id") {
		t.Errorf("malformed reason = %q, want mention of draft_id", malformed[0].Reason)
	}
}

func TestFileSource_MissingFileIsFatal(t *testing.T) {
	_, _, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml")).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDirSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeDraftFile(t, dir, "02_second.yaml", strings.ReplaceAll(completeDoc, "d-001", "d-002"))
	writeDraftFile(t, dir, "01_first.yaml", completeDoc)
	writeDraftFile(t, dir, "03_third.yml", strings.ReplaceAll(completeDoc, "d-001", "d-003"))
	writeDraftFile(t, dir, "04_broken.yaml", "conditions: [unclosed")
	writeDraftFile(t, dir, "notes.txt", "not a draft")

	drafts, malformed, err := NewDirSource(dir).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(drafts) != 3 {
		t.Fatalf("draft count = %d, want 3", len(drafts))
	}
	// Lexical filename order, not write order.
	for i, want := range []string{"d-001", "d-002", "d-003"} {
		if drafts[i].Draft.DraftID != want {
			t.Errorf("drafts[%d] = %q, want %q", i, drafts[i].Draft.DraftID, want)
		}
	}

	if len(malformed) != 1 {
		t.Fatalf("malformed count = %d, want 1", len(malformed))
	}
	if !strings.HasSuffix(malformed[0].Source, "04_broken.yaml") {
		t.Errorf("malformed source = %q", malformed[0].Source)
	}
}

func TestDirSource_EmptyDir(t *testing.T) {
	drafts, malformed, err := NewDirSource(t.TempDir()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(drafts) != 0 || len(malformed) != 0 {
		t.Errorf("expected empty results, got %d drafts, %d malformed", len(drafts), len(malformed))
	}
}

func TestDirSource_MissingDirIsFatal(t *testing.T) {
	_, _, err := NewDirSource(filepath.Join(t.TempDir(), "absent")).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
