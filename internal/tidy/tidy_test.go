package tidy

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/starford/vaultport/internal/report"
	"github.com/starford/vaultport/internal/testutil"
)

func TestTrimNames(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"Notebook_/Note_.md":   "a",
		"Notebook_/Other .md":  "b",
		"Notebook_/___.md":     "c",
		"Travel /trip__.md":    "d",
		"keep.md":              "e",
		"dup_.md":              "f",
		"dup.md":               "g",
		"_resources/image.png": "h",
	})

	n, err := TrimNames(root, report.Discard)
	if err != nil {
		t.Fatalf("TrimNames: %v", err)
	}
	if n != 6 {
		t.Errorf("renamed = %d, want 6", n)
	}

	for _, p := range []string{
		"Notebook/Note.md",
		"Notebook/Other.md",
		"Notebook/___.md",
		"Travel/trip.md",
		"keep.md",
		"dup.md",
		"dup_1.md",
		"_resources/image.png",
	} {
		if !testutil.Exists(t, root, p) {
			t.Errorf("missing %s", p)
		}
	}
	if got := testutil.ReadFile(t, root, "dup_1.md"); got != "f" {
		t.Errorf("dup_1.md = %q, collision must not overwrite", got)
	}
}

func TestTrimmedName(t *testing.T) {
	tests := []struct {
		name    string
		dir     bool
		want    string
		changed bool
	}{
		{"a_.md", false, "a.md", true},
		{"a _ .md", false, "a.md", true},
		{"a.md_", false, "", false},
		{"dir_", true, "dir", true},
		{"_resources", true, "", false},
		{"__", true, "", false},
		{"plain", true, "", false},
	}
	for _, tt := range tests {
		got, ok := trimmedName(tt.name, tt.dir)
		if got != tt.want || ok != tt.changed {
			t.Errorf("trimmedName(%q, %v) = %q, %v", tt.name, tt.dir, got, ok)
		}
	}
}

func TestPruneEmptyResourceDirs(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"a/_resources/keep.png": "k",
		"b/note.md":             "n",
	})
	for _, d := range []string{"_resources", "b/_resources", "c/d/_resources", "e/other"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	rec := &report.Recorder{}
	removed, err := PruneEmptyResourceDirs(root, "_resources", rec)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(removed)
	want := []string{
		filepath.Join(root, "_resources"),
		filepath.Join(root, "b/_resources"),
		filepath.Join(root, "c/d/_resources"),
	}
	if len(removed) != len(want) {
		t.Fatalf("removed = %v", removed)
	}
	for i := range want {
		if removed[i] != want[i] {
			t.Errorf("removed[%d] = %s, want %s", i, removed[i], want[i])
		}
	}
	if !testutil.Exists(t, root, "a/_resources/keep.png") || !testutil.Exists(t, root, "e/other") {
		t.Error("non-empty or differently named directories must stay")
	}
	if len(rec.Errors()) != 0 {
		t.Errorf("errors = %v", rec.Errors())
	}
}
