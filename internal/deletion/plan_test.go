package deletion

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/tupdate/tupdate/internal/catalog"
	"github.com/tupdate/tupdate/internal/index"
)

// TestPlanProtectsInstallAncestors reproduces spec.md §8's scenario 5:
// installing keep/a must protect keep/a and keep itself from a keep/** glob,
// while a sibling file the glob also matches is still scheduled for
// deletion.
func TestPlanProtectsInstallAncestors(t *testing.T) {
	home := t.TempDir()
	mustMkdirAll(t, filepath.Join(home, "keep"))
	mustWriteFile(t, filepath.Join(home, "keep", "a"), "kept")
	mustWriteFile(t, filepath.Join(home, "keep", "stale.txt"), "stale")

	deletes := index.DeleteSpec{
		home: {"keep/**"},
	}
	entries := []catalog.Entry{
		{DstPath: filepath.Join(home, "keep", "a")},
	}

	list, err := Plan(deletes, entries)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	for _, protected := range []string{filepath.Join(home, "keep", "a"), filepath.Join(home, "keep")} {
		if contains(list, protected) {
			t.Errorf("DeletionList must not contain protected path %q, got %v", protected, list)
		}
	}
	if !contains(list, filepath.Join(home, "keep", "stale.txt")) {
		t.Errorf("DeletionList should still contain the unprotected sibling, got %v", list)
	}
}

func TestPlanSortsAndDedupes(t *testing.T) {
	home := t.TempDir()
	mustWriteFile(t, filepath.Join(home, "b.txt"), "b")
	mustWriteFile(t, filepath.Join(home, "a.txt"), "a")

	deletes := index.DeleteSpec{
		home: {"*.txt", "[ab].txt"}, // two globs matching the same files
	}
	list, err := Plan(deletes, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 deduplicated entries, got %v", list)
	}
	if !sort.StringsAreSorted(list) {
		t.Errorf("DeletionList must be sorted, got %v", list)
	}
}

func TestExecuteSkipsMissingAndRemovesFilesAndDirs(t *testing.T) {
	home := t.TempDir()
	mustMkdirAll(t, filepath.Join(home, "stale-dir"))
	mustWriteFile(t, filepath.Join(home, "stale-dir", "x"), "x")
	mustWriteFile(t, filepath.Join(home, "stale.txt"), "x")

	list := []string{
		filepath.Join(home, "does-not-exist"),
		filepath.Join(home, "stale-dir"),
		filepath.Join(home, "stale.txt"),
	}
	if err := Execute(list); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "stale-dir")); !os.IsNotExist(err) {
		t.Errorf("stale-dir should have been removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("stale.txt should have been removed, stat err = %v", err)
	}
}

func contains(list []string, target string) bool {
	for _, p := range list {
		if p == target {
			return true
		}
	}
	return false
}

func mustMkdirAll(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
