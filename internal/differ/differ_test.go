package differ

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/tupdate/tupdate/internal/catalog"
	"github.com/tupdate/tupdate/internal/ui"
)

type silentGui struct{}

func (silentGui) SetProgress(task, subtask string, fraction *float64)  {}
func (silentGui) DoMessage(title, message string)                     {}
func (silentGui) DoWarning(title, message string, canCancel bool) bool { return true }
func (silentGui) DoError(title, message string)                       {}
func (silentGui) Verbose(message string)                              {}

var _ ui.Gui = silentGui{}

func entryFor(t *testing.T, dir, name string, content []byte) catalog.Entry {
	t.Helper()
	sum := sha256.Sum256(content)
	return catalog.Entry{
		DstPath:  filepath.Join(dir, name),
		Checksum: sum,
		Size:     uint64(len(content)),
	}
}

func TestRunMarksMissingSizeMismatchAndCorruptionForDownload(t *testing.T) {
	dir := t.TempDir()

	missing := entryFor(t, dir, "missing.txt", []byte("hello"))

	wrongSize := entryFor(t, dir, "wrong-size.txt", []byte("hello"))
	if err := os.WriteFile(wrongSize.DstPath, []byte("h"), 0o644); err != nil {
		t.Fatal(err)
	}

	corrupt := entryFor(t, dir, "corrupt.txt", []byte("hello"))
	if err := os.WriteFile(corrupt.DstPath, []byte("HELLO"), 0o644); err != nil {
		t.Fatal(err)
	}

	upToDate := entryFor(t, dir, "ok.txt", []byte("hello"))
	if err := os.WriteFile(upToDate.DstPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries := []catalog.Entry{missing, wrongSize, corrupt, upToDate}
	if err := Run(context.Background(), silentGui{}, false, entries); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !entries[0].NeedsDownload {
		t.Error("missing file: want NeedsDownload = true")
	}
	if !entries[1].NeedsDownload {
		t.Error("wrong size: want NeedsDownload = true")
	}
	if !entries[2].NeedsDownload {
		t.Error("corrupted content: want NeedsDownload = true")
	}
	if entries[3].NeedsDownload {
		t.Error("up-to-date file: want NeedsDownload = false")
	}
}

func TestRunEmptyEntriesIsNoop(t *testing.T) {
	if err := Run(context.Background(), silentGui{}, false, nil); err != nil {
		t.Fatalf("Run(nil): %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	var entries []catalog.Entry
	for i := 0; i < 64; i++ {
		entries = append(entries, entryFor(t, dir, "absent.txt", []byte("hello")))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, silentGui{}, false, entries)
	if err == nil {
		t.Fatal("expected an error from a pre-cancelled context")
	}
}
