package fetch

import (
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/tupdate/tupdate/internal/catalog"
)

type silentGui struct{}

func (silentGui) SetProgress(task, subtask string, fraction *float64)  {}
func (silentGui) DoMessage(title, message string)                     {}
func (silentGui) DoWarning(title, message string, canCancel bool) bool { return true }
func (silentGui) DoError(title, message string)                       {}
func (silentGui) Verbose(message string)                              {}

func TestDownloadWritesVerifiedBody(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte("hi"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	src, _ := url.Parse(srv.URL + "/a.txt")
	sum := sha256.Sum256([]byte("hi"))
	entries := []catalog.Entry{
		{SrcURL: src, DstPath: filepath.Join(dir, "a.txt"), Checksum: sum, Size: 2, NeedsDownload: true},
		{SrcURL: src, DstPath: filepath.Join(dir, "b.txt"), Checksum: sum, Size: 2, NeedsDownload: false},
	}

	if err := Download(context.Background(), NewClient(), silentGui{}, entries); err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("content = %q, want %q", got, "hi")
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Error("entry without NeedsDownload should not have been fetched")
	}
	if requests != 1 {
		t.Errorf("requests = %d, want exactly 1 GET", requests)
	}
}

func TestDownloadRejectsCorruptBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hj")) // wrong content for the expected digest
	}))
	defer srv.Close()

	dir := t.TempDir()
	src, _ := url.Parse(srv.URL + "/a.txt")
	sum := sha256.Sum256([]byte("hi"))
	entries := []catalog.Entry{
		{SrcURL: src, DstPath: filepath.Join(dir, "a.txt"), Checksum: sum, Size: 2, NeedsDownload: true},
	}

	err := Download(context.Background(), NewClient(), silentGui{}, entries)
	if err == nil {
		t.Fatal("expected a corruption error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(statErr) {
		t.Error("a rejected download must not leave a file at dst_path")
	}
}
