// Package differ implements the Local State Differ from spec.md §4.4: a
// read-only, parallel comparison of each catalog entry's on-disk state
// against its recorded size and digest. It never mutates files; only
// CatalogEntry.NeedsDownload is written, and each entry is touched by
// exactly one worker, so there is no aliasing to guard against beyond the
// shared UI handle.
//
// The worker-pool shape is grounded on internal/batch's scheduler.run: a
// channel of work items drained by a fixed pool of goroutines under an
// errgroup, with a mutex protecting the one shared collaborator (there, the
// status lines; here, the UI).
package differ

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tupdate/tupdate/internal/catalog"
	"github.com/tupdate/tupdate/internal/ui"
	"golang.org/x/sync/errgroup"
)

// readChunkSize is the fixed read size spec.md §4.4 specifies for streaming
// a candidate file through the verification hasher.
const readChunkSize = 32 * 1024

// Run compares every entry against the filesystem, setting NeedsDownload in
// place. Entries are sharded across runtime.NumCPU() workers; ctx
// cancellation (e.g. from an interrupt) stops newly-started comparisons but
// does not abort one already in flight.
func Run(ctx context.Context, gui ui.Gui, verbose bool, entries []catalog.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	workers := runtime.NumCPU()
	if workers > len(entries) {
		workers = len(entries)
	}
	if workers < 1 {
		workers = 1
	}

	work := make(chan int, len(entries))
	for i := range entries {
		work <- i
	}
	close(work)

	total := int64(len(entries))
	var completed int64
	var uiMu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for i := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				diffOne(gui, &uiMu, verbose, &entries[i])

				n := atomic.AddInt64(&completed, 1)
				// Best-effort progress coalescing (spec.md §4.4): only push
				// a UI update if nobody has advanced past this slot by the
				// time we're ready to report it.
				if atomic.LoadInt64(&completed) == n {
					fraction := float64(n) / float64(total)
					uiMu.Lock()
					gui.SetProgress("Checking local files", fmt.Sprintf("%d/%d", n, total), &fraction)
					uiMu.Unlock()
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

// diffOne applies spec.md §4.4's three-step check to a single entry. Any
// I/O error here is non-fatal to the pipeline: it only ever results in the
// entry being marked for (re-)download.
func diffOne(gui ui.Gui, uiMu *sync.Mutex, verbose bool, e *catalog.Entry) {
	logf := func(format string, args ...interface{}) {
		if verbose {
			uiMu.Lock()
			gui.Verbose(fmt.Sprintf(format, args...))
			uiMu.Unlock()
		}
	}
	fi, err := os.Stat(e.DstPath)
	if err != nil {
		logf("%s: error getting metadata: %v", e.RelPath(), err)
		e.NeedsDownload = true
		return
	}
	if uint64(fi.Size()) != e.Size {
		logf("%s: size does not match", e.RelPath())
		e.NeedsDownload = true
		return
	}

	f, err := os.Open(e.DstPath)
	if err != nil {
		logf("%s: error opening file: %v", e.RelPath(), err)
		e.NeedsDownload = true
		return
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, readChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		logf("%s: error while reading: %v", e.RelPath(), err)
		e.NeedsDownload = true
		return
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	if sum != e.Checksum {
		logf("%s: checksum does not match", e.RelPath())
		e.NeedsDownload = true
	}
}
