// Package deletion implements the Deletion Planner and Deletion Executor
// from spec.md §4.5 and §4.7: expanding delete-globs into concrete paths,
// protecting anything an install still needs, and then removing what's
// left.
package deletion

import (
	"path/filepath"
	"sort"

	"github.com/tupdate/tupdate/internal/catalog"
	"github.com/tupdate/tupdate/internal/glob"
	"github.com/tupdate/tupdate/internal/index"
	"golang.org/x/xerrors"
)

// Plan expands every base directory's delete-globs against the filesystem,
// sorts and deduplicates the result, and then removes any path that is an
// ancestor of (or equal to) any entry's destination path: spec.md §4.5's
// "protect ancestors of installs" rule. Glob-walk errors are fatal.
func Plan(deletes index.DeleteSpec, entries []catalog.Entry) ([]string, error) {
	var matched []string
	for base, globs := range deletes {
		for _, g := range globs {
			found, err := glob.Walk(base, g)
			if err != nil {
				return nil, xerrors.Errorf("walking delete glob %q under %q: %w", g, base, err)
			}
			matched = append(matched, found...)
		}
	}
	sort.Strings(matched)
	matched = dedupeSorted(matched)

	protected := ancestorsOf(entries)
	out := matched[:0]
	for _, p := range matched {
		if _, isProtected := protected[p]; !isProtected {
			out = append(out, p)
		}
	}
	return out, nil
}

// dedupeSorted removes adjacent equal entries from an already-sorted slice,
// compacting in place.
func dedupeSorted(sorted []string) []string {
	out := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			out = append(out, p)
		}
	}
	return out
}

// ancestorsOf returns the set of every destination path, plus every
// directory on the way up to the filesystem root, for every entry. A
// directory that contains a file about to be installed must survive
// deletion.
func ancestorsOf(entries []catalog.Entry) map[string]struct{} {
	set := make(map[string]struct{}, len(entries)*4)
	for _, e := range entries {
		for p := e.DstPath; ; {
			if _, already := set[p]; already {
				break
			}
			set[p] = struct{}{}
			parent := filepath.Dir(p)
			if parent == p {
				break
			}
			p = parent
		}
	}
	return set
}
