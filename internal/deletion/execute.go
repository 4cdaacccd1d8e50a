package deletion

import (
	"os"

	"golang.org/x/xerrors"
)

// Execute removes every path in list, in order. A path that no longer
// exists is silently skipped (spec.md §4.7); any other stat or removal
// error is fatal.
func Execute(list []string) error {
	for _, p := range list {
		fi, err := os.Lstat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return xerrors.Errorf("stat %q: %w", p, err)
		}
		if fi.IsDir() {
			if err := os.RemoveAll(p); err != nil {
				return xerrors.Errorf("removing directory %q: %w", p, err)
			}
			continue
		}
		if err := os.Remove(p); err != nil {
			return xerrors.Errorf("removing %q: %w", p, err)
		}
	}
	return nil
}
