// Package glob is the Glob Engine external collaborator described by
// spec.md §4.2/§4.5: shell-style glob matching anchored to a filesystem
// directory, plus the two syntactic predicates ("rooted", "semantic
// components") the Index Interpreter and Deletion Planner both need before
// they'll trust a glob string.
//
// It is built on doublestar, which supplies the actual "**"-aware matching;
// this package adds the anchoring and the syntactic checks that the
// underlying matcher doesn't care about but the sandboxed index script must.
package glob

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// HasRoot reports whether pattern is an absolute (rooted) glob, e.g. "/etc/*"
// or (on Windows) "C:\\foo\\*". Rooted globs are never allowed in the index
// script: they would let a malicious index escape the detected base
// directory entirely.
func HasRoot(pattern string) bool {
	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, "\\") {
		return true
	}
	return filepath.IsAbs(filepath.FromSlash(pattern))
}

// HasSemanticComponents reports whether pattern contains a path component
// that isn't a literal name or glob wildcard but instead carries filesystem
// meaning — currently only "..". Such globs could walk outside of the
// anchor directory and are rejected wherever a glob is accepted.
func HasSemanticComponents(pattern string) bool {
	norm := strings.ReplaceAll(pattern, "\\", "/")
	for _, part := range strings.Split(norm, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// Validate reports a syntax error in pattern, independent of the
// rootedness/semantic checks above.
func Validate(pattern string) error {
	return doublestar.ValidatePattern(pattern)
}

// Walk matches pattern against the contents of anchor (a directory on disk)
// and returns every matching path — files and directories alike — as
// absolute paths under anchor, sorted lexicographically. It does not
// validate pattern; callers that accept patterns from untrusted sources
// (the index script, delete-globs) must call Validate/HasRoot/
// HasSemanticComponents first.
func Walk(anchor, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(anchor), pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(anchor, filepath.FromSlash(m))
	}
	sort.Strings(out)
	return out, nil
}

// First returns the first path (in the same order Walk would produce,
// lexicographic) that matches pattern under anchor, along with whether it is
// a directory. ok is false if nothing matched.
func First(anchor, pattern string) (path string, isDir bool, ok bool, err error) {
	matches, err := Walk(anchor, pattern)
	if err != nil {
		return "", false, false, err
	}
	if len(matches) == 0 {
		return "", false, false, nil
	}
	fi, err := os.Lstat(matches[0])
	if err != nil {
		return "", false, false, err
	}
	return matches[0], fi.IsDir(), true, nil
}
