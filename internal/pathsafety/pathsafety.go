// Package pathsafety implements the sole defense against directory traversal
// and hidden-file escapes that the update engine relies on: the "fishy path"
// predicate. It must be applied to every relative path and delete-glob before
// that value is ever joined with a base directory or URL.
package pathsafety

import "strings"

// IsFishy reports whether target is a relative path (or glob) that attempts
// to escape its base: it starts with ".", "/", or "\", or contains "/." or
// "\.". Any of those forms is rejected wherever this predicate is consulted.
func IsFishy(target string) bool {
	return strings.HasPrefix(target, ".") ||
		strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "\\") ||
		strings.Contains(target, "/.") ||
		strings.Contains(target, "\\.")
}
