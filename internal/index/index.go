// Package index implements the Index Interpreter from spec.md §4.2: a
// sandboxed Starlark script that resolves install base directories and
// declares installs and deletes. It is grounded on
// original_source/src/update_finder.rs, which did the equivalent job with an
// embedded Lua, and on the starlark sandbox idiom from shac's internal
// engine (predeclared builtins bound with starlark.NewBuiltin, no load()).
package index

import (
	"net/url"
	"path/filepath"
	"runtime"

	"github.com/tupdate/tupdate/internal/glob"
	"github.com/tupdate/tupdate/internal/ui"
	"go.starlark.net/starlark"
	"golang.org/x/xerrors"
)

// Install is a resolved (base directory, catalog URL) pair, in the order
// the index script produced them.
type Install struct {
	BaseDir    string
	CatalogURL *url.URL
}

// DeleteSpec maps a base directory to the ordered list of delete-globs the
// index declared for it.
type DeleteSpec map[string][]string

// ErrBailOut is the sentinel the bail_out() builtin raises. A script that
// fails with this cause (possibly wrapped in a starlark.EvalError) is a
// silent abort, not a script error: see spec.md §4.2 and §7.
var ErrBailOut = xerrors.New("BAIL OUT")

// dirRegistry maps a detect_dir identifier (e.g. "HOME", "APPDATA") to the
// absolute path chosen for it. Entries are write-once per identifier within
// a run (spec.md §3).
type dirRegistry map[string]string

// state is the InterpreterState of spec.md §3: it owns the dirRegistry, the
// current base directory, and the installs/deletes accumulators. It exists
// only for the duration of index execution.
type state struct {
	gui      ui.Gui
	verbose  bool
	indexURL *url.URL

	dirs    dirRegistry
	baseDir *string

	installs []Install
	deletes  DeleteSpec
}

func newState(gui ui.Gui, verbose bool, indexURL *url.URL) *state {
	return &state{
		gui:      gui,
		verbose:  verbose,
		indexURL: indexURL,
		dirs:     dirRegistry{},
		deletes:  DeleteSpec{},
	}
}

func (s *state) logVerbose(msg string) {
	if s.verbose {
		s.gui.Verbose(msg)
	}
}

// Run executes body (the fetched index script's bytes) in a sandboxed
// Starlark thread and returns the installs and deletes it declared.
//
// A script that calls bail_out() returns (nil, nil, nil): spec.md §7 treats
// this as a silent abort, never an error dialog. Any other failure is
// returned as an error whose text is suitable for a "Lua error"-style
// do_error dialog (spec.md's naming is historical; ours just says "script
// error").
func Run(gui ui.Gui, verbose bool, body []byte, indexURL *url.URL) ([]Install, DeleteSpec, error) {
	st := newState(gui, verbose, indexURL)

	thread := &starlark.Thread{
		Name: "index",
		Print: func(_ *starlark.Thread, msg string) {
			st.logVerbose(msg)
		},
	}

	predeclared := predeclaredEnv(st)

	_, err := starlark.ExecFile(thread, "index", body, predeclared)
	if err != nil {
		// starlark.EvalError preserves the Go error a builtin returned as its
		// Unwrap() cause, so xerrors.Is sees through it to ErrBailOut.
		if xerrors.Is(err, ErrBailOut) {
			return nil, nil, nil
		}
		return nil, nil, xerrors.Errorf("an error occurred while processing the update index: %w", err)
	}

	st.logVerbose("Finished examining update index.")
	return st.installs, st.deletes, nil
}

// predeclaredEnv builds the Starlark global environment described by
// spec.md §4.2: the OS-family constants and every callable primitive, bound
// as closures over st. No load() function is supplied, so load(...) in the
// script fails outright; there is no file-reading or eval primitive of any
// kind.
func predeclaredEnv(st *state) starlark.StringDict {
	env := starlark.StringDict{
		"target_os":     starlark.String(targetOS()),
		"target_family": starlark.String(targetFamily()),
	}
	env["windows"] = starlark.Bool(targetFamily() == "windows")
	env["unix"] = starlark.Bool(targetFamily() == "unix")
	env["macos"] = starlark.Bool(runtime.GOOS == "darwin")

	env["print"] = starlark.NewBuiltin("print", builtinPrint(st))
	env["getenv"] = starlark.NewBuiltin("getenv", builtinGetenv(st))
	env["detect_dir"] = starlark.NewBuiltin("detect_dir", builtinDetectDir(st))
	env["basedir"] = starlark.NewBuiltin("basedir", builtinBasedir(st))
	env["cd"] = starlark.NewBuiltin("cd", builtinCd(st))
	env["sense"] = starlark.NewBuiltin("sense", builtinSense(st))
	env["install"] = starlark.NewBuiltin("install", builtinInstall(st))
	env["delete_unmatched"] = starlark.NewBuiltin("delete_unmatched", builtinDeleteUnmatched(st))
	env["do_message"] = starlark.NewBuiltin("do_message", builtinDoMessage(st))
	env["do_warning"] = starlark.NewBuiltin("do_warning", builtinDoWarning(st))
	env["do_error"] = starlark.NewBuiltin("do_error", builtinDoError(st))
	env["bail_out"] = starlark.NewBuiltin("bail_out", builtinBailOut(st))

	return env
}

func targetOS() string {
	return runtime.GOOS
}

func targetFamily() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "plan9", "js":
		return runtime.GOOS
	default:
		return "unix"
	}
}

// sensePredicate implements spec.md §4.2's "Sense predicate on
// (anchor, glob)": ground-truthed against update_finder.rs's sense().
func sensePredicate(anchor, srcGlob string) (bool, error) {
	wantDir := false
	g := srcGlob
	if len(g) > 0 && g[len(g)-1] == '/' {
		g = g[:len(g)-1]
		wantDir = true
	}
	if err := glob.Validate(g); err != nil {
		return false, xerrors.New("syntactically invalid glob among dir sense globs")
	}
	if glob.HasRoot(g) || glob.HasSemanticComponents(g) {
		return false, xerrors.New(`forbidden glob among dir sense globs: rooted globs, and semantic components (such as "..") are not allowed`)
	}
	_, isDir, ok, err := glob.First(anchor, g)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return isDir == wantDir, nil
}

// checkDetectedDir implements spec.md §4.2's check_detected_dir: the
// candidate must be absolute, and every glob in the silhouette's "sense"
// list must hold against it. On acceptance the candidate is registered
// under id.
func checkDetectedDir(st *state, id string, candidate string, silhouette *starlark.Dict) (bool, error) {
	if !filepath.IsAbs(candidate) {
		st.logVerbose("    Rejected: path is invalid (must be absolute)")
		return false, nil
	}
	ok := true
	if senseVal, found, _ := silhouette.Get(starlark.String("sense")); found {
		globs, err := toStringList(senseVal)
		if err != nil {
			return false, err
		}
		for _, g := range globs {
			match, err := sensePredicate(candidate, g)
			if err != nil {
				return false, err
			}
			if !match {
				st.logVerbose("    Rejected: doesn't match glob " + g)
				ok = false
			}
		}
	}
	if ok {
		st.logVerbose("    Accepted!")
		st.dirs[id] = candidate
	}
	return ok, nil
}

func toStringList(v starlark.Value) ([]string, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, xerrors.New("silhouette's \"sense\" entry must be a list of strings")
	}
	it := iterable.Iterate()
	defer it.Done()
	var out []string
	var elem starlark.Value
	for it.Next(&elem) {
		s, ok := starlark.AsString(elem)
		if !ok {
			return nil, xerrors.New("silhouette's \"sense\" entry must be a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

