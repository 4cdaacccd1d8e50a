package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tupdate/tupdate/internal/glob"
	"github.com/tupdate/tupdate/internal/pathsafety"
	"go.starlark.net/starlark"
	"golang.org/x/xerrors"
)

type builtinFunc = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// displayString renders a Starlark value the way print() wants it: raw text
// for strings, Starlark's own repr for everything else.
func displayString(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

func builtinPrint(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if st.verbose {
			parts := make([]string, args.Len())
			for i := 0; i < args.Len(); i++ {
				parts[i] = displayString(args.Index(i))
			}
			st.gui.Verbose(strings.Join(parts, "\t"))
		}
		return starlark.None, nil
	}
}

func builtinGetenv(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
			return nil, err
		}
		if v, ok := os.LookupEnv(name); ok {
			return starlark.String(v), nil
		}
		return starlark.None, nil
	}
}

func builtinDetectDir(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			id            string
			name          string
			candidateIter starlark.Value
			silhouette    *starlark.Dict
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"id", &id, "name", &name, "candidate_iter", &candidateIter, "silhouette", &silhouette); err != nil {
			return nil, err
		}
		if _, already := st.dirs[id]; already {
			return starlark.None, nil
		}
		st.logVerbose(fmt.Sprintf("Detecting %q (%s):", id, name))

		if envVal, ok := os.LookupEnv(id); ok {
			st.logVerbose(fmt.Sprintf("  Environment variable: %q", envVal))
			accepted, err := checkDetectedDir(st, id, envVal, silhouette)
			if err != nil {
				return nil, err
			}
			if accepted {
				return starlark.None, nil
			}
		}

		iterFn, ok := candidateIter.(starlark.Callable)
		if !ok {
			return nil, xerrors.New("candidate_iter must be callable")
		}
		for {
			next, err := starlark.Call(thread, iterFn, starlark.Tuple{}, nil)
			if err != nil {
				return nil, err
			}
			if next == starlark.None {
				break
			}
			candidate, ok := starlark.AsString(next)
			if !ok {
				return nil, xerrors.New("candidate_iter must yield a string or None")
			}
			st.logVerbose(fmt.Sprintf("  Index suggests: %q", candidate))
			accepted, err := checkDetectedDir(st, id, candidate, silhouette)
			if err != nil {
				return nil, err
			}
			if accepted {
				return starlark.None, nil
			}
		}
		return starlark.None, nil
	}
}

func builtinBasedir(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id); err != nil {
			return nil, err
		}
		dir, ok := st.dirs[id]
		if !ok {
			return nil, xerrors.Errorf("no detected base directory identified as %q found; use detect_dir before calling basedir", id)
		}
		st.logVerbose(fmt.Sprintf("Entering %q (%s)", dir, id))
		st.baseDir = &dir
		return starlark.None, nil
	}
}

func builtinCd(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var rel string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "rel", &rel); err != nil {
			return nil, err
		}
		if pathsafety.IsFishy(rel) {
			return nil, xerrors.New("you cannot cd to an absolute path, or use any path component that starts with a \".\"")
		}
		if st.baseDir == nil {
			return nil, xerrors.New("you must use basedir before you can cd")
		}
		next := filepath.Join(*st.baseDir, filepath.FromSlash(rel))
		st.baseDir = &next
		st.logVerbose(fmt.Sprintf("Entering %q", next))
		return starlark.None, nil
	}
}

func builtinSense(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var g string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "glob", &g); err != nil {
			return nil, err
		}
		if st.baseDir == nil {
			return nil, xerrors.New("you must use basedir before you can sense")
		}
		ok, err := sensePredicate(*st.baseDir, g)
		if err != nil {
			return nil, err
		}
		return starlark.Bool(ok), nil
	}
}

func builtinInstall(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var target string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "url", &target); err != nil {
			return nil, err
		}
		if st.baseDir == nil {
			return nil, xerrors.New("you must call basedir before install")
		}
		resolved, err := st.indexURL.Parse(target)
		if err != nil {
			return nil, xerrors.New("install parameter must be a valid URL")
		}
		st.installs = append(st.installs, Install{BaseDir: *st.baseDir, CatalogURL: resolved})
		return starlark.None, nil
	}
}

func builtinDeleteUnmatched(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var target string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "glob", &target); err != nil {
			return nil, err
		}
		if strings.HasSuffix(target, "/") {
			return nil, xerrors.New(`a glob ending in "/" is not allowed here`)
		}
		if err := glob.Validate(target); err != nil {
			return nil, xerrors.Errorf("invalid glob %q: %w", target, err)
		}
		if glob.HasRoot(target) || glob.HasSemanticComponents(target) {
			return nil, xerrors.New(`rooted globs, and semantic components (such as "..") are not allowed`)
		}
		if st.baseDir == nil {
			return nil, xerrors.New("you must call basedir before delete_unmatched")
		}
		st.deletes[*st.baseDir] = append(st.deletes[*st.baseDir], target)
		return starlark.None, nil
	}
}

func builtinDoMessage(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var title, message string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "title", &title, "message", &message); err != nil {
			return nil, err
		}
		st.gui.DoMessage(title, message)
		return starlark.None, nil
	}
}

func builtinDoWarning(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			title, message string
			cancellable    bool
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"title", &title, "message", &message, "cancellable?", &cancellable); err != nil {
			return nil, err
		}
		return starlark.Bool(st.gui.DoWarning(title, message, cancellable)), nil
	}
}

func builtinDoError(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var title, message string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "title", &title, "message", &message); err != nil {
			return nil, err
		}
		st.gui.DoError(title, message)
		return starlark.None, nil
	}
}

func builtinBailOut(st *state) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return nil, ErrBailOut
	}
}
