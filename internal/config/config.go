// Package config resolves the target update URL when none is given on the
// command line, per spec.md §6: a tupdate.conf file beside the executable,
// then one in the working directory, whose first "URL=" line wins.
package config

import (
	"bufio"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tupdate/tupdate/internal/ui"
)

// FileName is the config file's fixed name.
const FileName = "tupdate.conf"

// FindTargetURL resolves the URL to update from, checking (in order): the
// URL already supplied on the command line, a tupdate.conf beside the
// running executable, and a tupdate.conf in the current directory. The
// scheme of the returned URL is not checked here; see ValidScheme.
func FindTargetURL(gui ui.Gui, verbose bool, cliURL *url.URL) *url.URL {
	if cliURL != nil {
		return cliURL
	}
	if exe, err := os.Executable(); err == nil {
		if u := tryLoadFrom(gui, verbose, filepath.Join(filepath.Dir(exe), FileName)); u != nil {
			return u
		}
	}
	return tryLoadFrom(gui, verbose, FileName)
}

// ValidScheme reports whether scheme is one tupdate is willing to fetch
// indexes and catalogs over.
func ValidScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

func tryLoadFrom(gui ui.Gui, verbose bool, path string) *url.URL {
	if verbose {
		gui.Verbose("Looking for update URL in: " + path)
	}
	f, err := os.Open(path)
	if err != nil {
		if verbose {
			gui.Verbose("  " + err.Error())
		}
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		rest, ok := strings.CutPrefix(line, "URL=")
		if !ok {
			continue
		}
		u, err := url.Parse(rest)
		if err != nil {
			if verbose {
				gui.Verbose("  File exists, but its URL= line does not contain a valid URL")
			}
			return nil
		}
		if verbose {
			gui.Verbose("  " + u.String())
		}
		return u
	}
	if verbose {
		gui.Verbose("  File exists, but has no URL= line")
	}
	return nil
}
