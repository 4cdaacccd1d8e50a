// Command tupdate synchronises a local directory tree with a remote
// manifest, per spec.md. It wires together internal/config,
// internal/ui, internal/fetch, and internal/engine; main itself owns only
// flag parsing and the process exit code, the way cmd/distri/distri.go's
// funcmain/main split works.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/tupdate/tupdate"
	"github.com/tupdate/tupdate/internal/config"
	"github.com/tupdate/tupdate/internal/engine"
	"github.com/tupdate/tupdate/internal/fetch"
	"github.com/tupdate/tupdate/internal/ui"
)

var (
	guiName = flag.String("gui", "", `which GUI backend to use; "help" lists them`)
	verbose = flag.Bool("verbose", false, "output extra status information about what we're doing and why")
	pause   = flag.Bool("pause", false, "pause and wait for a response after every dialog, if the selected GUI supports it")
)

func run() int {
	flag.Parse()

	if *guiName == "help" {
		fmt.Print(ui.HelpText())
		return 0
	}

	backendName := *guiName
	if backendName == "" {
		backendName = "console"
	}
	backend, ok := ui.Lookup(backendName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown GUI %q; use --gui help to list available GUIs\n", backendName)
		return 1
	}

	var explicitPause *bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "pause" {
			p := *pause
			explicitPause = &p
		}
	})
	gui := backend.New(explicitPause)

	var cliURL *url.URL
	if args := flag.Args(); len(args) > 0 {
		u, err := url.Parse(args[0])
		if err != nil {
			gui.DoError("Invalid URL", fmt.Sprintf("%q is not a valid URL: %v", args[0], err))
			return 1
		}
		cliURL = u
	}

	targetURL := config.FindTargetURL(gui, *verbose, cliURL)
	if targetURL == nil {
		gui.DoError("No URL specified", fmt.Sprintf(
			"Couldn't determine what URL to update from. Either pass one on the command line, or create a %s.", config.FileName))
		return 1
	}
	if !config.ValidScheme(targetURL.Scheme) {
		fmt.Fprintf(os.Stderr, "%q is not a supported URL scheme. Only http and https are supported.\n", targetURL.Scheme)
		return 1
	}

	ctx, cancel := tupdate.InterruptibleContext()
	defer cancel()

	client := fetch.NewClient()
	if err := engine.Run(ctx, gui, *verbose, client, targetURL); err != nil {
		// engine.ErrBailOut is spec.md §7's silent abort: still a failure
		// exit code, but no error dialog — engine.Run already skipped that.
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
