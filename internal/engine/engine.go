// Package engine orchestrates the full update pipeline spec.md §2
// describes: index → catalogs → differ → deletion planning → downloads →
// deletions → final message. It mirrors original_source/src/main.rs's
// real_main, split into this package's Run plus the component packages it
// calls into, rather than one long function.
package engine

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tupdate/tupdate/internal/catalog"
	"github.com/tupdate/tupdate/internal/deletion"
	"github.com/tupdate/tupdate/internal/differ"
	"github.com/tupdate/tupdate/internal/fetch"
	"github.com/tupdate/tupdate/internal/index"
	"github.com/tupdate/tupdate/internal/ui"
)

// ErrBailOut is returned by Run when the index script called bail_out().
// Per spec.md §7, this is a silent abort: the caller should exit with a
// failure code but must not show an error dialog.
var ErrBailOut = index.ErrBailOut

// Run drives one full update against targetURL, reporting progress and
// errors through gui. The returned error is nil only on complete success.
// Failures are already shown with gui.DoError before Run returns, except
// ErrBailOut (spec.md §7's "silent abort") and a cancellation during the
// local-file check, which are returned without a dialog.
func Run(ctx context.Context, gui ui.Gui, verbose bool, client *fetch.Client, targetURL *url.URL) error {
	entries, deletes, err := determineTasks(ctx, gui, verbose, client, targetURL)
	if err != nil {
		return err
	}
	if entries == nil && deletes == nil {
		return ErrBailOut
	}

	gui.SetProgress("Examining local files...", "", floatPtr(0))
	if err := differ.Run(ctx, gui, verbose, entries); err != nil {
		return err
	}

	deletionList, err := deletion.Plan(deletes, entries)
	if err != nil {
		gui.DoError("Error checking files to delete", err.Error())
		return err
	}
	logPlannedWork(gui, verbose, entries, deletionList)

	if err := fetch.Download(ctx, client, gui, entries); err != nil {
		gui.DoError("Update failed", err.Error())
		return err
	}

	if err := deletion.Execute(deletionList); err != nil {
		gui.DoError("Error during final deletion", err.Error())
		return err
	}

	gui.DoMessage("Update complete", "All files are now up to date.")
	return nil
}

// determineTasks fetches the index, runs it, and then fetches and decodes
// every catalog it declared an install for. It returns (nil, nil, nil) on
// bail_out(), same as index.Run.
func determineTasks(ctx context.Context, gui ui.Gui, verbose bool, client *fetch.Client, targetURL *url.URL) ([]catalog.Entry, index.DeleteSpec, error) {
	gui.SetProgress("Downloading update index...", "", nil)
	indexBody, err := client.GetBytes(ctx, targetURL)
	if err != nil {
		gui.DoError("Download failed", fmt.Sprintf("Couldn't download the update index. The error was:\n%v", err))
		return nil, nil, err
	}

	gui.SetProgress("Determining files to update...", "", nil)
	installs, deletes, err := index.Run(gui, verbose, indexBody, targetURL)
	if err != nil {
		gui.DoError("Script error", fmt.Sprintf("An error occurred while processing the update index. The error was:\n%v", err))
		return nil, nil, err
	}
	if installs == nil && deletes == nil {
		return nil, nil, nil
	}

	var entries []catalog.Entry
	for n, inst := range installs {
		fraction := float64(n) / float64(len(installs))
		gui.SetProgress("Downloading update catalogs...", fmt.Sprintf("%d/%d %s", n+1, len(installs), inst.CatalogURL), &fraction)

		body, err := client.GetBytes(ctx, inst.CatalogURL)
		if err != nil {
			gui.DoError("Download failed", fmt.Sprintf("Couldn't download an update catalog. The error was:\n%v", err))
			return nil, nil, err
		}
		catEntries, err := catalog.Decode(body, inst.CatalogURL, inst.BaseDir)
		if err != nil {
			if verbose {
				gui.Verbose(fmt.Sprintf("%s: %v", inst.CatalogURL, err))
			}
			gui.DoError("Invalid catalog", fmt.Sprintf(
				"A catalog file was invalid. This is a problem with the update server. Try again in a few minutes.\nThe corrupted catalog is: %s", inst.CatalogURL))
			return nil, nil, err
		}
		entries = append(entries, catEntries...)
	}
	return entries, deletes, nil
}

func logPlannedWork(gui ui.Gui, verbose bool, entries []catalog.Entry, deletionList []string) {
	if !verbose {
		return
	}
	for _, d := range deletionList {
		gui.Verbose("will delete: " + d)
	}
	for _, e := range entries {
		if e.NeedsDownload {
			gui.Verbose(fmt.Sprintf("will download: %s <- %s", e.DstPath, e.SrcURL))
		}
	}
}

func floatPtr(f float64) *float64 { return &f }
