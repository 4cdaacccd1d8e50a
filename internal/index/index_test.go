package index

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tupdate/tupdate/internal/ui"
)

// recordingGui is a minimal ui.Gui that records every call, for assertions,
// without any actual console or terminal interaction.
type recordingGui struct {
	verbose  []string
	messages []string
	warnings []string
	errors   []string
}

func (g *recordingGui) SetProgress(task, subtask string, fraction *float64) {}
func (g *recordingGui) DoMessage(title, message string)                    { g.messages = append(g.messages, title+": "+message) }
func (g *recordingGui) DoWarning(title, message string, canCancel bool) bool {
	g.warnings = append(g.warnings, title+": "+message)
	return true
}
func (g *recordingGui) DoError(title, message string) { g.errors = append(g.errors, title+": "+message) }
func (g *recordingGui) Verbose(message string)        { g.verbose = append(g.verbose, message) }

var _ ui.Gui = (*recordingGui)(nil)

func mustIndexURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestDetectDirViaEnvironmentAndInstall(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TUPDATE_TEST_HOME", home)

	script := []byte(`
def no_candidates():
    return None

detect_dir("TUPDATE_TEST_HOME", "home directory", no_candidates, {})
basedir("TUPDATE_TEST_HOME")
install("cat")
delete_unmatched("tmp/*")
`)

	gui := &recordingGui{}
	installs, deletes, err := Run(gui, true, script, mustIndexURL(t, "http://example.com/index"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(installs) != 1 {
		t.Fatalf("want 1 install, got %d", len(installs))
	}
	if installs[0].BaseDir != home {
		t.Errorf("BaseDir = %q, want %q", installs[0].BaseDir, home)
	}
	if got, want := installs[0].CatalogURL.String(), "http://example.com/cat"; got != want {
		t.Errorf("CatalogURL = %q, want %q", got, want)
	}
	if got := deletes[home]; len(got) != 1 || got[0] != "tmp/*" {
		t.Errorf("deletes[home] = %v, want [tmp/*]", got)
	}
}

func TestDetectDirViaCandidateIterSkipsRejectedCandidates(t *testing.T) {
	rejectDir := t.TempDir() // has no marker.txt: sense glob rejects it
	acceptDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(acceptDir, "marker.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	script := []byte(`
def make_iter(first, second):
    calls = {"n": 0}
    def iter():
        calls["n"] += 1
        if calls["n"] == 1:
            return first
        elif calls["n"] == 2:
            return second
        else:
            return None
    return iter

detect_dir("ROOT", "root dir", make_iter("` + filepath.ToSlash(rejectDir) + `", "` + filepath.ToSlash(acceptDir) + `"), {"sense": ["marker.txt"]})
basedir("ROOT")
install("cat")
`)

	gui := &recordingGui{}
	installs, _, err := Run(gui, true, script, mustIndexURL(t, "http://example.com/index"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(installs) != 1 || installs[0].BaseDir != acceptDir {
		t.Fatalf("installs = %+v, want base dir %q", installs, acceptDir)
	}

	sawRejection := false
	for _, line := range gui.verbose {
		if strings.Contains(line, "Rejected") {
			sawRejection = true
		}
	}
	if !sawRejection {
		t.Error("expected a verbose rejection message for the first candidate")
	}
}

func TestBailOutIsSilent(t *testing.T) {
	script := []byte(`bail_out()`)
	gui := &recordingGui{}
	installs, deletes, err := Run(gui, false, script, mustIndexURL(t, "http://example.com/index"))
	if err != nil {
		t.Fatalf("Run returned error on bail_out: %v", err)
	}
	if installs != nil || deletes != nil {
		t.Errorf("expected no installs/deletes after bail_out, got %+v / %+v", installs, deletes)
	}
	if len(gui.errors) != 0 {
		t.Errorf("bail_out must not raise a do_error dialog, got %v", gui.errors)
	}
}

func TestScriptErrorIsReported(t *testing.T) {
	script := []byte(`install("cat")`) // no basedir set first
	gui := &recordingGui{}
	_, _, err := Run(gui, false, script, mustIndexURL(t, "http://example.com/index"))
	if err == nil {
		t.Fatal("expected an error when install() is called before basedir()")
	}
}

func TestCdRejectsFishyPath(t *testing.T) {
	script := []byte(`
def no_candidates():
    return None
detect_dir("TUPDATE_TEST_HOME2", "home", no_candidates, {})
basedir("TUPDATE_TEST_HOME2")
cd("../evil")
`)
	t.Setenv("TUPDATE_TEST_HOME2", t.TempDir())
	gui := &recordingGui{}
	_, _, err := Run(gui, false, script, mustIndexURL(t, "http://example.com/index"))
	if err == nil {
		t.Fatal("expected cd(\"../evil\") to fail")
	}
}

func TestCheckDetectedDirRejectsRelativeCandidate(t *testing.T) {
	script := []byte(`
def one_relative():
    state = {"done": False}
    def iter():
        if state["done"]:
            return None
        state["done"] = True
        return "relative/path"
    return iter
detect_dir("TUPDATE_TEST_RELATIVE", "relative", one_relative(), {})
basedir("TUPDATE_TEST_RELATIVE")
`)
	os.Unsetenv("TUPDATE_TEST_RELATIVE")
	gui := &recordingGui{}
	_, _, err := Run(gui, false, script, mustIndexURL(t, "http://example.com/index"))
	if err == nil {
		t.Fatal("expected basedir to fail: detect_dir never accepted a relative candidate")
	}
}

func TestSenseOnCurrentBaseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "present.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TUPDATE_TEST_SENSE", dir)

	script := []byte(`
def no_candidates():
    return None
detect_dir("TUPDATE_TEST_SENSE", "sense dir", no_candidates, {})
basedir("TUPDATE_TEST_SENSE")
if not sense("present.txt"):
    fail("expected present.txt to be sensed")
if sense("absent.txt"):
    fail("did not expect absent.txt to be sensed")
`)
	gui := &recordingGui{}
	if _, _, err := Run(gui, false, script, mustIndexURL(t, "http://example.com/index")); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
