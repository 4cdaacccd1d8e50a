package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func init() {
	register(Backend{
		Name:        "console",
		Description: "No progress bar. Outputs all messages directly to stdout and assumes OK on prompts unless run interactively.",
		New:         newConsoleGui,
	})
}

// consoleGui is the default, headless-friendly backend: it never redraws a
// line, so it is safe to pipe to a log file. It mirrors the "batch" backend
// of the original implementation, with the --pause and cancellable-warning
// behavior spec.md's supplemented features call for layered on top.
type consoleGui struct {
	pause  bool
	reader *bufio.Reader
}

func newConsoleGui(pause *bool) Gui {
	want := term.IsTerminal(int(os.Stdin.Fd()))
	if pause != nil {
		want = *pause
	}
	return &consoleGui{pause: want, reader: bufio.NewReader(os.Stdin)}
}

func (g *consoleGui) SetProgress(task, subtask string, fraction *float64) {
	if fraction == nil {
		fmt.Printf("... %s %s\n", task, subtask)
		return
	}
	fmt.Printf("%3.0f%% %s %s\n", *fraction*100, task, subtask)
}

func (g *consoleGui) DoMessage(title, message string) {
	fmt.Printf(": %s\n", message)
	g.maybeWaitForEnter()
}

func (g *consoleGui) DoWarning(title, message string, canCancel bool) bool {
	fmt.Printf("? %s\n", message)
	if !canCancel || !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Print("Proceed? [Y/n] ")
	line, _ := g.reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "" || line == "y" || line == "yes"
}

func (g *consoleGui) DoError(title, message string) {
	fmt.Printf("! %s\n", message)
	g.maybeWaitForEnter()
}

func (g *consoleGui) Verbose(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func (g *consoleGui) maybeWaitForEnter() {
	if !g.pause {
		return
	}
	fmt.Print("Press Enter to continue... ")
	g.reader.ReadString('\n')
}
