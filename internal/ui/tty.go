package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

func init() {
	register(Backend{
		Name:        "tty",
		Description: "Interactive terminal experience: a single status line is redrawn in place. Falls back to console-style output when stdout is not a terminal.",
		New:         newTTYGui,
	})
}

// ttyGui redraws a single status line in place, the way
// internal/batch's scheduler.updateStatus overwrites a fixed-height status
// block with a leading cursor-up escape sequence. Unlike the scheduler (one
// line per worker), tupdate only ever has one thing happening at a time, so
// it redraws exactly one line.
type ttyGui struct {
	mu          sync.Mutex
	pause       bool
	interactive bool
	lastLen     int
	reader      *bufio.Reader
}

func newTTYGui(pause *bool) Gui {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	want := interactive
	if pause != nil {
		want = *pause
	}
	return &ttyGui{pause: want, interactive: interactive, reader: bufio.NewReader(os.Stdin)}
}

func (g *ttyGui) redraw(line string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.interactive {
		fmt.Println(line)
		return
	}
	if diff := g.lastLen - len(line); diff > 0 {
		line += strings.Repeat(" ", diff)
	}
	fmt.Printf("\r%s", line)
	g.lastLen = len(line)
}

func (g *ttyGui) SetProgress(task, subtask string, fraction *float64) {
	line := task
	if subtask != "" {
		line += " - " + subtask
	}
	if fraction != nil {
		line = fmt.Sprintf("[%3.0f%%] %s", *fraction*100, line)
	}
	g.redraw(line)
}

func (g *ttyGui) finishLine() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.interactive && g.lastLen > 0 {
		fmt.Println()
		g.lastLen = 0
	}
}

func (g *ttyGui) DoMessage(title, message string) {
	g.finishLine()
	fmt.Printf("%s: %s\n", title, message)
	g.maybeWaitForEnter()
}

func (g *ttyGui) DoWarning(title, message string, canCancel bool) bool {
	g.finishLine()
	fmt.Printf("%s: %s\n", title, message)
	if !canCancel || !g.interactive {
		return true
	}
	fmt.Print("Proceed? [Y/n] ")
	line, _ := g.reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "" || line == "y" || line == "yes"
}

func (g *ttyGui) DoError(title, message string) {
	g.finishLine()
	fmt.Printf("%s: %s\n", title, message)
	g.maybeWaitForEnter()
}

func (g *ttyGui) Verbose(message string) {
	g.finishLine()
	fmt.Fprintln(os.Stderr, message)
}

func (g *ttyGui) maybeWaitForEnter() {
	if !g.pause {
		return
	}
	fmt.Print("Press Enter to continue... ")
	g.reader.ReadString('\n')
}
