// Package ui defines the Gui contract the update engine requires from any
// front end (spec.md §6) and a small registry of concrete backends selected
// with --gui.
package ui

import "fmt"

// Gui is the external collaborator spec.md §6 describes: progress,
// messages, warnings, errors, and an optional verbose diagnostic stream.
// Any do_* call may briefly take over the display. The registered backends
// do not redraw the most recent SetProgress state afterward; it shows again
// only on the next SetProgress call.
type Gui interface {
	// SetProgress updates the current task/subtask text and, unless
	// fraction is nil (indeterminate progress), a completion fraction in
	// [0,1].
	SetProgress(task, subtask string, fraction *float64)
	// DoMessage shows an acknowledgement-only message.
	DoMessage(title, message string)
	// DoWarning shows a message with an OK button and, if canCancel, a
	// Cancel button. It returns true for OK, false for Cancel. Backends
	// that don't implement cancellation always return true.
	DoWarning(title, message string, canCancel bool) bool
	// DoError shows an acknowledgement-only error message.
	DoError(title, message string)
	// Verbose emits a diagnostic line. Backends print it unconditionally;
	// callers only call it when verbose mode is on.
	Verbose(message string)
}

// Factory builds a Gui given whether --pause was explicitly set (and to
// what), so that backends which support pausing after dialogs can honor it.
type Factory func(pause *bool) Gui

// Backend names one registered Gui implementation.
type Backend struct {
	Name        string
	Description string
	New         Factory
}

var registry []Backend

func register(b Backend) {
	registry = append(registry, b)
}

// Backends returns every registered backend, in registration order.
func Backends() []Backend {
	out := make([]Backend, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a registered backend by name.
func Lookup(name string) (Backend, bool) {
	for _, b := range registry {
		if b.Name == name {
			return b, true
		}
	}
	return Backend{}, false
}

// HelpText renders the "--gui help" listing spec.md's supplemented-features
// section describes: one line per backend, name first.
func HelpText() string {
	s := "Available GUIs:\n"
	for _, b := range registry {
		s += fmt.Sprintf("    %s: %s\n", b.Name, b.Description)
	}
	return s
}
