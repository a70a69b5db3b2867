package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/prlens/prlens/internal/progress"
)

// Spinner wraps briandowns/spinner with TTY awareness. On a TTY it
// animates; piped output gets plain progress lines instead.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a new spinner that only animates on a TTY.
func NewSpinner(message string) *Spinner {
	enabled := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if !enabled {
		return &Spinner{enabled: false}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	return &Spinner{s: s, enabled: true}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	if sp.enabled && sp.s != nil {
		sp.s.Start()
	}
}

// Stop ends the spinner animation.
func (sp *Spinner) Stop() {
	if sp.enabled && sp.s != nil {
		sp.s.Stop()
	}
}

// UpdateMessage changes the spinner message.
func (sp *Spinner) UpdateMessage(message string) {
	if sp.enabled && sp.s != nil {
		sp.s.Suffix = " " + message
		return
	}
	fmt.Fprintln(os.Stderr, message)
}

// OnEvent returns a progress callback that feeds pipeline events into
// the spinner message.
func (sp *Spinner) OnEvent() progress.Func {
	return func(ev progress.Event) {
		sp.UpdateMessage(ev.Message)
	}
}
