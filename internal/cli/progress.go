package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a spinner while a long-running operation is in flight.
type Progress struct {
	s *spinner.Spinner
}

// StartProgress starts a spinner on w with message. It shows nothing in quiet mode
// or when output is JSON or YAML, so structured output stays parseable.
func StartProgress(w io.Writer, options Options, message string) *Progress {
	if options.Quiet || options.Format != OutputFormatTable {
		return &Progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &Progress{s: s}
}

// Update replaces the spinner message.
func (p *Progress) Update(message string) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = " " + message
	p.s.Unlock()
}

// Fail stops the spinner leaving message in red.
func (p *Progress) Fail(message string) {
	if p.s == nil {
		return
	}
	p.s.FinalMSG = text.FgRed.Sprint(message) + "\n"
	p.s.Stop()
}

// Stop stops the spinner and clears it.
func (p *Progress) Stop() {
	if p.s == nil {
		return
	}
	p.s.Stop()
}
