// Package ui renders human-facing terminal output. Structured logs go through
// pkg/logger; this package only prints what the user asked to see.
package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes styled lines to w
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer; a nil writer means stdout
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w}
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Banner prints a boxed title
func (p *Printer) Banner(title string) {
	fmt.Fprintln(p.w, bannerStyle.Render(Highlight(title)))
}

// Error prints an error message, with err appended when given
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.w, Error("✗ "+msg))
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, Success("✓ "+msg))
}

// Info prints a label/value pair
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.w, "%s: %s\n", Label(label), Value(value))
}

// Warning prints a warning
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.w, Warning("! "+fmt.Sprintf(format, args...)))
}

// Plain prints an unstyled line
func (p *Printer) Plain(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Highlight prints an emphasised line
func (p *Printer) Highlight(msg string) {
	fmt.Fprintln(p.w, Highlight(msg))
}
