// Package ui prints run output for humans: colored status lines and the
// end-of-run summary table.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Printer writes human-readable run output. Colors are dropped when the
// destination is not a terminal.
type Printer struct {
	out     io.Writer
	colored bool
}

// NewPrinter creates a Printer for out. Pass nil for stdout.
func NewPrinter(out io.Writer) *Printer {
	colored := false
	if out == nil {
		out = os.Stdout
		colored = isTerminal(os.Stdout)
	}
	return &Printer{out: out, colored: colored}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func (p *Printer) paint(color, s string) string {
	if !p.colored {
		return s
	}
	return color + s + ansiReset
}

// Header prints a bold section header.
func (p *Printer) Header(text string) {
	fmt.Fprintln(p.out, p.paint(ansiBold, text))
}

// Success prints a green check line.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.paint(ansiGreen, "✓ ")+fmt.Sprintf(format, args...))
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.paint(ansiYellow, "! ")+fmt.Sprintf(format, args...))
}

// Error prints a red error line.
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.paint(ansiRed, "✗ ")+fmt.Sprintf(format, args...))
}

// Info prints a cyan info line.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.paint(ansiCyan, "· ")+fmt.Sprintf(format, args...))
}

// SummaryRow is one line of the end-of-run table.
type SummaryRow struct {
	Label string
	Value string
}

// Summary prints the end-of-run counts as an aligned table.
func (p *Printer) Summary(title string, rows []SummaryRow) {
	p.Header(title)
	width := 0
	for _, row := range rows {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}
	for _, row := range rows {
		fmt.Fprintf(p.out, "  %-*s  %s\n", width, row.Label, row.Value)
	}
}

// Count formats an integer for a summary row.
func Count(n int64) string {
	return fmt.Sprintf("%d", n)
}

// Elapsed formats a duration for a summary row.
func Elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
