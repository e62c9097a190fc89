package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Success("followed %s", "octocat")
	p.Warn("skipped %s", "spambot")
	p.Error("failed %s", "ghost")
	p.Info("processed %d accounts", 3)

	output := buf.String()
	for _, want := range []string{
		"✓ followed octocat",
		"! skipped spambot",
		"✗ failed ghost",
		"· processed 3 accounts",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(output, "\033[") {
		t.Error("color codes emitted for non-terminal writer")
	}
}

func TestSummaryAlignment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Summary("Run summary", []SummaryRow{
		{Label: "Followed", Value: "12"},
		{Label: "Skipped", Value: "40"},
		{Label: "Errors", Value: "1"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[0] != "Run summary" {
		t.Errorf("header = %q", lines[0])
	}
	// Values align on the widest label.
	for _, want := range []string{
		"  Followed  12",
		"  Skipped   40",
		"  Errors    1",
	} {
		found := false
		for _, line := range lines[1:] {
			if line == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing row %q in %q", want, lines[1:])
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count(42); got != "42" {
		t.Errorf("Count(42) = %q", got)
	}
}

func TestElapsed(t *testing.T) {
	d := 1500*time.Millisecond + 300*time.Microsecond
	if got := Elapsed(d); got != "1.5s" {
		t.Errorf("Elapsed() = %q", got)
	}
}
