// Package cli provides shared formatting helpers for merakiops output.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// colorEnabled is true when stdout is a terminal and NO_COLOR is unset
// (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// SetColor forces colour on or off.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func wrap(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + "\033[0m"
}

// Green wraps s in ANSI green when colour is enabled.
func Green(s string) string { return wrap("\033[32m", s) }

// Yellow wraps s in ANSI yellow when colour is enabled.
func Yellow(s string) string { return wrap("\033[33m", s) }

// Red wraps s in ANSI red when colour is enabled.
func Red(s string) string { return wrap("\033[31m", s) }

// Bold wraps s in ANSI bold when colour is enabled.
func Bold(s string) string { return wrap("\033[1m", s) }

// Dim wraps s in ANSI dim when colour is enabled.
func Dim(s string) string { return wrap("\033[2m", s) }

// DotPad pads name with dots to the given width.
// Example: DotPad("Q2XX-AAAA-BBBB", 24) → "Q2XX-AAAA-BBBB ........."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// Progress tracks position in a sequential loop and estimates the time left
// from the average duration of completed steps.
type Progress struct {
	Total int
	done  int
	start time.Time
	now   func() time.Time
}

// NewProgress starts a progress counter for total steps.
func NewProgress(total int) *Progress {
	return &Progress{Total: total, start: time.Now(), now: time.Now}
}

// Step marks one more step complete.
func (p *Progress) Step() {
	p.done++
}

// ETA is the estimated time remaining, zero before the first step completes.
func (p *Progress) ETA() time.Duration {
	if p.done == 0 || p.done >= p.Total {
		return 0
	}
	per := p.now().Sub(p.start) / time.Duration(p.done)
	return per * time.Duration(p.Total-p.done)
}

// String renders "[done/total] ETA 1m20s".
func (p *Progress) String() string {
	s := fmt.Sprintf("[%d/%d]", p.done, p.Total)
	if eta := p.ETA(); eta > 0 {
		s += " ETA " + eta.Round(time.Second).String()
	}
	return s
}
