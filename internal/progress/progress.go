// Package progress renders a terminal progress bar for long runs.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for file processing.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.bar.Finish()
	t.bar.Clear()
}

// FinishError clears the bar and prints an error message to stderr.
func (t *Tracker) FinishError(err error) {
	t.bar.Finish()
	t.bar.Clear()
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", t.label, err)
}
