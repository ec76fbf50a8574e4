// Package progress provides count-based progress bars for the scan and
// verification passes. Transfer progress is aria2c's own console output.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter reports progress for a counted pass over files.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
}

// Bar renders a progress bar on stderr.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar creates a progress bar reporter.
func NewBar() *Bar {
	return &Bar{}
}

// Start initializes the bar with a total count and description.
func (p *Bar) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the current count.
func (p *Bar) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the bar.
func (p *Bar) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Silent discards all progress updates. Used in quiet mode and tests.
type Silent struct{}

func (Silent) Start(int64, string) {}
func (Silent) Update(int64)        {}
func (Silent) Finish()             {}
