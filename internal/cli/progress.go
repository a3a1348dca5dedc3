package cli

import (
	"fmt"
	"io"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/schollz/progressbar/v3"
)

// SearchProgress renders AutoSearch rounds as a bounded progress bar.
type SearchProgress struct {
	bar *progressbar.ProgressBar
}

// NewSearchProgress creates a bar over at most maxIterations rounds.
func NewSearchProgress(w io.Writer, maxIterations int) *SearchProgress {
	bar := progressbar.NewOptions(maxIterations,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Searching rules...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				common.LogWarn("failed to write newline after progress bar", common.Fields{"error": err.Error()})
			}
		}),
	)
	return &SearchProgress{bar: bar}
}

// Observe is an engine iteration callback.
func (p *SearchProgress) Observe(it mining.Iteration) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]Searching rules...[reset] conf %.2f supp %.3f len %d: %d rules",
		it.Confidence, it.Support, it.MaxLength, it.Rules))
	if err := p.bar.Set(it.Number); err != nil {
		common.LogWarn("failed to update progress bar", common.Fields{"error": err.Error()})
	}
}

// Finish completes the bar regardless of how many rounds ran.
func (p *SearchProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		common.LogWarn("failed to finish progress bar", common.Fields{"error": err.Error()})
	}
}

// NewImportProgress returns a spinner counting imported rows and its callback.
func NewImportProgress(w io.Writer) (*progressbar.ProgressBar, func(rows int)) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Reading rows"),
		progressbar.OptionSpinnerType(14),
	)
	return bar, func(rows int) {
		if err := bar.Set(rows); err != nil {
			common.LogWarn("failed to update progress bar", common.Fields{"error": err.Error()})
		}
	}
}
