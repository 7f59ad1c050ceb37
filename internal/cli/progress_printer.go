package cli

import (
	"fmt"

	"ytbatch/internal/progress"
)

// progressPrinter renders BatchProgress snapshots to stdout as a single
// overwritten line, the way a long-running CLI download reports progress.
type progressPrinter struct {
	lastLineLen int
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{}
}

// OnProgress is the callback to pass to Orchestrator.Subscribe.
func (p *progressPrinter) OnProgress(snapshot progress.BatchProgress) {
	title := "-"
	if snapshot.CurrentTitle != nil {
		title = *snapshot.CurrentTitle
	}

	eta := "-"
	if snapshot.ETASeconds != nil {
		eta = fmt.Sprintf("%.0fs", *snapshot.ETASeconds)
	}

	line := fmt.Sprintf("[%s] %.0f%% (%d/%d done, %d failed, %d active) %s eta=%s",
		snapshot.Status, snapshot.OverallProgress*100,
		snapshot.CompletedCount, snapshot.Total, snapshot.FailedCount, snapshot.Active,
		title, eta)

	p.printLine(line)
}

func (p *progressPrinter) printLine(line string) {
	pad := p.lastLineLen - len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Printf("\r%s%*s", line, pad, "")
	p.lastLineLen = len(line)
}

func (p *progressPrinter) printFinal(summary progress.BatchSummary) {
	p.printLine("")
	fmt.Printf("\rbatch %s: %d/%d completed, %d failed, %d cancelled (%.1f%% success, %.1fs elapsed)\n",
		summary.Status, summary.Completed, summary.Total, summary.Failed, summary.Cancelled,
		summary.SuccessRate, summary.ElapsedSeconds)
}
