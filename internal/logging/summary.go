package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/transfer"
)

// Printer writes human-readable summaries for the terminal.
type Printer struct {
	w     io.Writer
	quiet bool
}

// NewPrinter creates a printer. A quiet printer only reports failures.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, quiet: quiet}
}

// PrintJob prints a summary of a finished transfer job
func (p *Printer) PrintJob(job *transfer.Job) {
	if p.quiet && job.Committed() {
		return
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "=== Summary ===")
	fmt.Fprintf(p.w, "Job: %s\n", job.ID)
	fmt.Fprintf(p.w, "Result: %s\n", job.Phase)
	if job.SourceFingerprint != nil {
		fmt.Fprintf(p.w, "Files: %d (%s)\n", job.SourceFingerprint.Len(), humanize.IBytes(uint64(job.SourceFingerprint.TotalBytes())))
	}
	if job.Plan != nil {
		fmt.Fprintf(p.w, "Capacity: %s\n", job.Plan)
	}
	if job.ContainerPath != "" && job.ContainerSize > 0 {
		fmt.Fprintf(p.w, "Container: %s (%s)\n", job.ContainerPath, humanize.IBytes(job.ContainerSize))
	}
	if job.Divergence != nil && !job.Divergence.IsClean() {
		fmt.Fprintln(p.w, job.Divergence.String())
	}
	if job.Err != nil {
		fmt.Fprintf(p.w, "Error: %v\n", job.Err)
	}
	for _, err := range job.RollbackErrors {
		fmt.Fprintf(p.w, "Rollback error: %v\n", err)
	}
	for _, w := range job.Warnings {
		fmt.Fprintf(p.w, "Warning: %s\n", w)
	}
	if !job.FinishedAt.IsZero() {
		fmt.Fprintf(p.w, "Duration: %s\n", job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond))
	}
}

// PrintPlan prints the outcome of a capacity check
func (p *Printer) PrintPlan(plan capacity.Plan) {
	if p.quiet && plan.Sufficient {
		return
	}
	verdict := "sufficient"
	if !plan.Sufficient {
		verdict = "insufficient"
	}
	fmt.Fprintf(p.w, "Capacity %s: %s\n", verdict, plan)
}

// PrintComparison prints a verification result
func (p *Printer) PrintComparison(r diff.Report) {
	if p.quiet && r.IsClean() {
		return
	}
	fmt.Fprintln(p.w, r.String())
}
