// Package report renders batch results for people: a short digest and a
// plain-text report with a stable field order.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fentz26/archivist/internal/models"
)

// TimeLayout is used for every timestamp in a report.
const TimeLayout = "2006-01-02 15:04:05"

// Unclassified stands in for a missing decision.
const Unclassified = "unclassified"

// Summary returns a short multi-line digest of r.
func Summary(r *models.BatchResult) string {
	if r == nil {
		return "No batch has been run."
	}
	if r.Failure != nil {
		return fmt.Sprintf("Batch aborted: %s", r.Failure.Error())
	}
	if r.Total == 0 {
		return "No entries to process."
	}

	var classifying time.Duration
	for _, e := range r.Entries {
		classifying += e.Elapsed
	}
	avg := classifying / time.Duration(r.Total)

	var b strings.Builder
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Total entries: %d\n", r.Total)
	fmt.Fprintf(&b, "- Succeeded:     %d\n", r.Succeeded)
	fmt.Fprintf(&b, "- Failed:        %d\n", r.Failed)
	fmt.Fprintf(&b, "- Batch time:    %s\n", seconds(r.Duration))
	fmt.Fprintf(&b, "- Average:       %s per entry", seconds(avg))
	return b.String()
}

// Write renders the full report for r to w. Output depends only on r.
func Write(w io.Writer, r *models.BatchResult) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Archive Report")
	fmt.Fprintln(bw, strings.Repeat("=", 50))
	fmt.Fprintf(bw, "Source:    %s\n", r.Source)
	fmt.Fprintf(bw, "Batch:     %s\n", r.ID)
	fmt.Fprintf(bw, "Finished:  %s\n", r.FinishedAt.Format(TimeLayout))
	fmt.Fprintf(bw, "Total:     %d\n", r.Total)
	fmt.Fprintf(bw, "Succeeded: %d\n", r.Succeeded)
	fmt.Fprintf(bw, "Failed:    %d\n", r.Failed)
	fmt.Fprintf(bw, "Duration:  %s\n", seconds(r.Duration))
	if r.Failure != nil {
		fmt.Fprintf(bw, "Aborted:   %s\n", r.Failure.Error())
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Entries")
	fmt.Fprintln(bw, strings.Repeat("-", 30))
	for _, e := range r.Entries {
		writeEntry(bw, e)
	}

	return bw.Flush()
}

// WriteFile writes the report for r to path, replacing any existing file.
func WriteFile(path string, r *models.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func writeEntry(w io.Writer, e *models.Entry) {
	fmt.Fprintf(w, "Name:     %s\n", e.Name)
	fmt.Fprintf(w, "Kind:     %s\n", e.Kind)
	fmt.Fprintf(w, "Decision: %s\n", Decision(e))
	target := e.TargetPath
	if target == "" {
		target = "-"
	}
	fmt.Fprintf(w, "Target:   %s\n", target)
	fmt.Fprintf(w, "Elapsed:  %s\n", seconds(e.Elapsed))
	if e.Failure != nil {
		fmt.Fprintf(w, "Error:    %s\n", e.Failure.Error())
	}
	fmt.Fprintln(w)
}

// Decision renders an entry's decision, or Unclassified.
func Decision(e *models.Entry) string {
	if e.Decision == nil {
		return Unclassified
	}
	return e.Decision.String()
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
