/*
Package audit records one human-readable block per completed run.

PURPOSE:
  The audit log is the durable trail of what each run attempted: start and
  end time, elapsed time, row counts, and an overall status line. It lives
  outside the relational store and is written only after the store commit,
  so a run that dies before committing leaves no block.

FORMAT:
  Plain UTF-8 text, one "Key: value" per line, blocks separated by a line of
  dashes. Blocks are only ever appended.

    Run ID: 5f0c...
    Operation: load
    Input: reviews.csv
    Start time: 2024-01-01T10:00:00.000000000Z
    End time: 2024-01-01T10:00:01.500000000Z
    Elapsed time: 1.5s (0.03 minutes)
    Rows processed: 1
    Rows with errors: 1
      malformed_version: 1
    Status: errors occurred
    ------------------------------------------------------------------------

SEE ALSO:
  - sink.go:            FileSink (append-only, create-if-absent)
  - review/ingest.go:   Produces the Tally summarized here
*/
package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Delimiter separates blocks in the log sink.
const Delimiter = "--------------------------------------------------------------------------------------"

// Status lines.
const (
	StatusSucceeded      = "succeeded"
	StatusErrorsOccurred = "errors occurred"
)

// timeLayout renders start/end times with sub-second precision.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunSummary is the audit artifact of one run. It is never stored in the
// relational store and never mutated once appended.
type RunSummary struct {
	RunID          string
	Operation      string // "load" or "clean"
	Input          string
	Start          time.Time
	End            time.Time
	Succeeded      int
	Failed         int
	Skipped        int
	FailuresByKind map[string]int
}

// Elapsed is End minus Start, clamped at zero.
func (s RunSummary) Elapsed() time.Duration {
	d := s.End.Sub(s.Start)
	if d < 0 {
		return 0
	}
	return d
}

// OK reports whether no row failed.
func (s RunSummary) OK() bool { return s.Failed == 0 }

// Status returns the overall status line.
func (s RunSummary) Status() string {
	if s.OK() {
		return StatusSucceeded
	}
	return StatusErrorsOccurred
}

// Format renders the summary as one delimited block.
func Format(s RunSummary) string {
	var b strings.Builder

	if s.RunID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", s.RunID)
	}
	if s.Operation != "" {
		fmt.Fprintf(&b, "Operation: %s\n", s.Operation)
	}
	if s.Input != "" {
		fmt.Fprintf(&b, "Input: %s\n", s.Input)
	}
	fmt.Fprintf(&b, "Start time: %s\n", s.Start.Format(timeLayout))
	fmt.Fprintf(&b, "End time: %s\n", s.End.Format(timeLayout))
	elapsed := s.Elapsed()
	fmt.Fprintf(&b, "Elapsed time: %s (%.2f minutes)\n", elapsed, elapsed.Minutes())
	fmt.Fprintf(&b, "Rows processed: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Rows with errors: %d\n", s.Failed)

	kinds := make([]string, 0, len(s.FailuresByKind))
	for k := range s.FailuresByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %s: %d\n", k, s.FailuresByKind[k])
	}

	if s.Skipped > 0 {
		fmt.Fprintf(&b, "Rows skipped: %d\n", s.Skipped)
	}
	fmt.Fprintf(&b, "Status: %s\n", s.Status())
	b.WriteString(Delimiter)
	b.WriteString("\n")
	return b.String()
}

// Clock returns the current time. Replaced in tests.
type Clock func() time.Time

// Run measures one run: Begin before the loop, Finish after the commit.
type Run struct {
	clock   Clock
	summary RunSummary
}

// Begin records the start time.
func Begin(clock Clock, runID, operation, input string) *Run {
	if clock == nil {
		clock = time.Now
	}
	return &Run{
		clock: clock,
		summary: RunSummary{
			RunID:     runID,
			Operation: operation,
			Input:     input,
			Start:     clock(),
		},
	}
}

// Start returns the recorded start time.
func (r *Run) Start() time.Time { return r.summary.Start }

// Finish records the end time and the final counts.
func (r *Run) Finish(succeeded, failed, skipped int, byKind map[string]int) RunSummary {
	r.summary.End = r.clock()
	r.summary.Succeeded = succeeded
	r.summary.Failed = failed
	r.summary.Skipped = skipped
	if len(byKind) > 0 {
		r.summary.FailuresByKind = make(map[string]int, len(byKind))
		for k, n := range byKind {
			r.summary.FailuresByKind[k] = n
		}
	}
	return r.summary
}
