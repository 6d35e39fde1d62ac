package review

import (
	"errors"
	"sort"
)

// FailureKind classifies a row-scoped failure.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureMalformedVersion FailureKind = "malformed_version"
	FailureMalformedDate    FailureKind = "malformed_date"
	FailureMalformedNumber  FailureKind = "malformed_number"
	FailureMissingField     FailureKind = "missing_field"
	FailureUnreadable       FailureKind = "unreadable_record"
	FailureDuplicateReview  FailureKind = "duplicate_review"
	FailureStorage          FailureKind = "storage"
)

// Classify maps an error to its FailureKind. Errors outside the row-scoped
// taxonomy are reported as storage failures.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrMalformedVersion):
		return FailureMalformedVersion
	case errors.Is(err, ErrMalformedDate):
		return FailureMalformedDate
	case errors.Is(err, ErrMalformedNumber):
		return FailureMalformedNumber
	case errors.Is(err, ErrMissingField):
		return FailureMissingField
	case errors.Is(err, ErrUnreadableRecord):
		return FailureUnreadable
	case errors.Is(err, ErrDuplicateReview):
		return FailureDuplicateReview
	default:
		return FailureStorage
	}
}

// RowResult is the outcome of one input record.
type RowResult struct {
	Line     int
	ReviewID string
	Raw      string
	Skipped  bool // valid but intentionally not written (clean stage duplicates)
	Err      error
}

// OK reports whether the record was written.
func (r RowResult) OK() bool { return r.Err == nil && !r.Skipped }

// Kind classifies the failure, FailureNone on success.
func (r RowResult) Kind() FailureKind { return Classify(r.Err) }

// Tally aggregates row results for a run.
type Tally struct {
	Succeeded int
	Failed    int
	Skipped   int
	ByKind    map[FailureKind]int
}

// Add folds one result into the tally.
func (t *Tally) Add(r RowResult) {
	switch {
	case r.Err != nil:
		t.Failed++
		if t.ByKind == nil {
			t.ByKind = make(map[FailureKind]int)
		}
		t.ByKind[r.Kind()]++
	case r.Skipped:
		t.Skipped++
	default:
		t.Succeeded++
	}
}

// Total is the number of records seen.
func (t Tally) Total() int { return t.Succeeded + t.Failed + t.Skipped }

// OK reports whether no record failed.
func (t Tally) OK() bool { return t.Failed == 0 }

// Kinds returns the failure counts keyed by kind name, for reporting.
func (t Tally) Kinds() map[string]int {
	out := make(map[string]int, len(t.ByKind))
	for k, n := range t.ByKind {
		out[string(k)] = n
	}
	return out
}

// SortedKinds returns the failure kinds present, in name order.
func (t Tally) SortedKinds() []FailureKind {
	kinds := make([]FailureKind, 0, len(t.ByKind))
	for k := range t.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
