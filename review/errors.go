/*
errors.go - Error taxonomy for the ingestion engine

PURPOSE:
  All error types in one place. Row-scoped errors are caught by the ingestion
  loop, counted and logged; fatal errors abort the run before any row is
  processed (or before the commit).

ERROR CATEGORIES:
  1. Row-scoped:  MalformedVersion, MalformedDate, MalformedNumber,
                  MissingField, UnreadableRecord, DuplicateReview, Storage
  2. Fatal:       InputNotFound, StoreUnavailable

USAGE:
  var verr *review.MalformedVersionError
  if errors.As(err, &verr) {
      log.Printf("bad version %q", verr.Raw)
  }
  if errors.Is(err, review.ErrMalformedVersion) { ... }

SEE ALSO:
  - ingest.go: Where row-scoped errors are caught and classified
  - result.go: FailureKind classification
*/
package review

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedVersion is returned when a version string does not match
	// "<major>.<minor>.<patch> build <buildNumber> <buildCode>".
	ErrMalformedVersion = errors.New("malformed version")

	// ErrMalformedDate is returned when the timestamp field does not match the layout.
	ErrMalformedDate = errors.New("malformed date")

	// ErrMalformedNumber is returned when score or thumbsUpCount is not numeric.
	ErrMalformedNumber = errors.New("malformed number")

	// ErrMissingField is returned when a required column is absent from a record.
	ErrMissingField = errors.New("missing field")

	// ErrUnreadableRecord is returned when the delimited reader cannot parse a line.
	ErrUnreadableRecord = errors.New("unreadable record")

	// ErrDuplicateReview is returned when duplicate reviews are rejected and the
	// reviewId is already stored.
	ErrDuplicateReview = errors.New("duplicate review")

	// ErrStorage is returned when a store operation fails for one row.
	ErrStorage = errors.New("storage error")

	// ErrInputNotFound is returned when the input file cannot be opened.
	ErrInputNotFound = errors.New("input not found")

	// ErrStoreUnavailable is returned when the store cannot be opened.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedVersionError carries the offending raw version string.
type MalformedVersionError struct {
	Raw string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version %q: expected \"X.Y.Z build B C\"", e.Raw)
}

func (e *MalformedVersionError) Unwrap() error { return ErrMalformedVersion }

// MalformedDateError carries the raw timestamp and the layout it failed.
type MalformedDateError struct {
	Raw    string
	Layout string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed date %q: expected layout %q", e.Raw, e.Layout)
}

func (e *MalformedDateError) Unwrap() error { return ErrMalformedDate }

// MalformedNumberError carries the field name and raw value.
type MalformedNumberError struct {
	Field string
	Raw   string
}

func (e *MalformedNumberError) Error() string {
	return fmt.Sprintf("malformed number in %s: %q", e.Field, e.Raw)
}

func (e *MalformedNumberError) Unwrap() error { return ErrMalformedNumber }

// MissingFieldError names the absent column.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// UnreadableRecordError wraps the reader's parse error for one line.
type UnreadableRecordError struct {
	Line int
	Err  error
}

func (e *UnreadableRecordError) Error() string {
	return fmt.Sprintf("unreadable record at line %d: %v", e.Line, e.Err)
}

func (e *UnreadableRecordError) Unwrap() []error { return []error{ErrUnreadableRecord, e.Err} }

// DuplicateReviewError names a reviewId that is already stored.
type DuplicateReviewError struct {
	ReviewID string
}

func (e *DuplicateReviewError) Error() string {
	return fmt.Sprintf("review %q already stored", e.ReviewID)
}

func (e *DuplicateReviewError) Unwrap() error { return ErrDuplicateReview }

// StorageError wraps a failed store operation for one row.
type StorageError struct {
	Op  string // e.g. "lookup app_version", "insert review"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// InputNotFoundError is fatal: no row is processed and no audit block written.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("cannot open input %s: %v", e.Path, e.Err)
}

func (e *InputNotFoundError) Unwrap() []error { return []error{ErrInputNotFound, e.Err} }

// StoreUnavailableError is fatal: no row is processed and no audit block written.
type StoreUnavailableError struct {
	Path string
	Err  error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("cannot open store %s: %v", e.Path, e.Err)
}

func (e *StoreUnavailableError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRowScoped returns true if the error affects a single record only.
func IsRowScoped(err error) bool {
	return errors.Is(err, ErrMalformedVersion) ||
		errors.Is(err, ErrMalformedDate) ||
		errors.Is(err, ErrMalformedNumber) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnreadableRecord) ||
		errors.Is(err, ErrDuplicateReview) ||
		errors.Is(err, ErrStorage)
}

// IsFatal returns true if the error aborts the run before it starts.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInputNotFound) || errors.Is(err, ErrStoreUnavailable)
}
