/*
Package review provides the review ingestion engine.

PURPOSE:
  Loads review records from a delimited file into a relational store.
  Two dimensions (app version, user) are deduplicated with lookup-or-create,
  every review row becomes one fact row, and malformed rows are counted and
  skipped without aborting the batch.

KEY CONCEPTS IN THIS FILE (types.go):
  - VersionKey: Natural key of the AppVersion dimension
  - Record:     One fully parsed input row, ready to be resolved and inserted
  - Review:     The fact row as written to the store
  - RunInfo:    Identity of one load run (id, input, start time)

DATA FLOW:
  file records -> Record (parse) -> resolved dimension ids -> Review fact
                                                           -> Tally -> audit block

OPERATING ASSUMPTION:
  Single writer. One run owns the store connection for its whole duration and
  commits once at the end. Concurrent runs against the same store are not
  supported.

SEE ALSO:
  - version.go:  Version-key parser
  - resolver.go: Dimension lookup-or-create
  - ingest.go:   Row ingestion loop
  - store.go:    Persistence interfaces
*/
package review

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSION KEYS
// =============================================================================

// VersionKey is the natural key of an AppVersion row.
type VersionKey struct {
	SemanticVersion string // "major.minor.patch"
	BuildNumber     string
	BuildCode       string
}

// String renders the key in its input form ("1.2.3 build 100 9").
func (k VersionKey) String() string {
	return k.SemanticVersion + " build " + k.BuildNumber + " " + k.BuildCode
}

// AppVersion is a stored AppVersion dimension row.
type AppVersion struct {
	ID int64
	VersionKey
}

// User is a stored User dimension row.
type User struct {
	ID   int64
	Name string
}

// =============================================================================
// RECORDS AND FACTS
// =============================================================================

// Record is one parsed input row. All fields are validated; the version
// string has already been turned into a VersionKey.
type Record struct {
	ReviewID      string
	UserName      string
	Content       string
	Score         decimal.Decimal
	ThumbsUpCount int
	CreatedAt     time.Time
	Version       VersionKey
}

// Review is a fact row referencing resolved dimension ids.
// Created once per successfully parsed record; never updated or deleted.
type Review struct {
	ReviewID      string
	UserID        int64
	Content       string
	Score         decimal.Decimal
	ThumbsUpCount int
	CreatedAt     time.Time
	VersionID     int64
}

// StoredReview is a Review read back with its dimension values joined in.
type StoredReview struct {
	Review
	UserName string
	Version  VersionKey
}

// =============================================================================
// RUNS
// =============================================================================

// RunInfo identifies one load run.
type RunInfo struct {
	ID        string
	Input     string
	StartedAt time.Time
}

// RunRecord is the row written to the store alongside the facts of a run.
// It commits atomically with them, so it only exists for committed runs.
type RunRecord struct {
	RunInfo
	Succeeded   int
	Failed      int
	CommittedAt time.Time
}

// Stats summarizes store contents.
type Stats struct {
	AppVersions int64 `json:"app_versions"`
	Users       int64 `json:"users"`
	Reviews     int64 `json:"reviews"`
	Runs        int64 `json:"runs"`
}
