/*
store.go - Persistence interfaces for the ingestion engine

PURPOSE:
  Defines the boundary between the ingestion loop and the relational store.
  The loop only ever sees these interfaces; SQLite and in-memory stores
  implement them.

KEY INTERFACES:
  Store:   Dimension lookup/insert and fact insert (the five load queries)
  Batch:   Store bound to one open transaction, with per-row savepoints
  TxStore: Opens the single transaction of a run

ALL-OR-NOTHING:
  WithTx commits only if fn returns nil. A crash or fatal error before that
  leaves the store exactly as it was before the run.

PER-ROW ISOLATION:
  Batch.Row runs fn inside a savepoint. If fn fails, every write it made is
  rolled back, so a failed record leaves no orphan dimension rows behind.
  The outer transaction stays open.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - review/store: In-memory for testing

SEE ALSO:
  - resolver.go: Uses the Find/Insert methods through Dimension descriptors
  - ingest.go:   Drives WithTx / Row
*/
package review

import "context"

// =============================================================================
// STORE - Operations available inside a transaction
// =============================================================================

// Store holds the query operations of a load.
type Store interface {
	// FindAppVersion returns the surrogate id for key, found=false if absent.
	FindAppVersion(ctx context.Context, key VersionKey) (id int64, found bool, err error)

	// InsertAppVersion creates a row and returns the store-assigned id.
	InsertAppVersion(ctx context.Context, key VersionKey) (int64, error)

	// FindUser returns the surrogate id for name, found=false if absent.
	FindUser(ctx context.Context, name string) (id int64, found bool, err error)

	// InsertUser creates a row and returns the store-assigned id.
	InsertUser(ctx context.Context, name string) (int64, error)

	// InsertReview appends a fact row. Facts are never updated or deleted.
	InsertReview(ctx context.Context, r Review) error

	// ReviewExists reports whether any fact row carries reviewID.
	ReviewExists(ctx context.Context, reviewID string) (bool, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Batch is a Store bound to the single open transaction of a run.
type Batch interface {
	Store

	// Row executes fn inside a savepoint. If fn returns an error, the writes
	// made by fn are undone and the error is returned; the transaction stays open.
	Row(ctx context.Context, fn func(Store) error) error

	// RecordRun writes the run row; it commits together with the facts.
	RecordRun(ctx context.Context, run RunRecord) error
}

// TxStore opens the run's transaction.
type TxStore interface {
	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Batch) error) error
}
