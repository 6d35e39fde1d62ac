/*
Package sqlite provides a SQLite-backed implementation of the review store.

PURPOSE:
  Implements review.TxStore (the load path) and the read-only queries used
  by the API on top of database/sql and go-sqlite3.

INTERFACES IMPLEMENTED:
  review.TxStore: One transaction per load run
  review.Batch:   Dimension lookup/insert, fact insert, per-row savepoints

KEY TABLES:
  app_versions: AppVersion dimension, UNIQUE(version, build_number, build_code)
  users:        User dimension, UNIQUE(user_name)
  reviews:      Review facts (append-only)
  load_runs:    One row per committed load run

QUERIES:
  Every load statement is a named template in queries.go. Templates are
  values, never mutated; each call binds its own arguments.

SINGLE WRITER:
  The pool is limited to one connection. A load run holds it for its whole
  transaction, which serializes writers within the process. Separate
  processes loading the same file concurrently are unsupported; the UNIQUE
  constraints turn such a race into a row-level storage error rather than
  duplicate dimension rows.

MIGRATION:
  Schema is installed by embedded golang-migrate migrations on New().

USAGE:
  store, err := sqlite.New("./reviews.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  loader := review.NewLoader(store, logger)

SEE ALSO:
  - review/store.go:        Interface definitions
  - review/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/review-loader/review"
)

// ErrDuplicateKey is returned when an insert violates a UNIQUE constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// createdAtLayout is how review timestamps are stored.
const createdAtLayout = "2006-01-02 15:04:05"

// runTimeLayout is fixed-width so stored run times sort chronologically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// rowSavepoint is the savepoint name wrapping each input record.
const rowSavepoint = "review_row"

// Store implements review.TxStore using SQLite.
type Store struct {
	db            *sql.DB
	mu            sync.RWMutex
	schemaVersion uint
}

// New opens (creating if needed) the database at dbPath and applies the
// schema. Use ":memory:" for an in-memory database. Any failure is a
// *review.StoreUnavailableError.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, &review.StoreUnavailableError{Path: dbPath, Err: err}
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &review.StoreUnavailableError{Path: dbPath, Err: err}
	}

	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, &review.StoreUnavailableError{Path: dbPath, Err: err}
	}

	return &Store{db: db, schemaVersion: version}, nil
}

// dsn appends the connection options to dbPath, which may already be a
// file: URI carrying its own query.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_journal_mode=WAL"
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() uint {
	return s.schemaVersion
}

// =============================================================================
// TRANSACTIONAL STORE (review.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(review.Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&batch{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type batch struct {
	tx *sql.Tx
}

func (b *batch) FindAppVersion(ctx context.Context, key review.VersionKey) (int64, bool, error) {
	return lookupID(ctx, b.tx, QueryLookupAppVersion, key.SemanticVersion, key.BuildNumber, key.BuildCode)
}

func (b *batch) InsertAppVersion(ctx context.Context, key review.VersionKey) (int64, error) {
	return insertID(ctx, b.tx, QueryInsertAppVersion, key.SemanticVersion, key.BuildNumber, key.BuildCode)
}

func (b *batch) FindUser(ctx context.Context, name string) (int64, bool, error) {
	return lookupID(ctx, b.tx, QueryLookupUser, name)
}

func (b *batch) InsertUser(ctx context.Context, name string) (int64, error) {
	return insertID(ctx, b.tx, QueryInsertUser, name)
}

func (b *batch) InsertReview(ctx context.Context, r review.Review) error {
	_, err := exec(ctx, b.tx, QueryInsertReview,
		r.ReviewID,
		r.UserID,
		r.Content,
		r.Score.String(),
		r.ThumbsUpCount,
		r.CreatedAt.UTC().Format(createdAtLayout),
		r.VersionID,
	)
	return err
}

func (b *batch) ReviewExists(ctx context.Context, reviewID string) (bool, error) {
	q := QueryReviewExists.Query()
	args, err := q.Bind(reviewID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := b.tx.QueryRowContext(ctx, q.SQL, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to %s: %w", q.Name, err)
	}
	return exists, nil
}

// Row wraps fn in a savepoint so a failed record leaves nothing behind.
func (b *batch) Row(ctx context.Context, fn func(review.Store) error) error {
	if _, err := b.tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}

	if err := fn(b); err != nil {
		if _, rbErr := b.tx.ExecContext(ctx, "ROLLBACK TO "+rowSavepoint); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back savepoint: %w", rbErr))
		}
		if _, relErr := b.tx.ExecContext(ctx, "RELEASE "+rowSavepoint); relErr != nil {
			return errors.Join(err, fmt.Errorf("failed to release savepoint: %w", relErr))
		}
		return err
	}

	if _, err := b.tx.ExecContext(ctx, "RELEASE "+rowSavepoint); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (b *batch) RecordRun(ctx context.Context, run review.RunRecord) error {
	_, err := exec(ctx, b.tx, QueryRecordRun,
		run.ID,
		run.Input,
		run.StartedAt.UTC().Format(runTimeLayout),
		run.Succeeded,
		run.Failed,
		run.CommittedAt.UTC().Format(runTimeLayout),
	)
	return err
}

func lookupID(ctx context.Context, q queryer, id QueryID, args ...any) (int64, bool, error) {
	tmpl := id.Query()
	bound, err := tmpl.Bind(args...)
	if err != nil {
		return 0, false, err
	}

	var out int64
	err = q.QueryRowContext(ctx, tmpl.SQL, bound...).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to %s: %w", tmpl.Name, err)
	}
	return out, true, nil
}

func insertID(ctx context.Context, q queryer, id QueryID, args ...any) (int64, error) {
	res, err := exec(ctx, q, id, args...)
	if err != nil {
		return 0, err
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read id from %s: %w", id, err)
	}
	return newID, nil
}

func exec(ctx context.Context, q queryer, id QueryID, args ...any) (sql.Result, error) {
	tmpl := id.Query()
	bound, err := tmpl.Bind(args...)
	if err != nil {
		return nil, err
	}

	res, err := q.ExecContext(ctx, tmpl.SQL, bound...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("failed to %s: %w: %v", tmpl.Name, ErrDuplicateKey, err)
		}
		return nil, fmt.Errorf("failed to %s: %w", tmpl.Name, err)
	}
	return res, nil
}

// =============================================================================
// READ SIDE (API)
// =============================================================================

// ListAppVersions returns every stored app version ordered by id.
func (s *Store) ListAppVersions(ctx context.Context) ([]review.AppVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, version, build_number, build_code
		FROM app_versions
		ORDER BY version_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query app versions: %w", err)
	}
	defer rows.Close()

	var versions []review.AppVersion
	for rows.Next() {
		var v review.AppVersion
		if err := rows.Scan(&v.ID, &v.SemanticVersion, &v.BuildNumber, &v.BuildCode); err != nil {
			return nil, fmt.Errorf("failed to scan app version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// ListUsers returns a page of users ordered by id.
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]review.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, user_name
		FROM users
		ORDER BY user_id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []review.User
	for rows.Next() {
		var u review.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const storedReviewColumns = `
	r.review_id, r.user_id, r.content, r.score, r.thumbs_up_count, r.created_at, r.version_id,
	u.user_name, v.version, v.build_number, v.build_code
	FROM reviews r
	JOIN users u ON u.user_id = r.user_id
	JOIN app_versions v ON v.version_id = r.version_id
`

// ListReviews returns a page of reviews in insertion order.
func (s *Store) ListReviews(ctx context.Context, limit, offset int) ([]review.StoredReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReviews(ctx, `SELECT `+storedReviewColumns+`
		ORDER BY r.id ASC
		LIMIT ? OFFSET ?`, limit, offset)
}

// GetReviews returns every fact row carrying reviewID.
func (s *Store) GetReviews(ctx context.Context, reviewID string) ([]review.StoredReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReviews(ctx, `SELECT `+storedReviewColumns+`
		WHERE r.review_id = ?
		ORDER BY r.id ASC`, reviewID)
}

func (s *Store) queryReviews(ctx context.Context, query string, args ...any) ([]review.StoredReview, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []review.StoredReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func scanReview(rows *sql.Rows) (review.StoredReview, error) {
	var (
		r         review.StoredReview
		score     string
		createdAt string
	)
	err := rows.Scan(
		&r.ReviewID, &r.UserID, &r.Content, &score, &r.ThumbsUpCount, &createdAt, &r.VersionID,
		&r.UserName, &r.Version.SemanticVersion, &r.Version.BuildNumber, &r.Version.BuildCode,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan review: %w", err)
	}

	r.Score, err = decimal.NewFromString(score)
	if err != nil {
		return r, fmt.Errorf("failed to parse stored score %q: %w", score, err)
	}
	r.CreatedAt, err = time.ParseInLocation(createdAtLayout, createdAt, time.UTC)
	if err != nil {
		return r, fmt.Errorf("failed to parse stored timestamp %q: %w", createdAt, err)
	}
	return r, nil
}

// ListRuns returns committed load runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]review.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, input_path, started_at, succeeded, failed, committed_at
		FROM load_runs
		ORDER BY committed_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query load runs: %w", err)
	}
	defer rows.Close()

	var runs []review.RunRecord
	for rows.Next() {
		var (
			r                    review.RunRecord
			startedAt, committed string
		)
		if err := rows.Scan(&r.ID, &r.Input, &startedAt, &r.Succeeded, &r.Failed, &committed); err != nil {
			return nil, fmt.Errorf("failed to scan load run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse run start %q: %w", startedAt, err)
		}
		if r.CommittedAt, err = time.Parse(time.RFC3339Nano, committed); err != nil {
			return nil, fmt.Errorf("failed to parse run commit %q: %w", committed, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats counts the rows of every table.
func (s *Store) Stats(ctx context.Context) (review.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st review.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM app_versions),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM load_runs)
	`).Scan(&st.AppVersions, &st.Users, &st.Reviews, &st.Runs)
	if err != nil {
		return st, fmt.Errorf("failed to count rows: %w", err)
	}
	return st, nil
}

// Helper functions

func isUniqueConstraintError(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
