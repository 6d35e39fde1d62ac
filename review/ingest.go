/*
ingest.go - Row ingestion loop

PURPOSE:
  Reads every record of one input once, in file order, and turns each
  well-formed record into one Review fact with resolved dimension ids.

PER RECORD:
  1. Extract required fields and parse the timestamp    (ParseRecord)
  2. Parse appVersion into a VersionKey                  (ParseVersionKey)
  3. Resolve AppVersion, then User                        (Resolve)
  4. Insert the Review fact                               (Store.InsertReview)
  5. Count the result

  Steps 3-4 run inside Batch.Row, so a failure there undoes the row's own
  writes. Any failure in 1-4 is logged with the raw record, counted, and the
  loop moves on. Failed rows are never retried within a run.

COMMIT:
  The whole loop runs inside one TxStore.WithTx. Only fatal errors (the source
  cannot be read, the transaction cannot begin or commit) abort the run, and
  then nothing is committed.

SEE ALSO:
  - result.go: RowResult / Tally
  - audit/:    Turns the Tally into the run's audit block
*/
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Loader runs the ingestion loop against a transactional store.
type Loader struct {
	Store      TxStore
	Columns    Columns
	DateLayout string

	// RejectDuplicateReviews turns an already-stored reviewId into a
	// row-scoped DuplicateReviewError. Off by default: re-ingesting a file
	// appends a second copy of its facts.
	RejectDuplicateReviews bool

	Logger *zap.Logger
	Now    func() time.Time
}

// NewLoader returns a Loader with default columns and date layout.
func NewLoader(store TxStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		Store:      store,
		Columns:    DefaultColumns(),
		DateLayout: DefaultDateLayout,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Load consumes src and commits its facts once at the end. The returned
// Tally counts every record seen; it is only meaningful when err is nil.
func (l *Loader) Load(ctx context.Context, src Source, run RunInfo) (Tally, error) {
	if err := l.Columns.Validate(); err != nil {
		return Tally{}, fmt.Errorf("invalid column mapping: %w", err)
	}
	logger := l.logger().With(zap.String("run_id", run.ID))

	var tally Tally
	err := l.Store.WithTx(ctx, func(b Batch) error {
		tally = Tally{}
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			res := l.loadRow(ctx, b, rec)
			tally.Add(res)
			if res.Err != nil {
				logger.Warn("Failed to load row",
					zap.Int("line", res.Line),
					zap.String("record", res.Raw),
					zap.String("kind", string(res.Kind())),
					zap.Error(res.Err))
			}
		}

		return b.RecordRun(ctx, RunRecord{
			RunInfo:     run,
			Succeeded:   tally.Succeeded,
			Failed:      tally.Failed,
			CommittedAt: l.now(),
		})
	})
	if err != nil {
		return Tally{}, err
	}

	logger.Info("Load committed",
		zap.Int("succeeded", tally.Succeeded),
		zap.Int("failed", tally.Failed))
	return tally, nil
}

// loadRow runs steps 1-4 for one record.
func (l *Loader) loadRow(ctx context.Context, b Batch, rec RawRecord) RowResult {
	res := RowResult{Line: rec.Line, Raw: rec.String()}
	if rec.Err != nil {
		res.Err = rec.Err
		return res
	}
	res.ReviewID = rec.Values[l.Columns.ReviewID]

	r, err := ParseRecord(rec.Values, l.Columns, l.DateLayout)
	if err != nil {
		res.Err = err
		return res
	}

	res.Err = b.Row(ctx, func(s Store) error {
		return l.insert(ctx, s, r)
	})
	return res
}

func (l *Loader) insert(ctx context.Context, s Store, r Record) error {
	versionID, err := Resolve(ctx, s, AppVersions, r.Version)
	if err != nil {
		return err
	}
	userID, err := Resolve(ctx, s, Users, r.UserName)
	if err != nil {
		return err
	}

	if l.RejectDuplicateReviews {
		exists, err := s.ReviewExists(ctx, r.ReviewID)
		if err != nil {
			return &StorageError{Op: "lookup review", Err: err}
		}
		if exists {
			return &DuplicateReviewError{ReviewID: r.ReviewID}
		}
	}

	err = s.InsertReview(ctx, Review{
		ReviewID:      r.ReviewID,
		UserID:        userID,
		Content:       r.Content,
		Score:         r.Score,
		ThumbsUpCount: r.ThumbsUpCount,
		CreatedAt:     r.CreatedAt,
		VersionID:     versionID,
	})
	if err != nil {
		return &StorageError{Op: "insert review", Err: err}
	}
	return nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l *Loader) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}
