package review

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Cleaner rewrites an input file keeping one record per reviewId: the
// earliest-positioned record carrying that reviewId's latest timestamp.
// Records that would fail to load are dropped and counted, so the output
// holds exactly the rows a load would accept.
type Cleaner struct {
	Columns    Columns
	DateLayout string
	Delimiter  rune
	Logger     *zap.Logger
}

// NewCleaner returns a Cleaner with default columns and date layout.
func NewCleaner(logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		Columns:    DefaultColumns(),
		DateLayout: DefaultDateLayout,
		Delimiter:  ',',
		Logger:     logger,
	}
}

// Clean reads the input twice through open: once to find the latest
// timestamp of every reviewId, once to write the survivors to w.
func (c *Cleaner) Clean(ctx context.Context, open func() (Source, error), w io.Writer) (Tally, error) {
	if err := c.Columns.Validate(); err != nil {
		return Tally{}, fmt.Errorf("invalid column mapping: %w", err)
	}

	latest, err := c.latestDates(ctx, open)
	if err != nil {
		return Tally{}, err
	}

	src, err := open()
	if err != nil {
		return Tally{}, err
	}
	defer closeSource(src)

	out := csv.NewWriter(w)
	if c.Delimiter != 0 {
		out.Comma = c.Delimiter
	}
	names := c.Columns.Names()
	if err := out.Write(names); err != nil {
		return Tally{}, fmt.Errorf("failed to write header: %w", err)
	}

	var tally Tally
	written := make(map[string]bool, len(latest))
	row := make([]string, len(names))
	for {
		if err := ctx.Err(); err != nil {
			return Tally{}, err
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Tally{}, fmt.Errorf("failed to read input: %w", err)
		}

		res := RowResult{Line: rec.Line, Raw: rec.String(), Err: rec.Err}
		var r Record
		if res.Err == nil {
			r, res.Err = ParseRecord(rec.Values, c.Columns, c.DateLayout)
		}
		if res.Err != nil {
			tally.Add(res)
			c.Logger.Warn("Dropping row",
				zap.Int("line", res.Line),
				zap.String("record", res.Raw),
				zap.String("kind", string(res.Kind())),
				zap.Error(res.Err))
			continue
		}
		res.ReviewID = r.ReviewID

		if written[r.ReviewID] || !r.CreatedAt.Equal(latest[r.ReviewID]) {
			res.Skipped = true
			tally.Add(res)
			continue
		}

		for i, name := range names {
			row[i] = rec.Values[name]
		}
		if err := out.Write(row); err != nil {
			return Tally{}, fmt.Errorf("failed to write record: %w", err)
		}
		written[r.ReviewID] = true
		tally.Add(res)
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return Tally{}, fmt.Errorf("failed to flush output: %w", err)
	}

	if tally.Skipped > 0 {
		c.Logger.Info("Dropped older duplicates", zap.Int("skipped", tally.Skipped))
	}
	return tally, nil
}

// latestDates maps every valid reviewId to its most recent timestamp.
func (c *Cleaner) latestDates(ctx context.Context, open func() (Source, error)) (map[string]time.Time, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	defer closeSource(src)

	latest := make(map[string]time.Time)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return latest, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		if rec.Err != nil {
			continue
		}
		r, err := ParseRecord(rec.Values, c.Columns, c.DateLayout)
		if err != nil {
			continue
		}
		if prev, ok := latest[r.ReviewID]; !ok || r.CreatedAt.After(prev) {
			latest[r.ReviewID] = r.CreatedAt
		}
	}
}

func closeSource(src Source) {
	if c, ok := src.(io.Closer); ok {
		c.Close()
	}
}
