package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/review-loader/review"
	"github.com/warp/review-loader/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const header = "reviewId,userName,content,score,thumbsUpCount,date,appVersion\n"

var v123 = review.VersionKey{SemanticVersion: "1.2.3", BuildNumber: "100", BuildCode: "9"}

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func load(t *testing.T, store *sqlite.Store, runID, input string) review.Tally {
	t.Helper()
	src, err := review.NewCSVSource(strings.NewReader(input), review.CSVOptions{})
	require.NoError(t, err)

	tally, err := review.NewLoader(store, nil).Load(context.Background(), src, review.RunInfo{
		ID:        runID,
		Input:     "reviews.csv",
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	return tally
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestNew_AppliesMigrations(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, uint(1), store.SchemaVersion())

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, review.Stats{}, stats)
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.db")

	first, err := sqlite.New(path)
	require.NoError(t, err)
	load(t, first, "run-1", header+"r1,alice,ok,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n")
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	defer second.Close()

	stats, err := second.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Reviews)
}

func TestNew_UnavailablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "reviews.db")

	_, err := sqlite.New(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, review.ErrStoreUnavailable))
	assert.True(t, review.IsFatal(err))
}

func TestNew_FileURIWithQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.db")

	store, err := sqlite.New("file:" + path + "?cache=private")
	require.NoError(t, err)
	defer store.Close()

	load(t, store, "run-1", header+"r1,alice,ok,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n")
	assert.FileExists(t, path)
}

// =============================================================================
// LOAD PATH
// =============================================================================

func TestLoad_EndToEndExample(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tally := load(t, store, "run-1", header+
		"r1,alice,good,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n"+
		"r2,bob,bad-version,4,1,2024-01-01 11:00:00,not-a-version\n")

	assert.Equal(t, 1, tally.Succeeded)
	assert.Equal(t, 1, tally.Failed)

	versions, err := store.ListAppVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, v123, versions[0].VersionKey)

	users, err := store.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)

	reviews, err := store.ListReviews(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	r := reviews[0]
	assert.Equal(t, "r1", r.ReviewID)
	assert.Equal(t, "alice", r.UserName)
	assert.Equal(t, v123, r.Version)
	assert.True(t, r.Score.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, r.ThumbsUpCount)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), r.CreatedAt)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestLoad_RerunReusesSurrogateIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	input := header + "r1,alice,ok,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n"

	load(t, store, "run-1", input)
	load(t, store, "run-2", input)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, review.Stats{AppVersions: 1, Users: 1, Reviews: 2, Runs: 2}, stats)

	reviews, err := store.GetReviews(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, reviews[0].UserID, reviews[1].UserID)
	assert.Equal(t, reviews[0].VersionID, reviews[1].VersionID)
}

func TestRow_RollbackRemovesDimensionRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(b review.Batch) error {
		rowErr := b.Row(ctx, func(s review.Store) error {
			if _, err := review.Resolve(ctx, s, review.AppVersions, v123); err != nil {
				return err
			}
			if _, err := review.Resolve(ctx, s, review.Users, "bob"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, rowErr, boom)

		_, found, err := b.FindUser(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, found)

		return b.Row(ctx, func(s review.Store) error {
			_, err := review.Resolve(ctx, s, review.Users, "alice")
			return err
		})
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.AppVersions)
	assert.Equal(t, int64(1), stats.Users)
}

func TestWithTx_ErrorRollsBackEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(b review.Batch) error {
		if _, err := b.InsertUser(ctx, "alice"); err != nil {
			return err
		}
		return errors.New("source went away")
	})
	require.Error(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Users)
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	newer := older.Add(500 * time.Millisecond)

	for _, run := range []review.RunRecord{
		{RunInfo: review.RunInfo{ID: "older", Input: "a.csv", StartedAt: older}, Succeeded: 1, CommittedAt: older},
		{RunInfo: review.RunInfo{ID: "newer", Input: "b.csv", StartedAt: newer}, Succeeded: 2, CommittedAt: newer},
	} {
		require.NoError(t, store.WithTx(ctx, func(b review.Batch) error {
			return b.RecordRun(ctx, run)
		}))
	}

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)
	assert.Equal(t, "older", runs[1].ID)
	assert.True(t, newer.Equal(runs[0].CommittedAt))
	assert.True(t, older.Equal(runs[1].StartedAt))
}

func TestInsert_UniqueConstraint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(b review.Batch) error {
		if _, err := b.InsertAppVersion(ctx, v123); err != nil {
			return err
		}
		_, err := b.InsertAppVersion(ctx, v123)
		assert.ErrorIs(t, err, sqlite.ErrDuplicateKey)

		if _, err := b.InsertUser(ctx, "alice"); err != nil {
			return err
		}
		_, err = b.InsertUser(ctx, "alice")
		assert.ErrorIs(t, err, sqlite.ErrDuplicateKey)
		return nil
	})
	require.NoError(t, err)
}

func TestReviewExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	load(t, store, "run-1", header+"r1,alice,ok,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n")

	require.NoError(t, store.WithTx(ctx, func(b review.Batch) error {
		exists, err := b.ReviewExists(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = b.ReviewExists(ctx, "r2")
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	}))
}

// =============================================================================
// READ SIDE
// =============================================================================

func TestListReviews_Paging(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	load(t, store, "run-1", header+
		"r1,alice,a,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n"+
		"r2,bob,b,4,1,2024-01-01 11:00:00,1.2.3 build 100 9\n"+
		"r3,carol,c,3.5,0,2024-01-01 12:00:00,1.2.4 build 101 9\n")

	page, err := store.ListReviews(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r2", page[0].ReviewID)
	assert.Equal(t, "r3", page[1].ReviewID)
	assert.Equal(t, "3.5", page[1].Score.String())

	users, err := store.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Name)
}

// =============================================================================
// QUERY TEMPLATES
// =============================================================================

func TestQuery_BindChecksArity(t *testing.T) {
	q := sqlite.QueryInsertReview.Query()
	assert.Equal(t, "insert_review", q.Name)
	assert.Equal(t, 7, q.Arity)

	_, err := q.Bind("r1", 1)
	assert.Error(t, err)

	args, err := sqlite.QueryLookupUser.Query().Bind("alice")
	require.NoError(t, err)
	assert.Equal(t, []any{"alice"}, args)
}

func TestQuery_TemplatesAreIndependent(t *testing.T) {
	a := sqlite.QueryLookupUser.Query()
	a.SQL = "mutated"

	assert.NotEqual(t, "mutated", sqlite.QueryLookupUser.Query().SQL)
}
