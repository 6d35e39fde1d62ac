package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/review-loader/review"
	"github.com/warp/review-loader/review/store"
)

var v123 = review.VersionKey{SemanticVersion: "1.2.3", BuildNumber: "100", BuildCode: "9"}

func TestResolve_Idempotent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	var ids []int64
	err := mem.WithTx(ctx, func(b review.Batch) error {
		for i := 0; i < 5; i++ {
			id, err := review.Resolve(ctx, b, review.AppVersions, v123)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	require.NoError(t, err)

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, mem.AppVersions(), 1)
}

func TestResolve_AcrossRuns(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	resolve := func() int64 {
		var id int64
		require.NoError(t, mem.WithTx(ctx, func(b review.Batch) error {
			var err error
			id, err = review.Resolve(ctx, b, review.Users, "alice")
			return err
		}))
		return id
	}

	first := resolve()
	second := resolve()
	assert.Equal(t, first, second)
	assert.Len(t, mem.Users(), 1)
}

func TestResolve_Distinct(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	other := review.VersionKey{SemanticVersion: "1.2.3", BuildNumber: "101", BuildCode: "9"}

	require.NoError(t, mem.WithTx(ctx, func(b review.Batch) error {
		a, err := review.Resolve(ctx, b, review.AppVersions, v123)
		require.NoError(t, err)
		c, err := review.Resolve(ctx, b, review.AppVersions, other)
		require.NoError(t, err)
		assert.NotEqual(t, a, c)

		alice, err := review.Resolve(ctx, b, review.Users, "alice")
		require.NoError(t, err)
		bob, err := review.Resolve(ctx, b, review.Users, "bob")
		require.NoError(t, err)
		assert.NotEqual(t, alice, bob)
		return nil
	}))

	assert.Len(t, mem.AppVersions(), 2)
	assert.Len(t, mem.Users(), 2)
}

type failingLookup struct {
	review.Store
}

func (failingLookup) FindUser(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("disk I/O error")
}

func TestResolve_LookupFailureIsStorageError(t *testing.T) {
	_, err := review.Resolve(context.Background(), failingLookup{}, review.Users, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, review.ErrStorage))

	var serr *review.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "lookup user", serr.Op)
	assert.Equal(t, review.FailureStorage, review.Classify(err))
}
