package review_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/review-loader/review"
	"github.com/warp/review-loader/review/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func reopenable(input string) func() (review.Source, error) {
	return func() (review.Source, error) {
		return review.NewCSVSource(strings.NewReader(input), review.CSVOptions{})
	}
}

func TestClean_KeepsLatestRecordPerReview(t *testing.T) {
	input := header +
		"r1,alice,first,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n" +
		"r2,bob,only,4,1,2024-01-01 11:00:00,1.2.3 build 100 9\n" +
		"r1,alice,edited,4,3,2024-01-05 10:00:00,1.2.3 build 100 9\n" +
		"r1,alice,same time,4,3,2024-01-05 10:00:00,1.2.3 build 100 9\n" +
		"r3,carol,broken,4,1,2024-01-01 11:00:00,v1\n"

	core, logs := observer.New(zapcore.DebugLevel)
	cleaner := review.NewCleaner(zap.New(core))

	var out bytes.Buffer
	tally, err := cleaner.Clean(context.Background(), reopenable(input), &out)
	require.NoError(t, err)

	assert.Equal(t, 2, tally.Succeeded)
	assert.Equal(t, 2, tally.Skipped)
	assert.Equal(t, 1, tally.Failed)
	assert.Equal(t, map[string]int{"malformed_version": 1}, tally.Kinds())

	want := header +
		"r2,bob,only,4,1,2024-01-01 11:00:00,1.2.3 build 100 9\n" +
		"r1,alice,edited,4,3,2024-01-05 10:00:00,1.2.3 build 100 9\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, 1, logs.FilterMessage("Dropping row").Len())
}

func TestClean_OutputLoadsWithoutErrors(t *testing.T) {
	input := header +
		"r1,alice,first,5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n" +
		"r1,alice,edited,4,3,2024-01-05 10:00:00,1.2.3 build 100 9\n" +
		"r2,bob,bad,4,1,not a date,1.2.3 build 100 9\n"

	var out bytes.Buffer
	_, err := review.NewCleaner(nil).Clean(context.Background(), reopenable(input), &out)
	require.NoError(t, err)

	mem := store.NewMemory()
	tally, err := review.NewLoader(mem, nil).Load(context.Background(), csvSource(t, out.String()), runInfo("run-1"))
	require.NoError(t, err)
	assert.True(t, tally.OK())
	assert.Equal(t, 1, tally.Succeeded)
}

func TestClean_QuotesFieldsWithDelimiter(t *testing.T) {
	input := header + "r1,alice,\"great, really\",5,3,2024-01-01 10:00:00,1.2.3 build 100 9\n"

	var out bytes.Buffer
	_, err := review.NewCleaner(nil).Clean(context.Background(), reopenable(input), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "\"great, really\"")
}
