package review_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/review-loader/review"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want review.FailureKind
	}{
		{nil, review.FailureNone},
		{&review.MalformedVersionError{Raw: "x"}, review.FailureMalformedVersion},
		{&review.MalformedDateError{Raw: "x"}, review.FailureMalformedDate},
		{&review.MalformedNumberError{Field: "score"}, review.FailureMalformedNumber},
		{&review.MissingFieldError{Field: "date"}, review.FailureMissingField},
		{&review.UnreadableRecordError{Line: 3, Err: errors.New("bare quote")}, review.FailureUnreadable},
		{&review.DuplicateReviewError{ReviewID: "r1"}, review.FailureDuplicateReview},
		{&review.StorageError{Op: "insert review", Err: errors.New("locked")}, review.FailureStorage},
		{fmt.Errorf("wrapped: %w", &review.MissingFieldError{Field: "x"}), review.FailureMissingField},
		{errors.New("anything else"), review.FailureStorage},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, review.Classify(tt.err), "%v", tt.err)
	}
}

func TestTally_Add(t *testing.T) {
	var tally review.Tally
	tally.Add(review.RowResult{Line: 2})
	tally.Add(review.RowResult{Line: 3, Err: &review.MalformedVersionError{Raw: "x"}})
	tally.Add(review.RowResult{Line: 4, Err: &review.MalformedVersionError{Raw: "y"}})
	tally.Add(review.RowResult{Line: 5, Err: &review.MissingFieldError{Field: "date"}})
	tally.Add(review.RowResult{Line: 6, Skipped: true})

	assert.Equal(t, 1, tally.Succeeded)
	assert.Equal(t, 3, tally.Failed)
	assert.Equal(t, 1, tally.Skipped)
	assert.Equal(t, 5, tally.Total())
	assert.False(t, tally.OK())
	assert.Equal(t, []review.FailureKind{review.FailureMalformedVersion, review.FailureMissingField}, tally.SortedKinds())
}

func TestRowResult_OK(t *testing.T) {
	assert.True(t, review.RowResult{}.OK())
	assert.False(t, review.RowResult{Skipped: true}.OK())
	assert.False(t, review.RowResult{Err: review.ErrStorage}.OK())
}
