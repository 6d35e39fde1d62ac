package review_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/review-loader/review"
)

func validValues() map[string]string {
	return map[string]string{
		"reviewId":      "r1",
		"userName":      "alice",
		"content":       "good",
		"score":         "5",
		"thumbsUpCount": "3",
		"date":          "2024-01-01 10:00:00",
		"appVersion":    "1.2.3 build 100 9",
	}
}

func TestParseRecord_Valid(t *testing.T) {
	rec, err := review.ParseRecord(validValues(), review.DefaultColumns(), "")
	require.NoError(t, err)

	assert.Equal(t, "r1", rec.ReviewID)
	assert.Equal(t, "alice", rec.UserName)
	assert.Equal(t, "good", rec.Content)
	assert.True(t, rec.Score.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, rec.ThumbsUpCount)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), rec.CreatedAt)
	assert.Equal(t, review.VersionKey{SemanticVersion: "1.2.3", BuildNumber: "100", BuildCode: "9"}, rec.Version)
}

func TestParseRecord_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   error
	}{
		{"missing user", func(v map[string]string) { delete(v, "userName") }, review.ErrMissingField},
		{"bad score", func(v map[string]string) { v["score"] = "five" }, review.ErrMalformedNumber},
		{"bad thumbs up", func(v map[string]string) { v["thumbsUpCount"] = "1.5" }, review.ErrMalformedNumber},
		{"bad date", func(v map[string]string) { v["date"] = "01/01/2024" }, review.ErrMalformedDate},
		{"bad version", func(v map[string]string) { v["appVersion"] = "not-a-version" }, review.ErrMalformedVersion},
		{"date checked before version", func(v map[string]string) {
			v["date"] = "yesterday"
			v["appVersion"] = "nope"
		}, review.ErrMalformedDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validValues()
			tt.mutate(values)

			_, err := review.ParseRecord(values, review.DefaultColumns(), review.DefaultDateLayout)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseRecord_MissingFieldNamesColumn(t *testing.T) {
	values := validValues()
	delete(values, "date")

	_, err := review.ParseRecord(values, review.DefaultColumns(), "")

	var merr *review.MissingFieldError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "date", merr.Field)
}

func TestParseRecord_AlternateDateColumn(t *testing.T) {
	values := validValues()
	values["at"] = values["date"]
	delete(values, "date")

	cols := review.DefaultColumns()
	cols.CreatedAt = "at"

	rec, err := review.ParseRecord(values, cols, "")
	require.NoError(t, err)
	assert.Equal(t, 2024, rec.CreatedAt.Year())
}

func TestParseRecord_DecimalScore(t *testing.T) {
	values := validValues()
	values["score"] = " 4.5 "

	rec, err := review.ParseRecord(values, review.DefaultColumns(), "")
	require.NoError(t, err)
	assert.Equal(t, "4.5", rec.Score.String())
}

func TestColumns_Validate(t *testing.T) {
	require.NoError(t, review.DefaultColumns().Validate())

	empty := review.DefaultColumns()
	empty.Content = " "
	assert.Error(t, empty.Validate())

	dup := review.DefaultColumns()
	dup.CreatedAt = "reviewId"
	assert.Error(t, dup.Validate())
}
