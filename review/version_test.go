package review_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/review-loader/review"
)

func TestParseVersionKey_Valid(t *testing.T) {
	tests := []struct {
		raw  string
		want review.VersionKey
	}{
		{"1.2.3 build 100 9", review.VersionKey{SemanticVersion: "1.2.3", BuildNumber: "100", BuildCode: "9"}},
		{"0.0.0 build 0 0", review.VersionKey{SemanticVersion: "0.0.0", BuildNumber: "0", BuildCode: "0"}},
		{"12.40.7 build 20231101 3", review.VersionKey{SemanticVersion: "12.40.7", BuildNumber: "20231101", BuildCode: "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := review.ParseVersionKey(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw, got.String())
		})
	}
}

func TestParseVersionKey_Malformed(t *testing.T) {
	bad := []string{
		"",
		"not-a-version",
		"1.2.3",
		"1.2 build 100 9",
		"1.2.3.4 build 100 9",
		"1.2.3 build 100",
		"1.2.3 build 100 9 extra",
		"1.2.3 Build 100 9",
		"1.2.3  build 100 9",
		"a.b.c build 1 2",
		"1.2.3 build x 9",
		" 1.2.3 build 100 9",
	}

	for _, raw := range bad {
		t.Run(raw, func(t *testing.T) {
			_, err := review.ParseVersionKey(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, review.ErrMalformedVersion))

			var verr *review.MalformedVersionError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, raw, verr.Raw)
		})
	}
}
