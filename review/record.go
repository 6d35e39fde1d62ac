package review

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDateLayout is the timestamp format of the input files (YYYY-MM-DD HH:MM:SS).
const DefaultDateLayout = "2006-01-02 15:04:05"

// Columns names the header columns a record is read from.
type Columns struct {
	ReviewID   string
	UserName   string
	Content    string
	Score      string
	ThumbsUp   string
	CreatedAt  string // "date"; one historical export used "at"
	AppVersion string
}

// DefaultColumns returns the header names of the current export format.
func DefaultColumns() Columns {
	return Columns{
		ReviewID:   "reviewId",
		UserName:   "userName",
		Content:    "content",
		Score:      "score",
		ThumbsUp:   "thumbsUpCount",
		CreatedAt:  "date",
		AppVersion: "appVersion",
	}
}

// Names returns the column names in output order.
func (c Columns) Names() []string {
	return []string{c.ReviewID, c.UserName, c.Content, c.Score, c.ThumbsUp, c.CreatedAt, c.AppVersion}
}

// Validate rejects empty or repeated column names.
func (c Columns) Validate() error {
	seen := make(map[string]bool, 7)
	for _, name := range c.Names() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("column names must not be empty")
		}
		if seen[name] {
			return fmt.Errorf("column %q mapped twice", name)
		}
		seen[name] = true
	}
	return nil
}

// ParseRecord extracts and validates one row. Fields are checked in order:
// presence, score, thumbsUpCount, timestamp, then the version string.
// The first failure is returned.
func ParseRecord(values map[string]string, cols Columns, dateLayout string) (Record, error) {
	var raw [7]string
	for i, name := range cols.Names() {
		v, ok := values[name]
		if !ok {
			return Record{}, &MissingFieldError{Field: name}
		}
		raw[i] = v
	}

	score, err := decimal.NewFromString(strings.TrimSpace(raw[3]))
	if err != nil {
		return Record{}, &MalformedNumberError{Field: cols.Score, Raw: raw[3]}
	}

	thumbsUp, err := strconv.Atoi(strings.TrimSpace(raw[4]))
	if err != nil {
		return Record{}, &MalformedNumberError{Field: cols.ThumbsUp, Raw: raw[4]}
	}

	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	createdAt, err := time.ParseInLocation(dateLayout, raw[5], time.UTC)
	if err != nil {
		return Record{}, &MalformedDateError{Raw: raw[5], Layout: dateLayout}
	}

	version, err := ParseVersionKey(raw[6])
	if err != nil {
		return Record{}, err
	}

	return Record{
		ReviewID:      raw[0],
		UserName:      raw[1],
		Content:       raw[2],
		Score:         score,
		ThumbsUpCount: thumbsUp,
		CreatedAt:     createdAt,
		Version:       version,
	}, nil
}
