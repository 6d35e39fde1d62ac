package review

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// RawRecord is one input line keyed by header name.
type RawRecord struct {
	Line   int
	Values map[string]string
	Fields []string
	Err    error // row-scoped read failure; Values is nil when set
}

// String renders the raw fields for diagnostics.
func (r RawRecord) String() string {
	return strings.Join(r.Fields, ",")
}

// Source yields input records in file order. Next returns io.EOF when the
// input is exhausted; any other error is fatal to the run.
type Source interface {
	Next() (RawRecord, error)
}

// CSVOptions configures the delimited reader.
type CSVOptions struct {
	Delimiter rune // defaults to ','

	// StrictQuotes rejects a bare quote inside an unquoted field. By default
	// such a quote is kept as a literal character of the field.
	StrictQuotes bool

	// HeaderLines is the number of leading rows before the data. The last of
	// them holds the column names; values below 1 mean 1.
	HeaderLines int
}

// CSVSource reads header-named records from a delimited stream.
type CSVSource struct {
	r      *csv.Reader
	closer io.Closer
	header []string
}

// NewCSVSource reads the header rows from r and returns a source positioned
// at the first data row.
func NewCSVSource(r io.Reader, opts CSVOptions) (*CSVSource, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		if !validDelimiter(opts.Delimiter) {
			return nil, fmt.Errorf("invalid delimiter %q", opts.Delimiter)
		}
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = !opts.StrictQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	var header []string
	for i := 0; i < max(opts.HeaderLines, 1); i++ {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("input has no header row")
			}
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		header = row
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &CSVSource{r: cr, header: header}, nil
}

// OpenCSV opens path and wraps it in a CSVSource. A file that cannot be
// opened yields *InputNotFoundError.
func OpenCSV(path string, opts CSVOptions) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputNotFoundError{Path: path, Err: err}
	}
	src, err := NewCSVSource(f, opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// Header returns the trimmed header row.
func (s *CSVSource) Header() []string {
	return append([]string(nil), s.header...)
}

// Next returns the next record. Lines the reader cannot parse come back as
// a RawRecord with Err set so the caller can count them and move on.
func (s *CSVSource) Next() (RawRecord, error) {
	fields, err := s.r.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return RawRecord{Line: perr.StartLine, Fields: fields, Err: &UnreadableRecordError{Line: perr.StartLine, Err: perr.Err}}, nil
		}
		return RawRecord{}, err
	}

	line, _ := s.r.FieldPos(0)
	values := make(map[string]string, len(s.header))
	for i, name := range s.header {
		if i >= len(fields) {
			break
		}
		values[name] = fields[i]
	}
	return RawRecord{Line: line, Values: values, Fields: fields}, nil
}

// Close releases the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func validDelimiter(r rune) bool {
	return r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError && utf8.ValidRune(r)
}
