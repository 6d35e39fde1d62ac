package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink receives one summary per completed run.
type Sink interface {
	Append(s RunSummary) error
}

// FileSink appends blocks to a text file.
type FileSink struct {
	Path string
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Append writes one block at the end of the file, creating it (and its
// directory) if absent. Existing content is never rewritten. The file is
// opened and closed within the call.
func (f *FileSink) Append(s RunSummary) (err error) {
	if dir := filepath.Dir(f.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close audit log: %w", cerr)
		}
	}()

	if _, err := io.WriteString(file, Format(s)); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// WriterSink writes blocks to an io.Writer; used for console echo and tests.
type WriterSink struct {
	W io.Writer
}

func (w WriterSink) Append(s RunSummary) error {
	_, err := io.WriteString(w.W, Format(s))
	return err
}
