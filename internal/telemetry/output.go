package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/gocarina/gocsv"
)

// CSVWriter appends window records to w, writing the header once.
type CSVWriter struct {
	mu            sync.Mutex
	w             io.Writer
	headerWritten bool
}

// NewCSVWriter returns nil when w is nil so callers can leave export off.
func NewCSVWriter(w io.Writer) *CSVWriter {
	if w == nil {
		return nil
	}
	return &CSVWriter{w: w}
}

func (cw *CSVWriter) WriteWindow(stats WindowStats) error {
	if cw == nil {
		return nil
	}
	cw.mu.Lock()
	defer cw.mu.Unlock()
	records := []WindowStats{stats}
	if !cw.headerWritten {
		if err := gocsv.Marshal(records, cw.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		cw.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, cw.w); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Close closes the destination when it is closable.
func (cw *CSVWriter) Close() error {
	if cw == nil {
		return nil
	}
	if closer, ok := cw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
