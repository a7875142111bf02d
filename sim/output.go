// Writes the per-request completion records: one CSV line per completed
// request, in completion order.

package sim

import (
	"fmt"
	"io"
)

// RecordWriter emits one record per completed request in the form
// addr,arrival_ms,departure_ms,served_ms,tier. Virtual times are converted
// from nanoseconds to whole milliseconds.
type RecordWriter struct {
	w io.Writer
}

// NewRecordWriter wraps w; a nil writer discards all records.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// WriteRecord emits a completion record. Errors are returned so the engine
// can surface a broken output sink instead of silently dropping records.
func (rw *RecordWriter) WriteRecord(addr uint64, arrivalNS, departureNS, servedNS int64, tier Tier) error {
	if rw == nil || rw.w == nil {
		return nil
	}
	_, err := fmt.Fprintf(rw.w, "%d,%d,%d,%d,%s\n",
		addr, arrivalNS/1e6, departureNS/1e6, servedNS/1e6, tier)
	return err
}
