// Package trace reads I/O trace files into replayable records. Two layouts
// are supported, selected explicitly by configuration (never auto-detected):
//
//   - legacy: delimiter-separated columns at configurable positions, with a
//     configurable timestamp unit and file-size unit
//   - extended: whitespace-separated block-level records
//     (timestamp op lba block_size seq|rand inter_arrival service_time idle_time)
//
// The package is a pure input concern: it knows nothing about tiers or
// placement, only how to turn trace lines into Records.
package trace

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Layout names a trace-file format.
type Layout string

const (
	// LayoutLegacy is the delimiter-separated format with configurable columns.
	LayoutLegacy Layout = "legacy"
	// LayoutExtended is the whitespace-separated block-level format.
	LayoutExtended Layout = "extended"
)

// ParseLayout validates a layout name from configuration.
func ParseLayout(name string) (Layout, error) {
	switch Layout(name) {
	case LayoutLegacy, LayoutExtended:
		return Layout(name), nil
	case "":
		return LayoutLegacy, nil
	}
	return "", fmt.Errorf("unknown trace layout %q (want legacy or extended)", name)
}

// Record is one parsed trace entry. ArrivalNS is the cumulative virtual
// arrival time in nanoseconds, computed from consecutive trace timestamps
// with negative gaps clamped to zero.
type Record struct {
	Addr          uint64
	Size          int64 // bytes
	Write         bool
	ArrivalNS     int64
	Sequential    bool
	ServiceTimeNS int64  // extended layout only; parsed, excluded from latency
	Zone          string // legacy layout's optional trailing zone column
}

// timestampFactorNS maps a timestamp unit name to its nanosecond factor.
func timestampFactorNS(unit string) (float64, error) {
	switch unit {
	case "s":
		return 1e9, nil
	case "ms":
		return 1e6, nil
	case "us":
		return 1e3, nil
	case "ns", "":
		return 1, nil
	}
	return 0, fmt.Errorf("unknown timestamp unit %q (want s, ms, us or ns)", unit)
}

// sizeFactorBytes maps a file-size unit name to its byte factor.
func sizeFactorBytes(unit string) (int64, error) {
	switch unit {
	case "GB":
		return 1 << 30, nil
	case "MB":
		return 1 << 20, nil
	case "KB":
		return 1 << 10, nil
	case "B", "":
		return 1, nil
	}
	return 0, fmt.Errorf("unknown size unit %q (want B, KB, MB or GB)", unit)
}

// LegacyOptions configures the legacy layout's column positions and units.
// SizeColumn and OpColumn may be -1, meaning the column is absent: size then
// falls back to DefaultSize and the operation to Read.
type LegacyOptions struct {
	Delimiter       string
	IDColumn        int
	TimestampColumn int
	SizeColumn      int
	OpColumn        int
	TimestampUnit   string // s, ms, us, ns
	SizeUnit        string // B, KB, MB, GB
	DefaultSize     int64  // in SizeUnit units, used when SizeColumn is -1
	ZoneColumn      bool   // consume the trailing column as a zone label
}

// ReadLegacy parses a legacy-layout trace. Malformed lines are skipped with
// a warning; only unit misconfiguration is an error.
func ReadLegacy(r io.Reader, opts LegacyOptions) ([]Record, error) {
	tsFactor, err := timestampFactorNS(opts.TimestampUnit)
	if err != nil {
		return nil, err
	}
	szFactor, err := sizeFactorBytes(opts.SizeUnit)
	if err != nil {
		return nil, err
	}
	delim := opts.Delimiter
	if delim == "" {
		delim = ","
	}

	var records []Record
	var arrival int64
	prevTime := 0.0
	first := true

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, delim)

		maxCol := opts.IDColumn
		if opts.TimestampColumn > maxCol {
			maxCol = opts.TimestampColumn
		}
		if opts.SizeColumn > maxCol {
			maxCol = opts.SizeColumn
		}
		if opts.OpColumn > maxCol {
			maxCol = opts.OpColumn
		}
		if len(fields) <= maxCol {
			logrus.Warnf("trace line %d: want at least %d columns, got %d; skipping", lineNum, maxCol+1, len(fields))
			continue
		}

		ts, err := strconv.ParseFloat(strings.TrimSpace(fields[opts.TimestampColumn]), 64)
		if err != nil {
			logrus.Warnf("trace line %d: bad timestamp %q; skipping", lineNum, fields[opts.TimestampColumn])
			continue
		}
		if first {
			prevTime = ts
			first = false
		}
		gap := (ts - prevTime) * tsFactor
		prevTime = ts
		if gap < 0 {
			gap = 0
		}
		arrival += int64(gap)

		size := opts.DefaultSize * szFactor
		if opts.SizeColumn >= 0 {
			f, err := strconv.ParseFloat(strings.TrimSpace(fields[opts.SizeColumn]), 64)
			if err != nil {
				logrus.Warnf("trace line %d: bad size %q; skipping", lineNum, fields[opts.SizeColumn])
				continue
			}
			size = int64(f) * szFactor
		}

		write := false
		if opts.OpColumn >= 0 {
			write = isWriteOp(fields[opts.OpColumn])
		}

		rec := Record{
			Addr:      parseAddr(fields[opts.IDColumn]),
			Size:      size,
			Write:     write,
			ArrivalNS: arrival,
		}
		if opts.ZoneColumn {
			rec.Zone = strings.ToLower(strings.TrimSpace(fields[len(fields)-1]))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return records, nil
}

// extendedFieldCount is the minimum fields per extended-layout line:
// timestamp, op, lba, block_size, seq|rand, inter_arrival, service_time, idle_time.
const extendedFieldCount = 8

// ReadExtended parses an extended-layout trace. Arrival times come from the
// inter_arrival column (seconds), with the first request arriving at zero.
// Lines starting with '#' and lines with fewer than eight fields are skipped.
func ReadExtended(r io.Reader) ([]Record, error) {
	var records []Record
	var arrival int64
	first := true

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < extendedFieldCount {
			logrus.Warnf("trace line %d: want %d fields, got %d; skipping", lineNum, extendedFieldCount, len(fields))
			continue
		}

		lba, err1 := strconv.ParseFloat(fields[2], 64)
		blockSize, err2 := strconv.ParseFloat(fields[3], 64)
		interArrival, err3 := strconv.ParseFloat(fields[5], 64)
		serviceTime, err4 := strconv.ParseFloat(fields[6], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			logrus.Warnf("trace line %d: non-numeric field; skipping", lineNum)
			continue
		}

		if first {
			first = false
		} else {
			if interArrival < 0 {
				interArrival = 0
			}
			arrival += int64(interArrival * 1e9)
		}

		records = append(records, Record{
			Addr:          uint64(lba),
			Size:          int64(blockSize),
			Write:         isWriteOp(fields[1]),
			ArrivalNS:     arrival,
			Sequential:    strings.EqualFold(fields[4], "seq"),
			ServiceTimeNS: int64(serviceTime * 1e9),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return records, nil
}

// isWriteOp maps an operation token to write (true) or read (false).
// Read tokens: read, r, rs, rr. Everything else, including ws and write,
// counts as a write.
func isWriteOp(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "read", "r", "rs", "rr":
		return false
	}
	return true
}

// parseAddr turns an id field into an address: numeric ids are taken as-is,
// anything else is FNV-1a hashed so arbitrary string ids still replay.
func parseAddr(field string) uint64 {
	field = strings.TrimSpace(field)
	if n, err := strconv.ParseUint(field, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil && f >= 0 {
		return uint64(f)
	}
	h := fnv.New64a()
	h.Write([]byte(field))
	return h.Sum64()
}
