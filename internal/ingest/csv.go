package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

// ReadOptions controls CSV parsing
type ReadOptions struct {
	// Comma is the field separator; ';' also switches to decimal commas.
	Comma rune
	// Location interprets timestamps without a zone; nil means UTC.
	Location *time.Location
}

func (o ReadOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// ReadReport counts rows read and rows dropped while parsing
type ReadReport struct {
	Rows    int
	Skipped int
	Errors  []string
}

func (r *ReadReport) skip(line int, format string, args ...any) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

// note records a non-fatal problem on a kept row
func (r *ReadReport) note(line int, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: %v", line, err))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// table is a header-indexed CSV reader
type table struct {
	reader  *csv.Reader
	columns map[string]int
	opts    ReadOptions
	line    int
}

func newTable(r io.Reader, opts ReadOptions) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParsingError("csv file is empty", nil)
		}
		return nil, apperrors.NewParsingError("failed to read csv header", err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimPrefix(h, "\ufeff")
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return &table{reader: reader, columns: columns, opts: opts, line: 1}, nil
}

// column returns the index of the first present alias
func (t *table) column(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := t.columns[a]; ok {
			return idx, true
		}
	}
	return 0, false
}

func (t *table) require(name string, aliases ...string) (int, error) {
	idx, ok := t.column(aliases...)
	if !ok {
		return 0, apperrors.NewParsingError(fmt.Sprintf("missing required csv column %q", name), nil)
	}
	return idx, nil
}

// next returns the next record, io.EOF at the end, or a per-row read error
func (t *table) next() ([]string, error) {
	t.line++
	return t.reader.Read()
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func (t *table) parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, t.opts.location()); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// parseFloat reads a pressure cell; an empty cell is a missing value
func (t *table) parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	if t.opts.Comma == ';' {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
