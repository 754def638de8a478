package ingest

import (
	"errors"
	"io"
	"sort"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

// ReadPressureCSV reads a pressure export with a timestamp column
// (measured_at, timestamp or time) and p_tube / p_line columns. Rows with an
// unreadable timestamp are skipped; unreadable pressures become missing
// values. The result is sorted by time with duplicate timestamps dropped.
func ReadPressureCSV(r io.Reader, opts ReadOptions) ([]flowrate.PressureSample, ReadReport, error) {
	var report ReadReport

	t, err := newTable(r, opts)
	if err != nil {
		return nil, report, err
	}
	timeCol, err := t.require("measured_at", "measured_at", "timestamp", "time")
	if err != nil {
		return nil, report, err
	}
	tubeCol, err := t.require("p_tube", "p_tube", "tube")
	if err != nil {
		return nil, report, err
	}
	lineCol, err := t.require("p_line", "p_line", "line")
	if err != nil {
		return nil, report, err
	}

	var samples []flowrate.PressureSample
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		report.Rows++
		if err != nil {
			report.skip(t.line, "%v", err)
			continue
		}

		ts, err := t.parseTime(field(record, timeCol))
		if err != nil {
			report.skip(t.line, "%v", err)
			continue
		}
		tube, err := t.parseFloat(field(record, tubeCol))
		if err != nil {
			report.note(t.line, err)
		}
		line, err := t.parseFloat(field(record, lineCol))
		if err != nil {
			report.note(t.line, err)
		}
		samples = append(samples, flowrate.PressureSample{Time: ts, Tube: tube, Line: line})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
	out := samples[:0]
	for i, s := range samples {
		if i > 0 && s.Time.Equal(out[len(out)-1].Time) {
			report.Skipped++
			continue
		}
		out = append(out, s)
	}
	return out, report, nil
}
