package ingest

import (
	"errors"
	"io"
	"math"
	"sort"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

// ReadMarkersCSV reads operator purge markers: event_time (or time),
// purge_phase (or phase) and an optional p_tube column. Phases are
// normalized; rows with unknown phases are skipped.
func ReadMarkersCSV(r io.Reader, opts ReadOptions) ([]flowrate.PurgeMarker, ReadReport, error) {
	var report ReadReport

	t, err := newTable(r, opts)
	if err != nil {
		return nil, report, err
	}
	timeCol, err := t.require("event_time", "event_time", "time", "timestamp")
	if err != nil {
		return nil, report, err
	}
	phaseCol, err := t.require("purge_phase", "purge_phase", "phase")
	if err != nil {
		return nil, report, err
	}
	tubeCol, hasTube := t.column("p_tube", "tube")

	var markers []flowrate.PurgeMarker
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
		phase := flowrate.NormalizePhase(field(record, phaseCol))
		switch phase {
		case flowrate.PhaseStart, flowrate.PhasePress, flowrate.PhaseStop:
		default:
			report.skip(t.line, "unknown purge phase %q", phase)
			continue
		}

		tube := math.NaN()
		if hasTube {
			if tube, err = t.parseFloat(field(record, tubeCol)); err != nil {
				report.note(t.line, err)
			}
		}
		markers = append(markers, flowrate.PurgeMarker{Time: ts, Phase: phase, Tube: tube})
	}

	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Time.Before(markers[j].Time)
	})
	return markers, report, nil
}
