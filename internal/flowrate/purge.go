package flowrate

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// cycleNamespace seeds the name-based cycle ids.
var cycleNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("flowrate.purge_cycle"))

// CycleID returns the stable id of a cycle detected by source starting at
// ventingStart. The same physical cycle gets the same id on every run.
func CycleID(source CycleSource, ventingStart *time.Time) string {
	key := "none"
	if ventingStart != nil {
		key = ventingStart.UTC().Format(time.RFC3339Nano)
	}
	return uuid.NewSHA1(cycleNamespace, []byte(string(source)+":"+key)).String()[:8]
}

// DetectPurgeCycles runs both detectors over the tube pressure series and
// reconciles their output.
func DetectPurgeCycles(times []time.Time, tube []float64, markers []PurgeMarker, cfg PurgeDetectionConfig, exclude ExcludeSet) []PurgeCycle {
	fromMarkers := DetectCyclesFromMarkers(times, tube, markers, cfg)
	fromCurve := DetectCyclesFromCurve(times, tube, cfg)
	return ReconcileCycles(fromMarkers, fromCurve, cfg.MinConfidence, exclude)
}

// ReconcileCycles drops algorithm cycles that are unbounded or overlap any
// marker cycle, keeps cycles with confidence >= minConfidence, orders them by
// start time and assigns ids and exclusion flags.
func ReconcileCycles(fromMarkers, fromCurve []PurgeCycle, minConfidence float64, exclude ExcludeSet) []PurgeCycle {
	pooled := make([]PurgeCycle, 0, len(fromMarkers)+len(fromCurve))
	pooled = append(pooled, fromMarkers...)
	for _, c := range fromCurve {
		if c.Start() == nil || c.End() == nil {
			continue
		}
		if !overlapsAny(c, fromMarkers) {
			pooled = append(pooled, c)
		}
	}

	cycles := pooled[:0]
	for _, c := range pooled {
		if c.Start() == nil || c.Confidence < minConfidence {
			continue
		}
		cycles = append(cycles, c)
	}
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Start().Before(*cycles[j].Start())
	})

	for i := range cycles {
		cycles[i].ID = CycleID(cycles[i].Source, cycles[i].VentingStart)
		cycles[i].Excluded = exclude.Has(cycles[i].ID)
	}
	return cycles
}

// overlapsAny reports whether c intersects a marker cycle. Marker cycles
// without both bounds are skipped.
func overlapsAny(c PurgeCycle, markers []PurgeCycle) bool {
	start, end := c.Start(), c.End()
	for _, m := range markers {
		mStart, mEnd := m.Start(), m.End()
		if mStart == nil || mEnd == nil {
			continue
		}
		if start.Before(*mEnd) && mStart.Before(*end) {
			return true
		}
	}
	return false
}
