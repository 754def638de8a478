package flowrate

import (
	"math"
	"sort"
	"time"
)

// prePurgeSamples is how many samples before venting define the pressure to recover to.
const prePurgeSamples = 10

// DetectCyclesFromMarkers pairs operator markers into cycles. Each start is
// paired greedily with the next press and stop; a new start aborts the
// current pairing. Markers with unknown phases are ignored. Cycles carry no
// ids yet.
func DetectCyclesFromMarkers(times []time.Time, tube []float64, markers []PurgeMarker, cfg PurgeDetectionConfig) []PurgeCycle {
	if len(markers) == 0 {
		return nil
	}
	events := make([]PurgeMarker, 0, len(markers))
	for _, m := range markers {
		m.Phase = NormalizePhase(string(m.Phase))
		switch m.Phase {
		case PhaseStart, PhasePress, PhaseStop:
			events = append(events, m)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	d := markerDetector{cfg: cfg, times: times, tube: tube}
	var cycles []PurgeCycle
	i := 0
	for i < len(events) {
		if events[i].Phase != PhaseStart {
			i++
			continue
		}
		start := events[i]
		var press, stop *PurgeMarker

		j := i + 1
		for j < len(events) {
			ev := events[j]
			if ev.Phase == PhaseStart {
				break
			}
			if ev.Phase == PhasePress && press == nil {
				press = &events[j]
			} else if ev.Phase == PhaseStop && stop == nil {
				stop = &events[j]
				j++
				break
			}
			j++
		}

		cycles = append(cycles, d.build(start, press, stop))
		i = j
	}
	return cycles
}

type markerDetector struct {
	cfg   PurgeDetectionConfig
	times []time.Time
	tube  []float64
}

func (d markerDetector) build(start PurgeMarker, press, stop *PurgeMarker) PurgeCycle {
	c := PurgeCycle{Source: SourceMarker}
	ventStart := d.snap(start.Time)
	c.VentingStart = &ventStart
	c.PStart = d.pressureAt(ventStart, start.Tube)

	switch {
	case press != nil && stop != nil:
		bottom := d.snap(press.Time)
		end := d.snap(stop.Time)
		c.VentingEnd, c.BuildupStart = &bottom, &bottom
		c.PBottom = d.pressureAt(bottom, press.Tube)
		c.BuildupEnd, c.RestartTime = &end, &end
		c.PEnd = d.pressureAt(end, stop.Tube)
		c.Confidence = 0.95
	case press != nil:
		bottom := d.snap(press.Time)
		c.VentingEnd, c.BuildupStart = &bottom, &bottom
		c.PBottom = d.pressureAt(bottom, press.Tube)
		d.estimateEnd(&c)
		c.Confidence = 0.6
	default:
		if bottom, ok := d.bottomAfter(ventStart); ok {
			c.VentingEnd, c.BuildupStart = &bottom, &bottom
			c.PBottom = d.pressureAt(bottom, math.NaN())
			d.estimateEnd(&c)
		}
		c.Confidence = 0.5
	}

	if c.VentingEnd != nil && c.VentingDurationMinutes() > d.cfg.MaxVentingMinutes {
		c.Confidence *= 0.5
	}
	return c
}

func (d markerDetector) estimateEnd(c *PurgeCycle) {
	if end, ok := d.buildupEnd(*c.VentingStart, *c.BuildupStart, c.PStart); ok {
		c.BuildupEnd, c.RestartTime = &end, &end
		c.PEnd = d.pressureAt(end, math.NaN())
	}
}

// nearest returns the index of the sample closest to t within tol. Ties go to
// the earlier sample.
func (d markerDetector) nearest(t time.Time, tol time.Duration) (int, bool) {
	lo := sort.Search(len(d.times), func(i int) bool { return !d.times[i].Before(t.Add(-tol)) })
	best := -1
	var bestDist time.Duration
	for i := lo; i < len(d.times) && !d.times[i].After(t.Add(tol)); i++ {
		dist := d.times[i].Sub(t)
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best, best >= 0
}

// snap moves t onto the nearest sample within the marker tolerance, or keeps it.
func (d markerDetector) snap(t time.Time) time.Time {
	if i, ok := d.nearest(t, d.cfg.markerTolerance()); ok {
		return d.times[i]
	}
	return t
}

// pressureAt reads tube pressure near t, falling back to the reported value.
func (d markerDetector) pressureAt(t time.Time, reported float64) float64 {
	if i, ok := d.nearest(t, d.cfg.pressureLookup()); ok {
		return d.tube[i]
	}
	if math.IsNaN(reported) {
		return 0
	}
	return reported
}

// bottomAfter finds the lowest tube pressure within the maximum venting
// duration after start.
func (d markerDetector) bottomAfter(start time.Time) (time.Time, bool) {
	limit := start.Add(d.cfg.maxVenting())
	best := -1
	for i, t := range d.times {
		if t.Before(start) {
			continue
		}
		if t.After(limit) {
			break
		}
		if best < 0 || d.tube[i] < d.tube[best] {
			best = i
		}
	}
	if best < 0 {
		return time.Time{}, false
	}
	return d.times[best], true
}

// buildupEnd finds the first sample after buildupStart, within the maximum
// buildup duration, where tube pressure recovers to the configured fraction
// of the pre-venting level.
func (d markerDetector) buildupEnd(ventStart, buildupStart time.Time, fallback float64) (time.Time, bool) {
	before := sort.Search(len(d.times), func(i int) bool { return !d.times[i].Before(ventStart) })
	pBefore := fallback
	if before > 0 {
		pBefore = mean(d.tube[max(0, before-prePurgeSamples):before])
	}
	target := pBefore * d.cfg.RecoveryThreshold

	limit := buildupStart.Add(d.cfg.maxBuildup())
	for i, t := range d.times {
		if !t.After(buildupStart) {
			continue
		}
		if t.After(limit) {
			break
		}
		if d.tube[i] >= target {
			return t, true
		}
	}
	return time.Time{}, false
}
