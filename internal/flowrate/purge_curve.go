package flowrate

import (
	"math"
	"time"
)

// DetectCyclesFromCurve finds venting cycles from the V shape of the tube
// pressure curve: a sustained decline, a bottom, recovery towards the
// pre-decline pressure and optionally a restart. Cycles carry no ids yet.
func DetectCyclesFromCurve(times []time.Time, tube []float64, cfg PurgeDetectionConfig) []PurgeCycle {
	n := len(tube)
	if n < cfg.MinCurveSamples || n < 2 {
		return nil
	}
	smooth := movingAverage(tube, cfg.MovingAverageWindow)
	cadence := cadenceMinutes(times)
	threshold := -cfg.MinDeclineRate * cadence
	minPoints := int(math.Round(cfg.MinDeclineMinutes / cadence))
	if minPoints < 1 {
		minPoints = 1
	}

	d := curveDetector{cfg: cfg, times: times, smooth: smooth, cadence: cadence}
	var cycles []PurgeCycle
	runStart := -1
	for i := 1; i <= n; i++ {
		declining := i < n && smooth[i]-smooth[i-1] < threshold
		if declining {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			if i-runStart >= minPoints {
				if c, ok := d.analyze(runStart, i); ok {
					cycles = append(cycles, c)
				}
			}
			runStart = -1
		}
	}
	return cycles
}

type curveDetector struct {
	cfg     PurgeDetectionConfig
	times   []time.Time
	smooth  []float64
	cadence float64
}

// analyze inspects the decline run [start, end) and builds a cycle when the
// drop is deep enough.
func (d curveDetector) analyze(start, end int) (PurgeCycle, bool) {
	n := len(d.smooth)
	pStart := d.smooth[start-1]

	lo := max(0, end-d.cfg.BottomSearchBefore)
	hi := min(n, end+d.cfg.BottomSearchAfter)
	bottom := lo
	for i := lo + 1; i < hi; i++ {
		if d.smooth[i] < d.smooth[bottom] {
			bottom = i
		}
	}
	pBottom := d.smooth[bottom]
	drop := pStart - pBottom
	if drop < d.cfg.MinDropMagnitude {
		return PurgeCycle{}, false
	}

	recovery := -1
	target := pStart * d.cfg.RecoveryThreshold
	limit := d.times[bottom].Add(d.cfg.maxBuildup())
	for i := bottom + 1; i < n && !d.times[i].After(limit); i++ {
		if d.smooth[i] >= target {
			recovery = i
			break
		}
	}

	restart := recovery
	if recovery >= 0 {
		look := d.cfg.RestartLookahead
		slope := d.cfg.RestartSlope * d.cadence
		for i := recovery; i < min(n, recovery+d.cfg.RestartSearchSamples) && i+look < n; i++ {
			if (d.smooth[i+look]-d.smooth[i])/float64(look) < slope {
				restart = i
				break
			}
		}
	}

	confidence := dropScore(drop)
	if recovery >= 0 {
		ratio := 0.0
		if pStart > 0 {
			ratio = d.smooth[recovery] / pStart
		}
		confidence += recoveryScore(ratio)
	}
	declineMinutes := float64(end-start) * d.cadence
	confidence += steepnessScore(drop / declineMinutes)
	if restart >= 0 && restart != recovery {
		confidence += 0.1
	}

	c := PurgeCycle{
		Source:       SourceAlgorithm,
		VentingStart: timePtr(d.times[start-1]),
		VentingEnd:   timePtr(d.times[bottom]),
		BuildupStart: timePtr(d.times[bottom]),
		PStart:       pStart,
		PBottom:      pBottom,
		Confidence:   math.Min(confidence, 1),
	}
	if recovery >= 0 {
		c.BuildupEnd = timePtr(d.times[recovery])
		c.PEnd = d.smooth[recovery]
		c.RestartTime = timePtr(d.times[restart])
	}
	if c.VentingDurationMinutes() > d.cfg.MaxVentingMinutes {
		c.Confidence *= 0.5
	}
	return c, true
}

func dropScore(drop float64) float64 {
	switch {
	case drop >= 5:
		return 0.3
	case drop >= 2:
		return 0.2
	default:
		return 0.1
	}
}

func recoveryScore(ratio float64) float64 {
	switch {
	case ratio >= 0.9:
		return 0.3
	case ratio >= 0.7:
		return 0.2
	default:
		return 0.1
	}
}

// steepnessScore grades the decline rate in pressure units per minute.
func steepnessScore(rate float64) float64 {
	switch {
	case rate >= 0.3:
		return 0.2
	case rate >= 0.1:
		return 0.1
	default:
		return 0
	}
}

// movingAverage is a centred mean over up to window samples, truncated at the
// series edges.
func movingAverage(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if window <= 1 || n < window {
		copy(out, values)
		return out
	}
	before := (window - 1) / 2
	after := window - 1 - before
	for i := range values {
		lo := max(0, i-before)
		hi := min(n, i+after+1)
		out[i] = mean(values[lo:hi])
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	return &t
}
