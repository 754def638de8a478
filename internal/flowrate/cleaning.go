package flowrate

import (
	"math"
	"time"
)

// series is the columnar working form of a pressure sequence.
type series struct {
	times []time.Time
	tube  []float64
	line  []float64
}

func newSeries(samples []PressureSample) *series {
	s := &series{
		times: make([]time.Time, len(samples)),
		tube:  make([]float64, len(samples)),
		line:  make([]float64, len(samples)),
	}
	for i, smp := range samples {
		s.times[i] = smp.Time
		s.tube[i] = smp.Tube
		s.line[i] = smp.Line
	}
	return s
}

func (s *series) len() int {
	return len(s.times)
}

func (s *series) clone() *series {
	return &series{
		times: append([]time.Time(nil), s.times...),
		tube:  append([]float64(nil), s.tube...),
		line:  append([]float64(nil), s.line...),
	}
}

func (s *series) samples() []PressureSample {
	out := make([]PressureSample, s.len())
	for i := range s.times {
		out[i] = PressureSample{Time: s.times[i], Tube: s.tube[i], Line: s.line[i]}
	}
	return out
}

// fill closes gaps in both channels.
func (s *series) fill() {
	fillGaps(s.tube)
	fillGaps(s.line)
}

// emptyChannel names the first channel that holds no value at all, or
// returns "" when both are usable.
func (s *series) emptyChannel() string {
	switch {
	case s.len() > 0 && math.IsNaN(s.tube[0]):
		return "p_tube"
	case s.len() > 0 && math.IsNaN(s.line[0]):
		return "p_line"
	}
	return ""
}

// Clean treats non-positive and missing pressures as gaps and fills them
// forward from the previous valid reading, then backward for a leading gap.
// The input is not modified. A channel with no valid reading stays NaN.
func Clean(samples []PressureSample) []PressureSample {
	s := newSeries(samples)
	cleanChannel(s.tube)
	cleanChannel(s.line)
	return s.samples()
}

func cleanChannel(values []float64) {
	for i, v := range values {
		if !isFinite(v) || v <= 0 {
			values[i] = math.NaN()
		}
	}
	fillGaps(values)
}

// fillGaps forward-fills then backward-fills NaN values in place.
func fillGaps(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
			continue
		}
		last = v
	}
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
			continue
		}
		next = values[i]
	}
}
