package flowrate

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finiteOrZero maps NaN/±Inf to zero.
func finiteOrZero(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0
}

// round rounds half away from zero at the given number of decimal places.
// Non-finite input is returned unchanged.
func round(v float64, places int32) float64 {
	if !isFinite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// metric rounds v and reports it as absent when it is not finite.
func metric(v float64, places int32) *float64 {
	if !isFinite(v) {
		return nil
	}
	r := round(v, places)
	return &r
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(values), floats.Max(values)
}

// quantile returns the q-th quantile with linear interpolation between order
// statistics (the "type 7" definition used by spreadsheets and pandas).
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func median(values []float64) float64 {
	return quantile(values, 0.5)
}

// medianFilter applies a running median of odd size k with zero padding at the edges.
func medianFilter(values []float64, k int) []float64 {
	n := len(values)
	out := make([]float64, n)
	half := k / 2
	window := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			idx := i - half + j
			if idx < 0 || idx >= n {
				window[j] = 0
			} else {
				window[j] = values[idx]
			}
		}
		sort.Float64s(window)
		out[i] = window[half]
	}
	return out
}

// sampleIntervals returns the elapsed minutes between each sample and its
// predecessor. The first sample is assigned the nominal cadence.
func sampleIntervals(times []time.Time) []float64 {
	n := len(times)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i := 1; i < n; i++ {
		out[i] = times[i].Sub(times[i-1]).Minutes()
	}
	out[0] = cadenceMinutes(times)
	return out
}

// cadenceMinutes is the median sampling interval, one minute for single samples.
func cadenceMinutes(times []time.Time) float64 {
	if len(times) < 2 {
		return 1
	}
	diffs := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		diffs[i-1] = times[i].Sub(times[i-1]).Minutes()
	}
	c := median(diffs)
	if !(c > 0) {
		return 1
	}
	return c
}
