package flowrate

import (
	"bytes"
	"log/slog"
	"math"
	"time"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func at(minute float64) time.Time {
	return t0.Add(minutes(minute))
}

func ptr(v float64) *float64 {
	return &v
}

// minuteSamples builds a one-minute series; a nil line holds 5 everywhere.
func minuteSamples(tube, line []float64) []PressureSample {
	out := make([]PressureSample, len(tube))
	for i := range tube {
		l := 5.0
		if line != nil {
			l = line[i]
		}
		out[i] = PressureSample{Time: at(float64(i)), Tube: tube[i], Line: l}
	}
	return out
}

func tubes(samples []PressureSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Tube
	}
	return out
}

func timesOf(samples []PressureSample) []time.Time {
	out := make([]time.Time, len(samples))
	for i, s := range samples {
		out[i] = s.Time
	}
	return out
}

// vCurve is 120 one-minute samples at 20 with a single venting dip: a 2/min
// decline from minute 40 to a bottom of 10 at minute 44 and a 2/min
// recovery back to 20 at minute 49.
func vCurve() []float64 {
	tube := make([]float64, 120)
	for i := range tube {
		switch {
		case i >= 40 && i <= 44:
			tube[i] = 20 - 2*float64(i-39)
		case i >= 45 && i <= 48:
			tube[i] = 10 + 2*float64(i-44)
		default:
			tube[i] = 20
		}
	}
	return tube
}

// doubleVCurve repeats the vCurve dip at minute 140.
func doubleVCurve() []float64 {
	first := vCurve()
	return append(append([]float64(nil), first...), first...)
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func nan() float64 {
	return math.NaN()
}

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
