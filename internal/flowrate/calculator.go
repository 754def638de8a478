package flowrate

import (
	"math"
	"time"
)

// criticalFactor scales the critical-branch flow equation.
const criticalFactor = 0.667

// FlowRate returns the instantaneous gas flow for one sample through a choke
// of chokeMM millimetres. Flow is zero when tube pressure does not exceed
// line pressure, and the second result is false when the formula produced a
// non-finite value that was replaced by zero.
func FlowRate(tube, line, chokeMM float64, cfg FlowModelConfig) (float64, bool) {
	if !(tube > line) {
		return 0, true
	}
	r := 0.0
	if tube > 0 {
		r = (tube - line) / tube
	}
	chokeSq := math.Pow(chokeMM/cfg.C2, 2)

	var q float64
	if r < cfg.CriticalRatio {
		q = cfg.C1 * chokeSq * tube * (1 - r/1.5) * math.Sqrt(math.Max(r/cfg.C3, 0))
	} else {
		q = criticalFactor * cfg.C1 * chokeSq * tube * math.Sqrt(cfg.CriticalRatio/cfg.C3)
	}
	q *= cfg.Multiplier
	if !isFinite(q) {
		return 0, false
	}
	return math.Max(q, 0), true
}

// CumulativeFlow integrates flow (per day) over elapsed time with the
// trapezoidal rule. The first element is zero.
func CumulativeFlow(times []time.Time, flow []float64) []float64 {
	cum := make([]float64, len(flow))
	for i := 1; i < len(flow); i++ {
		dtDays := times[i].Sub(times[i-1]).Hours() / 24
		cum[i] = cum[i-1] + (flow[i-1]+flow[i])/2*dtDays
	}
	return cum
}

// VentingLossRate estimates the orifice loss rate (thousand m³ per minute)
// while venting to atmosphere. It is zero unless tube pressure is below line
// pressure and the wellhead is above atmospheric.
func VentingLossRate(tube, line float64, cfg PurgeLossConfig) float64 {
	if !(tube < line) {
		return 0
	}
	whMPa := tube * cfg.KgfCm2ToMPa
	dp := math.Max((whMPa-cfg.AtmPressureMPa)*1e6, 0)
	if dp <= 0 {
		return 0
	}
	area := math.Pi * math.Pow(cfg.ChokeDiameterM/2, 2)
	rho := math.Max(whMPa*1e6*cfg.MolarMass/(cfg.GasConstant*cfg.StandardTempK), 1e-6)
	q := cfg.DischargeCoeff * area * math.Sqrt(2*dp/rho) // m³/s
	return finiteOrZero(q * 60 / 1000)
}

// flowSeries holds the per-sample outputs of the flow stage. loss is the
// preliminary per-sample venting volume.
type flowSeries struct {
	rate       []float64
	cumulative []float64
	loss       []float64
	degenerate int
}

func computeFlow(s *series, chokeMM float64, cfg Config) flowSeries {
	n := s.len()
	out := flowSeries{
		rate: make([]float64, n),
		loss: make([]float64, n),
	}
	intervals := sampleIntervals(s.times)
	for i := 0; i < n; i++ {
		q, ok := FlowRate(s.tube[i], s.line[i], chokeMM, cfg.FlowModel)
		if !ok {
			out.degenerate++
		}
		out.rate[i] = q
		out.loss[i] = VentingLossRate(s.tube[i], s.line[i], cfg.PurgeLoss) * intervals[i]
	}
	out.cumulative = CumulativeFlow(s.times, out.rate)
	return out
}
