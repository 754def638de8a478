package flowrate

import (
	"fmt"
	"math"
	"sort"
	"time"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

// CorrectionOutcome is the corrected series plus audit data.
type CorrectionOutcome struct {
	Samples []PressureSample
	// CorrectedPoints counts distinct samples touched by at least one correction.
	CorrectedPoints int
	Zones           []CorrectionZone
}

// ApplyCorrections applies corrections in ascending Order to a cleaned series.
// The corrections are validated first; an invalid correction is a
// configuration error and nothing is applied.
func ApplyCorrections(samples []PressureSample, corrections []Correction) (CorrectionOutcome, error) {
	if err := ValidateCorrections(corrections); err != nil {
		return CorrectionOutcome{}, err
	}
	s := newSeries(samples)
	touched, zones, err := applyCorrections(s, corrections)
	if err != nil {
		return CorrectionOutcome{}, err
	}
	return CorrectionOutcome{Samples: s.samples(), CorrectedPoints: touched, Zones: zones}, nil
}

func sortedCorrections(corrections []Correction) []Correction {
	ordered := append([]Correction(nil), corrections...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	return ordered
}

// applyCorrections mutates s and returns the number of distinct touched samples.
func applyCorrections(s *series, corrections []Correction) (int, []CorrectionZone, error) {
	if len(corrections) == 0 {
		return 0, nil, nil
	}
	touched := make([]bool, s.len())
	zones := make([]CorrectionZone, 0, len(corrections))

	for _, c := range sortedCorrections(corrections) {
		idx := s.window(c.TimeStart, c.TimeEnd)
		for _, i := range idx {
			touched[i] = true
		}
		zones = append(zones, CorrectionZone{
			ID:     c.ID,
			Type:   c.Type,
			Start:  c.TimeStart,
			End:    c.TimeEnd,
			Reason: c.Reason,
		})
		if len(idx) == 0 {
			continue
		}

		switch c.Type {
		case CorrectionExclude:
			s.blank(idx)
			s.fill()
		case CorrectionInterpolate:
			p, _ := c.Params.(InterpolateParams)
			s.blank(idx)
			s.interpolate(idx, p.Method)
		case CorrectionManualValue:
			p, _ := c.Params.(ManualValueParams)
			for _, i := range idx {
				if p.Tube != nil {
					s.tube[i] = *p.Tube
				}
				if p.Line != nil {
					s.line[i] = *p.Line
				}
			}
		case CorrectionClamp:
			p, _ := c.Params.(ClampParams)
			for _, i := range idx {
				s.tube[i] = clamp(s.tube[i], p.Min, p.Max)
				s.line[i] = clamp(s.line[i], p.Min, p.Max)
			}
		default:
			return 0, nil, apperrors.NewConfigError(
				fmt.Sprintf("unknown correction type %q", c.Type), nil)
		}
	}
	s.fill()

	count := 0
	for _, t := range touched {
		if t {
			count++
		}
	}
	return count, zones, nil
}

// window returns indexes of samples with start <= t <= end.
func (s *series) window(start, end time.Time) []int {
	lo := sort.Search(s.len(), func(i int) bool { return !s.times[i].Before(start) })
	var idx []int
	for i := lo; i < s.len() && !s.times[i].After(end); i++ {
		idx = append(idx, i)
	}
	return idx
}

func (s *series) blank(idx []int) {
	for _, i := range idx {
		s.tube[i] = math.NaN()
		s.line[i] = math.NaN()
	}
}

// interpolate bridges the gap at idx in both channels. Gaps touching either
// end of the series are left for the final fill pass.
func (s *series) interpolate(idx []int, method InterpolationMethod) {
	lo, hi := idx[0]-1, idx[len(idx)-1]+1
	for _, values := range [][]float64{s.tube, s.line} {
		left, right := lo, hi
		for left >= 0 && math.IsNaN(values[left]) {
			left--
		}
		for right < len(values) && math.IsNaN(values[right]) {
			right++
		}
		if left < 0 || right >= len(values) {
			continue
		}
		for _, i := range idx {
			values[i] = s.bridge(values, left, right, i, method)
		}
	}
}

func (s *series) bridge(values []float64, left, right, i int, method InterpolationMethod) float64 {
	switch method {
	case InterpolateNearest:
		if i-left <= right-i {
			return values[left]
		}
		return values[right]
	case InterpolateTime:
		span := s.times[right].Sub(s.times[left]).Seconds()
		if span <= 0 {
			return values[left]
		}
		frac := s.times[i].Sub(s.times[left]).Seconds() / span
		return values[left] + (values[right]-values[left])*frac
	default:
		frac := float64(i-left) / float64(right-left)
		return values[left] + (values[right]-values[left])*frac
	}
}

// clamp limits v to the given bounds; a missing value stays missing.
func clamp(v float64, lo, hi *float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if lo != nil && v < *lo {
		v = *lo
	}
	if hi != nil && v > *hi {
		v = *hi
	}
	return v
}
