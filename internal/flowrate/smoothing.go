package flowrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Smooth applies the Savitzky–Golay filter to each channel independently.
// Channels with too few valid points are returned unchanged and reported as
// insufficient_data diagnostics. The input is not modified.
func Smooth(samples []PressureSample, cfg SmoothingConfig) ([]PressureSample, []Diagnostic) {
	s := newSeries(samples)
	diags := s.smooth(cfg)
	return s.samples(), diags
}

func (s *series) smooth(cfg SmoothingConfig) []Diagnostic {
	var diags []Diagnostic
	for _, ch := range []struct {
		name   string
		values []float64
	}{
		{"p_tube", s.tube},
		{"p_line", s.line},
	} {
		out, err := savgol(ch.values, cfg)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:    DiagnosticInsufficientData,
				Stage:   "smoothing",
				Message: fmt.Sprintf("%s: %v", ch.name, err),
			})
			continue
		}
		copy(ch.values, out)
	}
	return diags
}

// savgol runs cfg.Passes passes of the filter, clipping negatives after each pass.
func savgol(values []float64, cfg SmoothingConfig) ([]float64, error) {
	valid := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			valid++
		}
	}
	p := cfg.PolyOrder
	if valid < p+2 {
		return nil, fmt.Errorf("%d valid points, need at least %d", valid, p+2)
	}

	w := cfg.Window
	if w > valid {
		w = valid
	}
	if w%2 == 0 {
		w--
	}
	if w < p+2 {
		return nil, fmt.Errorf("window %d too short for polyorder %d", w, p)
	}

	h, err := savgolProjection(w, p)
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	out := fillNearest(values)
	for pass := 0; pass < cfg.Passes; pass++ {
		out = applyProjection(out, h, w)
		for i, v := range out {
			if v < 0 {
				out[i] = 0
			}
		}
	}
	return out, nil
}

// savgolProjection returns the w×w least-squares projection A(AᵀA)⁻¹Aᵀ for a
// polynomial of the given order sampled at offsets -w/2..w/2.
func savgolProjection(w, order int) (*mat.Dense, error) {
	half := w / 2
	a := mat.NewDense(w, order+1, nil)
	for i := 0; i < w; i++ {
		z := float64(i - half)
		for j := 0; j <= order; j++ {
			a.Set(i, j, math.Pow(z, float64(j)))
		}
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var coef mat.Dense
	if err := coef.Solve(&ata, a.T()); err != nil {
		return nil, err
	}
	var h mat.Dense
	h.Mul(a, &coef)
	return &h, nil
}

// applyProjection filters x with the centre row of h. The first and last
// half-windows are taken from the polynomial fitted to the first and last
// full window respectively.
func applyProjection(x []float64, h *mat.Dense, w int) []float64 {
	n := len(x)
	half := w / 2
	out := make([]float64, n)

	for i := half; i < n-half; i++ {
		out[i] = dotRow(h, half, x[i-half:i+half+1])
	}
	first := x[:w]
	for i := 0; i < half; i++ {
		out[i] = dotRow(h, i, first)
	}
	last := x[n-w:]
	for k := half + 1; k < w; k++ {
		out[n-w+k] = dotRow(h, k, last)
	}
	return out
}

func dotRow(h *mat.Dense, row int, x []float64) float64 {
	return mat.Dot(h.RowView(row), mat.NewVecDense(len(x), x))
}

// fillNearest replaces NaN values with the closest valid value, preferring
// the earlier neighbour on ties.
func fillNearest(values []float64) []float64 {
	out := append([]float64(nil), values...)
	n := len(out)
	prev := make([]int, n)
	next := make([]int, n)
	last := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(values[i]) {
			last = i
		}
		prev[i] = last
	}
	last = -1
	for i := n - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			last = i
		}
		next[i] = last
	}
	for i := range out {
		if !math.IsNaN(out[i]) {
			continue
		}
		switch {
		case prev[i] < 0:
			out[i] = values[next[i]]
		case next[i] < 0:
			out[i] = values[prev[i]]
		case i-prev[i] <= next[i]-i:
			out[i] = values[prev[i]]
		default:
			out[i] = values[next[i]]
		}
	}
	return out
}
