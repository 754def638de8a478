package flowrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

func correction(typ CorrectionType, from, to float64, params CorrectionParams, order int) Correction {
	return Correction{
		ID:        string(typ),
		Type:      typ,
		TimeStart: at(from),
		TimeEnd:   at(to),
		Params:    params,
		Order:     order,
	}
}

func TestApplyCorrections(t *testing.T) {
	tests := []struct {
		name        string
		samples     []PressureSample
		corrections []Correction
		wantTube    []float64
		wantCount   int
	}{
		{
			name:        "exclude bridges from earlier measurement",
			samples:     minuteSamples([]float64{10, 11, 12, 13, 14}, nil),
			corrections: []Correction{correction(CorrectionExclude, 1, 3, ExcludeParams{}, 0)},
			wantTube:    []float64{10, 10, 10, 10, 14},
			wantCount:   3,
		},
		{
			name:        "exclude at start fills backward",
			samples:     minuteSamples([]float64{10, 11, 12}, nil),
			corrections: []Correction{correction(CorrectionExclude, 0, 1, nil, 0)},
			wantTube:    []float64{12, 12, 12},
			wantCount:   2,
		},
		{
			name:        "linear interpolation",
			samples:     minuteSamples([]float64{10, 11, 50, 13, 14}, nil),
			corrections: []Correction{correction(CorrectionInterpolate, 2, 2, InterpolateParams{}, 0)},
			wantTube:    []float64{10, 11, 12, 13, 14},
			wantCount:   1,
		},
		{
			name:        "nearest interpolation",
			samples:     minuteSamples([]float64{10, 90, 90, 20}, nil),
			corrections: []Correction{correction(CorrectionInterpolate, 1, 2, InterpolateParams{Method: InterpolateNearest}, 0)},
			wantTube:    []float64{10, 10, 20, 20},
			wantCount:   2,
		},
		{
			name:        "interpolation at edge left to fill pass",
			samples:     minuteSamples([]float64{99, 20, 30}, nil),
			corrections: []Correction{correction(CorrectionInterpolate, 0, 0, InterpolateParams{}, 0)},
			wantTube:    []float64{20, 20, 30},
			wantCount:   1,
		},
		{
			name:        "manual value on tube only",
			samples:     minuteSamples([]float64{10, 11, 12}, nil),
			corrections: []Correction{correction(CorrectionManualValue, 1, 2, ManualValueParams{Tube: ptr(7)}, 0)},
			wantTube:    []float64{10, 7, 7},
			wantCount:   2,
		},
		{
			name:        "clamp with upper bound only",
			samples:     minuteSamples([]float64{10, 30, 12}, nil),
			corrections: []Correction{correction(CorrectionClamp, 0, 2, ClampParams{Max: ptr(15)}, 0)},
			wantTube:    []float64{10, 15, 12},
			wantCount:   3,
		},
		{
			name:    "later order sees earlier output",
			samples: minuteSamples([]float64{10, 11, 12}, nil),
			corrections: []Correction{
				correction(CorrectionManualValue, 0, 2, ManualValueParams{Tube: ptr(50)}, 2),
				correction(CorrectionClamp, 0, 2, ClampParams{Max: ptr(40)}, 1),
			},
			wantTube:  []float64{50, 50, 50},
			wantCount: 3,
		},
		{
			name:    "overlapping corrections count samples once",
			samples: minuteSamples([]float64{10, 11, 12, 13}, nil),
			corrections: []Correction{
				correction(CorrectionClamp, 0, 2, ClampParams{Min: ptr(11)}, 0),
				correction(CorrectionClamp, 1, 3, ClampParams{Max: ptr(12)}, 1),
			},
			wantTube:  []float64{11, 11, 12, 12},
			wantCount: 4,
		},
		{
			name:        "window outside series",
			samples:     minuteSamples([]float64{10, 11}, nil),
			corrections: []Correction{correction(CorrectionClamp, 30, 40, ClampParams{Max: ptr(1)}, 0)},
			wantTube:    []float64{10, 11},
			wantCount:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ApplyCorrections(tt.samples, tt.corrections)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTube, tubes(out.Samples))
			assert.Equal(t, tt.wantCount, out.CorrectedPoints)
			assert.Len(t, out.Zones, len(tt.corrections))
		})
	}
}

func TestApplyCorrections_TimeWeightedInterpolation(t *testing.T) {
	samples := []PressureSample{
		{Time: at(0), Tube: 10, Line: 5},
		{Time: at(1), Tube: 99, Line: 5},
		{Time: at(3), Tube: 16, Line: 5},
	}
	byTime, err := ApplyCorrections(samples, []Correction{
		correction(CorrectionInterpolate, 1, 1, InterpolateParams{Method: InterpolateTime}, 0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, byTime.Samples[1].Tube, 1e-9)

	byPosition, err := ApplyCorrections(samples, []Correction{
		correction(CorrectionInterpolate, 1, 1, InterpolateParams{Method: InterpolateLinear}, 0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 13.0, byPosition.Samples[1].Tube, 1e-9)
}

func TestApplyCorrections_ClampIdempotent(t *testing.T) {
	samples := minuteSamples([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, []float64{0.5, 9, 2, 8, 3, 7, 4, 6, 5, 12})
	clampOnce := correction(CorrectionClamp, 0, 9, ClampParams{Min: ptr(3), Max: ptr(7)}, 0)
	clampAgain := clampOnce
	clampAgain.Order = 1

	once, err := ApplyCorrections(samples, []Correction{clampOnce})
	require.NoError(t, err)
	twice, err := ApplyCorrections(samples, []Correction{clampOnce, clampAgain})
	require.NoError(t, err)

	assert.Equal(t, once.Samples, twice.Samples)
	assert.Equal(t, once.CorrectedPoints, twice.CorrectedPoints)
}

func TestApplyCorrections_Invalid(t *testing.T) {
	samples := minuteSamples([]float64{10, 11}, nil)
	tests := []struct {
		name       string
		correction Correction
	}{
		{"end before start", correction(CorrectionClamp, 5, 1, ClampParams{}, 0)},
		{"end equals start", Correction{Type: CorrectionClamp, TimeStart: at(1), TimeEnd: at(1)}},
		{"unknown type", correction(CorrectionType("smooth"), 0, 1, nil, 0)},
		{"params mismatch", correction(CorrectionClamp, 0, 1, ManualValueParams{Tube: ptr(1)}, 0)},
		{"clamp min above max", correction(CorrectionClamp, 0, 1, ClampParams{Min: ptr(5), Max: ptr(1)}, 0)},
		{"unknown interpolation", correction(CorrectionInterpolate, 0, 1, InterpolateParams{Method: "cubic"}, 0)},
		{"missing start", Correction{Type: CorrectionExclude, TimeEnd: at(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyCorrections(samples, []Correction{tt.correction})
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigError(err), "got %v", err)
		})
	}
}

func TestCorrection_ContainsIsInclusive(t *testing.T) {
	c := Correction{TimeStart: at(1), TimeEnd: at(2)}
	assert.True(t, c.contains(at(1)))
	assert.True(t, c.contains(at(2)))
	assert.False(t, c.contains(at(2).Add(time.Second)))
}
