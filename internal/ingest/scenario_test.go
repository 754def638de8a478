package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

const fullScenario = `id: base
well_id: "W-1"
period_start: 2025-01-01T00:00:00Z
period_end: 2025-01-31T23:59:59Z
choke_mm: 12.7
pressure_file: data/pressure.csv
markers_file: /abs/markers.csv
separator: ";"
timezone: UTC
exclude_purge_ids: " m-1, a-2 "
smoothing:
  enabled: true
  window: 11
  polyorder: 2
  passes: 1
corrections:
  - id: c1
    type: exclude
    time_start: 2025-01-02T00:00:00Z
    time_end: 2025-01-02T01:00:00Z
  - id: c2
    type: interpolate
    method: time
    time_start: 2025-01-03T00:00:00Z
    time_end: 2025-01-03T01:00:00Z
    order: 2
  - id: c3
    type: manual_value
    tube_value: 12.5
    time_start: 2025-01-04T00:00:00Z
    time_end: 2025-01-04T01:00:00Z
  - id: c4
    type: clamp
    min: 0
    max: 50
    time_start: 2025-01-05T00:00:00Z
    time_end: 2025-01-05T01:00:00Z
    reason: sensor spike
`

func TestLoadScenarioFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "base.yaml", fullScenario)

	sf, err := LoadScenarioFile(path)
	require.NoError(t, err)

	assert.Equal(t, "base", sf.ID)
	assert.Equal(t, "W-1", sf.WellID)
	require.NotNil(t, sf.ChokeMM)
	assert.Equal(t, 12.7, *sf.ChokeMM)
	assert.Equal(t, filepath.Join(dir, "data", "pressure.csv"), sf.resolve(sf.PressureFile))
	assert.Equal(t, "/abs/markers.csv", sf.resolve(sf.MarkersFile))

	sc := sf.Scenario()
	assert.True(t, sc.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, sc.Exclude.Has("m-1"))
	assert.True(t, sc.Exclude.Has("a-2"))
	assert.False(t, sc.Exclude.Has(""))
	require.NotNil(t, sc.Smoothing)
	assert.Equal(t, 11, sc.Smoothing.Window)

	opts, err := sf.ReadOptions()
	require.NoError(t, err)
	assert.Equal(t, ';', opts.Comma)
	assert.Equal(t, time.UTC, opts.Location)

	corrections, err := sf.EngineCorrections()
	require.NoError(t, err)
	require.Len(t, corrections, 4)

	assert.Equal(t, flowrate.CorrectionExclude, corrections[0].Type)
	assert.Equal(t, flowrate.ExcludeParams{}, corrections[0].Params)
	assert.Equal(t, flowrate.InterpolateParams{Method: flowrate.InterpolateTime}, corrections[1].Params)
	assert.Equal(t, 2, corrections[1].Order)

	manual, ok := corrections[2].Params.(flowrate.ManualValueParams)
	require.True(t, ok)
	require.NotNil(t, manual.Tube)
	assert.Equal(t, 12.5, *manual.Tube)
	assert.Nil(t, manual.Line)

	clamp, ok := corrections[3].Params.(flowrate.ClampParams)
	require.True(t, ok)
	assert.Equal(t, 0.0, *clamp.Min)
	assert.Equal(t, 50.0, *clamp.Max)
	assert.Equal(t, "sensor spike", corrections[3].Reason)
}

func TestLoadScenarioFile_Errors(t *testing.T) {
	const minimal = "id: s\nwell_id: w\npressure_file: p.csv\n"

	tests := []struct {
		name    string
		content string
		want    apperrors.ErrorType
	}{
		{
			name:    "malformed yaml",
			content: "id: [unclosed",
			want:    apperrors.ErrTypeParsing,
		},
		{
			name:    "unknown key",
			content: minimal + "period_start: 2025-01-01T00:00:00Z\nperiod_end: 2025-01-02T00:00:00Z\nchoke: 3\n",
			want:    apperrors.ErrTypeParsing,
		},
		{
			name:    "missing period",
			content: minimal,
			want:    apperrors.ErrTypeConfig,
		},
		{
			name:    "period end before start",
			content: minimal + "period_start: 2025-01-02T00:00:00Z\nperiod_end: 2025-01-01T00:00:00Z\n",
			want:    apperrors.ErrTypeConfig,
		},
		{
			name:    "negative choke",
			content: minimal + "period_start: 2025-01-01T00:00:00Z\nperiod_end: 2025-01-02T00:00:00Z\nchoke_mm: -1\n",
			want:    apperrors.ErrTypeConfig,
		},
		{
			name:    "bad separator",
			content: minimal + "period_start: 2025-01-01T00:00:00Z\nperiod_end: 2025-01-02T00:00:00Z\nseparator: \"|\"\n",
			want:    apperrors.ErrTypeConfig,
		},
		{
			name: "correction without type",
			content: minimal + "period_start: 2025-01-01T00:00:00Z\nperiod_end: 2025-01-02T00:00:00Z\n" +
				"corrections:\n  - time_start: 2025-01-01T00:00:00Z\n    time_end: 2025-01-01T01:00:00Z\n",
			want: apperrors.ErrTypeConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenarioFile(path)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))
		})
	}
}

func TestLoadScenarioFile_NotFound(t *testing.T) {
	_, err := LoadScenarioFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, apperrors.ErrTypeNotFound, apperrors.TypeOf(err))
}

func TestCorrectionSpec_UnknownType(t *testing.T) {
	_, err := CorrectionSpec{ID: "x", Type: "scale"}.Correction()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}

func TestScenarioFile_ReadOptionsUnknownTimezone(t *testing.T) {
	sf := &ScenarioFile{ID: "s", Timezone: "Mars/Olympus"}
	_, err := sf.ReadOptions()
	assert.True(t, apperrors.IsConfigError(err))
}
