package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/config"
	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/infrastructure"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// flatSamples returns days of 10-minute samples at constant pressures.
func flatSamples(days int, tube, line float64) []flowrate.PressureSample {
	n := days * 144
	out := make([]flowrate.PressureSample, n)
	for i := range out {
		out[i] = flowrate.PressureSample{
			Time: day0.Add(time.Duration(i) * 10 * time.Minute),
			Tube: tube,
			Line: line,
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func scenario(id, wellID string) Scenario {
	return Scenario{ID: id, WellID: wellID, From: day0, To: day0.Add(48 * time.Hour)}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newService(t *testing.T, sources Sources, batch config.BatchConfig, opts ...Option) *ScenarioService {
	t.Helper()
	svc, err := NewScenarioService(sources, flowrate.DefaultConfig(), batch, quietLogger(), opts...)
	require.NoError(t, err)
	return svc
}

var testBatch = config.BatchConfig{MaxConcurrency: 2, ScenarioTimeout: 5 * time.Second}

func TestNewScenarioService(t *testing.T) {
	pressure, choke := &MockPressureSource{}, &MockChokeSource{}

	t.Run("requires pressure and choke sources", func(t *testing.T) {
		_, err := NewScenarioService(Sources{Pressure: pressure}, flowrate.DefaultConfig(), testBatch, nil)
		assert.ErrorIs(t, err, ErrMissingSource)
		_, err = NewScenarioService(Sources{Choke: choke}, flowrate.DefaultConfig(), testBatch, nil)
		assert.ErrorIs(t, err, ErrMissingSource)
	})

	t.Run("rejects invalid engine config", func(t *testing.T) {
		cfg := flowrate.DefaultConfig()
		cfg.Smoothing.Passes = 0
		_, err := NewScenarioService(Sources{Pressure: pressure, Choke: choke}, cfg, testBatch, nil)
		assert.True(t, apperrors.IsConfigError(err))
	})

	t.Run("fills batch defaults", func(t *testing.T) {
		svc, err := NewScenarioService(Sources{Pressure: pressure, Choke: choke}, flowrate.DefaultConfig(), config.BatchConfig{}, nil)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultMaxConcurrency, svc.batch.MaxConcurrency)
		assert.Equal(t, config.DefaultScenarioTimeout, svc.batch.ScenarioTimeout)
	})
}

func TestScenarioService_Calculate(t *testing.T) {
	dbDown := errors.New("db down")

	tests := []struct {
		name     string
		scenario Scenario
		setup    func(p *MockPressureSource, c *MockChokeSource)
		check    func(t *testing.T, res *flowrate.Result, err error)
	}{
		{
			name:     "computes flat series",
			scenario: scenario("S1", "W1"),
			setup: func(p *MockPressureSource, c *MockChokeSource) {
				p.On("LoadPressure", mock.Anything, "W1", day0, day0.Add(48*time.Hour)).Return(flatSamples(2, 20, 5), nil)
				c.On("ChokeDiameter", mock.Anything, "W1").Return(ptr(10), nil)
			},
			check: func(t *testing.T, res *flowrate.Result, err error) {
				require.NoError(t, err)
				assert.Equal(t, "S1", res.ScenarioID)
				assert.Equal(t, "W1", res.Summary.WellID)
				assert.Len(t, res.Samples, 288)
				assert.Len(t, res.Daily, 2)
				assert.Empty(t, res.Cycles)
				assert.Empty(t, res.Downtime)
				assert.Greater(t, res.Daily[0].AvgFlowRate, 0.0)
			},
		},
		{
			name:     "no pressure data",
			scenario: scenario("S2", "W2"),
			setup: func(p *MockPressureSource, c *MockChokeSource) {
				p.On("LoadPressure", mock.Anything, "W2", mock.Anything, mock.Anything).Return([]flowrate.PressureSample{}, nil)
				c.On("ChokeDiameter", mock.Anything, "W2").Return(ptr(10), nil)
			},
			check: func(t *testing.T, res *flowrate.Result, err error) {
				assert.Nil(t, res)
				assert.True(t, apperrors.IsMissingInput(err))
			},
		},
		{
			name:     "no choke diameter",
			scenario: scenario("S3", "W3"),
			setup: func(p *MockPressureSource, c *MockChokeSource) {
				p.On("LoadPressure", mock.Anything, "W3", mock.Anything, mock.Anything).Return(flatSamples(1, 20, 5), nil)
				c.On("ChokeDiameter", mock.Anything, "W3").Return(nil, nil)
			},
			check: func(t *testing.T, res *flowrate.Result, err error) {
				assert.Nil(t, res)
				assert.True(t, apperrors.IsMissingInput(err))
				assert.Contains(t, err.Error(), "W3")
			},
		},
		{
			name:     "pressure source failure",
			scenario: scenario("S4", "W4"),
			setup: func(p *MockPressureSource, c *MockChokeSource) {
				p.On("LoadPressure", mock.Anything, "W4", mock.Anything, mock.Anything).Return(nil, dbDown)
			},
			check: func(t *testing.T, res *flowrate.Result, err error) {
				assert.Nil(t, res)
				assert.ErrorIs(t, err, dbDown)
				assert.Contains(t, err.Error(), "load pressure")
			},
		},
		{
			name: "period end before start",
			scenario: Scenario{
				ID: "S5", WellID: "W5", From: day0.Add(time.Hour), To: day0,
			},
			setup: func(p *MockPressureSource, c *MockChokeSource) {},
			check: func(t *testing.T, res *flowrate.Result, err error) {
				assert.Nil(t, res)
				assert.True(t, apperrors.IsValidationError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, c := &MockPressureSource{}, &MockChokeSource{}
			tt.setup(p, c)
			svc := newService(t, Sources{Pressure: p, Choke: c}, testBatch)

			res, err := svc.Calculate(context.Background(), tt.scenario)
			tt.check(t, res, err)
			p.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestScenarioService_Calculate_OptionalSources(t *testing.T) {
	p, c := &MockPressureSource{}, &MockChokeSource{}
	markers, corrections := &MockMarkerSource{}, &MockCorrectionSource{}

	p.On("LoadPressure", mock.Anything, "W1", mock.Anything, mock.Anything).Return(flatSamples(1, 20, 5), nil)
	c.On("ChokeDiameter", mock.Anything, "W1").Return(ptr(10), nil)
	markers.On("LoadMarkers", mock.Anything, "W1", mock.Anything, mock.Anything).Return(nil, nil)
	corrections.On("LoadCorrections", mock.Anything, "S1").Return([]flowrate.Correction{{
		ID:        "c1",
		Type:      flowrate.CorrectionManualValue,
		TimeStart: day0,
		TimeEnd:   day0.Add(time.Hour),
		Params:    flowrate.ManualValueParams{Tube: ptr(25)},
	}}, nil)

	svc := newService(t, Sources{Pressure: p, Choke: c, Markers: markers, Corrections: corrections}, testBatch)
	res, err := svc.Calculate(context.Background(), scenario("S1", "W1"))
	require.NoError(t, err)

	assert.Equal(t, 7, res.CorrectedPoints)
	require.Len(t, res.CorrectionZones, 1)
	assert.Equal(t, "c1", res.CorrectionZones[0].ID)
	assert.Equal(t, 25.0, res.Samples[0].Tube)
	assert.Equal(t, 20.0, res.Samples[7].Tube)
	markers.AssertExpectations(t)
	corrections.AssertExpectations(t)
}

func TestScenarioService_Calculate_SmoothingOverride(t *testing.T) {
	p, c := &MockPressureSource{}, &MockChokeSource{}
	p.On("LoadPressure", mock.Anything, "W1", mock.Anything, mock.Anything).Return(flatSamples(1, 20, 5)[:4], nil)
	c.On("ChokeDiameter", mock.Anything, "W1").Return(ptr(10), nil)

	svc := newService(t, Sources{Pressure: p, Choke: c}, testBatch)
	sc := scenario("S1", "W1")
	sc.Smoothing = &flowrate.SmoothingConfig{Enabled: true, Window: 17, PolyOrder: 3, Passes: 2}

	res, err := svc.Calculate(context.Background(), sc)
	require.NoError(t, err)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, flowrate.DiagnosticInsufficientData, res.Diagnostics[0].Kind)
}

func TestScenarioService_RunBatch(t *testing.T) {
	p, c := &MockPressureSource{}, &MockChokeSource{}
	for _, well := range []string{"W1", "W2", "W3"} {
		p.On("LoadPressure", mock.Anything, well, mock.Anything, mock.Anything).Return(flatSamples(1, 20, 5), nil)
	}
	c.On("ChokeDiameter", mock.Anything, "W1").Return(ptr(10), nil)
	c.On("ChokeDiameter", mock.Anything, "W2").Return(nil, nil)
	c.On("ChokeDiameter", mock.Anything, "W3").Return(ptr(12), nil)

	var logs bytes.Buffer
	logger, _, err := infrastructure.NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &logs)
	require.NoError(t, err)
	svc, err := NewScenarioService(Sources{Pressure: p, Choke: c}, flowrate.DefaultConfig(), testBatch, logger)
	require.NoError(t, err)

	scenarios := []Scenario{scenario("S1", "W1"), scenario("S2", "W2"), scenario("S3", "W3")}
	results, err := svc.RunBatch(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, scenarios[i].ID, r.Scenario.ID, "results keep input order")
	}
	require.NoError(t, results[0].Err)
	require.NoError(t, results[2].Err)
	assert.True(t, apperrors.IsMissingInput(results[1].Err))
	assert.Nil(t, results[1].Result)
	assert.Greater(t, results[2].Result.Summary.ChokeMM, results[0].Result.Summary.ChokeMM)

	assert.Contains(t, logs.String(), "batch complete")
	assert.Contains(t, logs.String(), `"failed":1`)
	assert.Contains(t, logs.String(), `"trace_id"`)
}

func TestScenarioService_RunBatch_Empty(t *testing.T) {
	svc := newService(t, Sources{Pressure: &MockPressureSource{}, Choke: &MockChokeSource{}}, testBatch)
	_, err := svc.RunBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoScenarios)
}

func TestScenarioService_RunBatch_Timeout(t *testing.T) {
	svc := newService(t, Sources{Pressure: blockingPressure{}, Choke: &MockChokeSource{}},
		config.BatchConfig{MaxConcurrency: 2, ScenarioTimeout: 50 * time.Millisecond})

	t.Run("per scenario timeout", func(t *testing.T) {
		results, err := svc.RunBatch(context.Background(), []Scenario{scenario("S1", "W1"), scenario("S2", "W2")})
		require.NoError(t, err)
		for _, r := range results {
			assert.ErrorIs(t, r.Err, ErrScenarioTimeout)
			assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
		}
	})

	t.Run("parent cancellation is not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		results, err := svc.RunBatch(ctx, []Scenario{scenario("S1", "W1")})
		require.NoError(t, err)
		assert.ErrorIs(t, results[0].Err, context.Canceled)
		assert.NotErrorIs(t, results[0].Err, ErrScenarioTimeout)
	})
}

func TestScenarioService_Compare(t *testing.T) {
	p, c := &MockPressureSource{}, &MockChokeSource{}
	p.On("LoadPressure", mock.Anything, "W1", mock.Anything, mock.Anything).Return(flatSamples(2, 20, 5), nil)
	p.On("LoadPressure", mock.Anything, "W2", mock.Anything, mock.Anything).Return(flatSamples(2, 20, 10), nil)
	c.On("ChokeDiameter", mock.Anything, mock.Anything).Return(ptr(10), nil)

	svc := newService(t, Sources{Pressure: p, Choke: c}, testBatch)

	t.Run("daily", func(t *testing.T) {
		report, err := svc.Compare(context.Background(), scenario("cur", "W1"), scenario("base", "W2"), flowrate.GranularityDaily)
		require.NoError(t, err)
		require.Len(t, report.Comparison.Rows, 2)
		for _, row := range report.Comparison.Rows {
			require.NotNil(t, row.DeltaFlow)
			assert.Greater(t, *row.DeltaFlow, 0.0)
		}
		require.NotNil(t, report.Comparison.Totals)
		assert.Greater(t, report.Comparison.Totals.CurrentTotalFlow, report.Comparison.Totals.BaselineTotalFlow)
	})

	t.Run("unknown granularity", func(t *testing.T) {
		_, err := svc.Compare(context.Background(), scenario("cur", "W1"), scenario("base", "W2"), flowrate.Granularity("hourly"))
		assert.True(t, apperrors.IsConfigError(err))
	})

	t.Run("failing side aborts", func(t *testing.T) {
		bad := scenario("base", "W2")
		bad.To = bad.From
		_, err := svc.Compare(context.Background(), scenario("cur", "W1"), bad, flowrate.GranularityDaily)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "baseline scenario")
	})
}

func TestCompareResults_RequiresBoth(t *testing.T) {
	_, err := CompareResults(&flowrate.Result{}, nil, flowrate.GranularityDaily)
	assert.True(t, apperrors.IsMissingInput(err))
}

func TestScenarioService_Telemetry(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.NewFlowMetrics(mp.Meter("test"))
	require.NoError(t, err)

	p, c := &MockPressureSource{}, &MockChokeSource{}
	p.On("LoadPressure", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(flatSamples(1, 20, 5), nil)
	c.On("ChokeDiameter", mock.Anything, "W1").Return(ptr(10), nil)
	c.On("ChokeDiameter", mock.Anything, "W2").Return(nil, nil)

	svc := newService(t, Sources{Pressure: p, Choke: c}, testBatch,
		WithTracer(tp.Tracer("test")), WithMetrics(metrics))

	ctx := context.Background()
	_, err = svc.Calculate(ctx, scenario("S1", "W1"))
	require.NoError(t, err)
	_, err = svc.Calculate(ctx, scenario("S2", "W2"))
	require.Error(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "scenario.calculate", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumOf(findSum(t, rm, "flowcalc_runs")))
	assert.Equal(t, int64(144), sumOf(findSum(t, rm, "flowcalc_samples")))
}

func findSum(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok, "%s is not an int64 sum", name)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return metricdata.Sum[int64]{}
}

func sumOf(s metricdata.Sum[int64]) int64 {
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}
