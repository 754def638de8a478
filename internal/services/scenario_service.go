package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/config"
	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/infrastructure"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Scenario is one analysis request: a well, a period, and the caller's
// exclude list. Smoothing overrides the engine default when set.
type Scenario struct {
	ID        string    `validate:"required"`
	WellID    string    `validate:"required"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required,gtfield=From"`
	Exclude   flowrate.ExcludeSet
	Smoothing *flowrate.SmoothingConfig
}

func (sc Scenario) period() string {
	return sc.From.Format(time.RFC3339) + "/" + sc.To.Format(time.RFC3339)
}

// BatchResult is the outcome of one scenario in a batch
type BatchResult struct {
	Scenario Scenario
	Result   *flowrate.Result
	Err      error
	Duration time.Duration
}

// ComparisonReport holds both computed scenarios and their comparison
type ComparisonReport struct {
	Current    *flowrate.Result
	Baseline   *flowrate.Result
	Comparison flowrate.Comparison
}

// ScenarioService loads scenario inputs through its Sources, runs the
// flow-rate engine, and instruments every run.
type ScenarioService struct {
	sources   Sources
	engineCfg flowrate.Config
	batch     config.BatchConfig
	tracer    trace.Tracer
	metrics   *infrastructure.FlowMetrics
	logger    *slog.Logger
}

// Option configures a ScenarioService
type Option func(*ScenarioService)

// WithTracer sets the tracer used for scenario spans
func WithTracer(tracer trace.Tracer) Option {
	return func(s *ScenarioService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics sets the instruments updated after each run
func WithMetrics(metrics *infrastructure.FlowMetrics) Option {
	return func(s *ScenarioService) {
		s.metrics = metrics
	}
}

// NewScenarioService creates a scenario service. Pressure and Choke sources
// are required; engineCfg is validated once here.
func NewScenarioService(sources Sources, engineCfg flowrate.Config, batch config.BatchConfig, logger *slog.Logger, opts ...Option) (*ScenarioService, error) {
	if sources.Pressure == nil || sources.Choke == nil {
		return nil, ErrMissingSource
	}
	if err := engineCfg.Validate(); err != nil {
		return nil, err
	}
	if batch.MaxConcurrency < 1 {
		batch.MaxConcurrency = config.DefaultMaxConcurrency
	}
	if batch.ScenarioTimeout <= 0 {
		batch.ScenarioTimeout = config.DefaultScenarioTimeout
	}

	s := &ScenarioService{
		sources:   sources,
		engineCfg: engineCfg,
		batch:     batch,
		tracer:    tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		logger:    infrastructure.WithComponent(logger, "scenario_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Calculate loads the inputs of sc and runs the engine on them.
func (s *ScenarioService) Calculate(ctx context.Context, sc Scenario) (res *flowrate.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "scenario.calculate", trace.WithAttributes(
		attribute.String("scenario.id", sc.ID),
		attribute.String("well.id", sc.WellID),
	))
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.ActiveRuns.Add(ctx, 1)
		defer s.metrics.ActiveRuns.Add(ctx, -1)
	}
	defer func() {
		s.metrics.RecordRun(ctx, sc.WellID, time.Since(start), err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
	}()

	if verr := validate.Struct(sc); verr != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid scenario %q: %v", sc.ID, verr))
	}

	in, err := s.load(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", sc.ID, err)
	}

	engineCfg := s.engineCfg
	if sc.Smoothing != nil {
		engineCfg.Smoothing = *sc.Smoothing
	}
	engine, err := flowrate.NewEngine(engineCfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}

	res, err = engine.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("calculate scenario %s: %w", sc.ID, err)
	}

	span.SetAttributes(
		attribute.Int("samples", len(res.Samples)),
		attribute.Int("purge_cycles", len(res.Cycles)),
		attribute.Int("downtime_periods", len(res.Downtime)),
		attribute.Int("corrected_points", res.CorrectedPoints),
	)
	s.metrics.RecordResult(ctx, res)
	return res, nil
}

func (s *ScenarioService) load(ctx context.Context, sc Scenario) (flowrate.Input, error) {
	samples, err := s.sources.Pressure.LoadPressure(ctx, sc.WellID, sc.From, sc.To)
	if err != nil {
		return flowrate.Input{}, fmt.Errorf("load pressure: %w", err)
	}
	choke, err := s.sources.Choke.ChokeDiameter(ctx, sc.WellID)
	if err != nil {
		return flowrate.Input{}, fmt.Errorf("load choke diameter: %w", err)
	}

	var markers []flowrate.PurgeMarker
	if s.sources.Markers != nil {
		if markers, err = s.sources.Markers.LoadMarkers(ctx, sc.WellID, sc.From, sc.To); err != nil {
			return flowrate.Input{}, fmt.Errorf("load markers: %w", err)
		}
	}
	var corrections []flowrate.Correction
	if s.sources.Corrections != nil {
		if corrections, err = s.sources.Corrections.LoadCorrections(ctx, sc.ID); err != nil {
			return flowrate.Input{}, fmt.Errorf("load corrections: %w", err)
		}
	}

	s.logger.DebugContext(ctx, "scenario inputs loaded",
		"scenario_id", sc.ID,
		"samples", len(samples),
		"markers", len(markers),
		"corrections", len(corrections))

	return flowrate.Input{
		ScenarioID:  sc.ID,
		WellID:      sc.WellID,
		Period:      sc.period(),
		Samples:     samples,
		ChokeMM:     choke,
		Corrections: corrections,
		Markers:     markers,
		Exclude:     sc.Exclude,
	}, nil
}

// RunBatch runs scenarios concurrently, at most Batch.MaxConcurrency at a
// time, each under its own Batch.ScenarioTimeout. A failing scenario does not
// stop the others. Results are returned in input order.
func (s *ScenarioService) RunBatch(ctx context.Context, scenarios []Scenario) ([]BatchResult, error) {
	if len(scenarios) == 0 {
		return nil, ErrNoScenarios
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "scenario.batch", trace.WithAttributes(
		attribute.Int("scenarios", len(scenarios)),
	))
	defer span.End()

	s.logger.InfoContext(ctx, "batch started",
		"scenarios", len(scenarios),
		"max_concurrency", s.batch.MaxConcurrency,
		"scenario_timeout", s.batch.ScenarioTimeout.String())

	results := make([]BatchResult, len(scenarios))
	var g errgroup.Group
	g.SetLimit(s.batch.MaxConcurrency)

	for i, sc := range scenarios {
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(ctx, s.batch.ScenarioTimeout)
			defer cancel()

			start := time.Now()
			res, err := s.Calculate(runCtx, sc)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = fmt.Errorf("%w after %s: %w", ErrScenarioTimeout, s.batch.ScenarioTimeout, err)
			}
			if err != nil {
				s.logger.WarnContext(ctx, "scenario failed",
					"scenario_id", sc.ID,
					"well_id", sc.WellID,
					"error_type", string(apperrors.TypeOf(err)),
					"error", err)
			}
			results[i] = BatchResult{Scenario: sc, Result: res, Err: err, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
	s.logger.InfoContext(ctx, "batch complete",
		"scenarios", len(scenarios),
		"succeeded", len(scenarios)-failed,
		"failed", failed)

	return results, nil
}

// Compare calculates both scenarios concurrently and compares their daily
// rows at granularity g. Either failure aborts the comparison.
func (s *ScenarioService) Compare(ctx context.Context, current, baseline Scenario, g flowrate.Granularity) (*ComparisonReport, error) {
	if _, err := flowrate.ParseGranularity(string(g)); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "scenario.compare", trace.WithAttributes(
		attribute.String("current.id", current.ID),
		attribute.String("baseline.id", baseline.ID),
		attribute.String("granularity", string(g)),
	))
	defer span.End()

	var cur, base *flowrate.Result
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		r, err := s.Calculate(egCtx, current)
		if err != nil {
			return fmt.Errorf("current scenario: %w", err)
		}
		cur = r
		return nil
	})
	eg.Go(func() error {
		r, err := s.Calculate(egCtx, baseline)
		if err != nil {
			return fmt.Errorf("baseline scenario: %w", err)
		}
		base = r
		return nil
	})
	if err := eg.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	return CompareResults(cur, base, g)
}

// CompareResults compares two already computed results
func CompareResults(current, baseline *flowrate.Result, g flowrate.Granularity) (*ComparisonReport, error) {
	if current == nil || baseline == nil {
		return nil, apperrors.NewMissingInputError("both results are required for comparison")
	}
	cmp, err := flowrate.CompareScenarios(current.Daily, baseline.Daily, g)
	if err != nil {
		return nil, fmt.Errorf("compare scenarios: %w", err)
	}
	return &ComparisonReport{Current: current, Baseline: baseline, Comparison: cmp}, nil
}
