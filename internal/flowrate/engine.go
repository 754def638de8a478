package flowrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

// DefaultChartPoints caps the number of samples returned for charting.
const DefaultChartPoints = 2000

// Input is one scenario computation request.
type Input struct {
	ScenarioID string
	WellID     string
	// Period describes the requested range for error reporting only.
	Period      string
	Samples     []PressureSample
	ChokeMM     *float64
	Corrections []Correction
	Markers     []PurgeMarker
	Exclude     ExcludeSet
}

// Result is the complete output of a run.
type Result struct {
	ScenarioID      string           `json:"scenario_id,omitempty"`
	WellID          string           `json:"well_id"`
	Samples         []SamplePoint    `json:"samples"`
	Daily           []DailyResult    `json:"daily"`
	Summary         Summary          `json:"summary"`
	Cycles          []PurgeCycle     `json:"purge_cycles"`
	Downtime        []DowntimePeriod `json:"downtime_periods"`
	CorrectedPoints int              `json:"corrected_points"`
	CorrectionZones []CorrectionZone `json:"correction_zones,omitempty"`
	Diagnostics     []Diagnostic     `json:"diagnostics,omitempty"`
}

// Chart returns at most maxPoints samples by keeping every k-th one.
// maxPoints <= 0 selects DefaultChartPoints.
func (r *Result) Chart(maxPoints int) []SamplePoint {
	if maxPoints <= 0 {
		maxPoints = DefaultChartPoints
	}
	n := len(r.Samples)
	if n <= maxPoints {
		return r.Samples
	}
	step := (n + maxPoints - 1) / maxPoints
	out := make([]SamplePoint, 0, maxPoints)
	for i := 0; i < n; i += step {
		out = append(out, r.Samples[i])
	}
	return out
}

// Engine runs the full flow-rate pipeline. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine validates cfg and returns an engine using it.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run computes flow, purge cycles, downtime, daily rows and KPIs for one
// scenario. Missing inputs and invalid corrections fail before any
// computation; degraded stages are reported in Result.Diagnostics.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	log := e.logger.With("scenario_id", in.ScenarioID, "well_id", in.WellID)

	if len(in.Samples) == 0 {
		return nil, apperrors.MissingPressureData(in.WellID, in.Period)
	}
	if in.ChokeMM == nil || !(*in.ChokeMM > 0) {
		return nil, apperrors.MissingChokeDiameter(in.WellID)
	}
	if err := ValidateCorrections(in.Corrections); err != nil {
		return nil, err
	}
	if err := validateSamples(in.Samples); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}

	log.InfoContext(ctx, "starting flow rate calculation",
		"samples", len(in.Samples),
		"corrections", len(in.Corrections),
		"markers", len(in.Markers),
		"choke_mm", *in.ChokeMM,
	)

	res := &Result{ScenarioID: in.ScenarioID, WellID: in.WellID}

	s := newSeries(Clean(in.Samples))
	if ch := s.emptyChannel(); ch != "" {
		return nil, apperrors.MissingChannelData(in.WellID, ch)
	}
	corrected, zones, err := applyCorrections(s, in.Corrections)
	if err != nil {
		return nil, fmt.Errorf("apply corrections: %w", err)
	}
	// an exclude spanning the whole series leaves nothing to fill from
	if ch := s.emptyChannel(); ch != "" {
		return nil, apperrors.MissingChannelData(in.WellID, ch).WithContext("stage", "corrections")
	}
	res.CorrectedPoints = corrected
	res.CorrectionZones = zones
	log.DebugContext(ctx, "corrections applied", "corrected_points", corrected)

	raw := s.clone()
	if e.cfg.Smoothing.Enabled {
		for _, d := range s.smooth(e.cfg.Smoothing) {
			log.WarnContext(ctx, "smoothing skipped", "stage", d.Stage, "reason", d.Message)
			res.Diagnostics = append(res.Diagnostics, d)
		}
	}

	flow := computeFlow(s, *in.ChokeMM, e.cfg)
	if flow.degenerate > 0 {
		log.WarnContext(ctx, "non-finite flow values replaced by zero", "count", flow.degenerate)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagnosticNumericDegeneracy,
			Stage:   "flow",
			Message: fmt.Sprintf("%d samples produced a non-finite flow rate", flow.degenerate),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}

	exclude := in.Exclude
	if exclude == nil {
		exclude = ExcludeSet{}
	}
	res.Cycles = DetectPurgeCycles(s.times, s.tube, in.Markers, e.cfg.Detection, exclude)
	log.DebugContext(ctx, "purge cycles detected", "cycles", len(res.Cycles))

	down := downtimeMask(s.tube, s.line)
	loss, purge := ApplyCycleLoss(s.times, flow.loss, down, res.Cycles)
	cumLoss := runningSum(loss)
	res.Downtime = DetectDowntime(s.times, s.tube, s.line, e.cfg.Downtime)

	res.Samples = make([]SamplePoint, s.len())
	for i := range res.Samples {
		res.Samples[i] = SamplePoint{
			Time:           s.times[i],
			Tube:           s.tube[i],
			Line:           s.line[i],
			TubeRaw:        raw.tube[i],
			LineRaw:        raw.line[i],
			FlowRate:       flow.rate[i],
			CumulativeFlow: flow.cumulative[i],
			Downtime:       down[i],
			Purge:          purge[i],
			VentingLoss:    loss[i],
			CumulativeLoss: cumLoss[i],
		}
	}

	res.Daily = AggregateDaily(res.Samples, corrected)
	res.Summary = BuildSummary(SummaryInput{
		WellID:          in.WellID,
		ChokeMM:         *in.ChokeMM,
		Points:          res.Samples,
		Downtime:        res.Downtime,
		Cycles:          res.Cycles,
		CorrectedPoints: corrected,
	})

	log.InfoContext(ctx, "flow rate calculation completed",
		"duration", time.Since(start),
		"days", len(res.Daily),
		"purge_cycles", len(res.Cycles),
		"downtime_periods", len(res.Downtime),
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}
