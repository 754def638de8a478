package flowrate

import (
	"math"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// PressureSample is one wellhead measurement. Missing pressures are NaN.
// Pressures are in kgf/cm².
type PressureSample struct {
	Time time.Time `json:"time"`
	Tube float64   `json:"p_tube"`
	Line float64   `json:"p_line"`
}

// Missing returns the value used for an absent pressure reading.
func Missing() float64 {
	return math.NaN()
}

// CorrectionType names a kind of manual correction.
type CorrectionType string

const (
	CorrectionExclude     CorrectionType = "exclude"
	CorrectionInterpolate CorrectionType = "interpolate"
	CorrectionManualValue CorrectionType = "manual_value"
	CorrectionClamp       CorrectionType = "clamp"
)

// InterpolationMethod selects how an interpolate correction bridges its gap.
type InterpolationMethod string

const (
	// InterpolateLinear treats samples as equally spaced.
	InterpolateLinear InterpolationMethod = "linear"
	// InterpolateTime weights by elapsed time between samples.
	InterpolateTime InterpolationMethod = "time"
	// InterpolateNearest copies the nearest valid neighbour.
	InterpolateNearest InterpolationMethod = "nearest"
)

// CorrectionParams is the payload of a Correction. Exactly one concrete type
// exists per CorrectionType.
type CorrectionParams interface {
	correctionType() CorrectionType
}

// ExcludeParams drops the window; it is refilled from surrounding measurements.
type ExcludeParams struct{}

// InterpolateParams bridges the window with the given method (linear when empty).
type InterpolateParams struct {
	Method InterpolationMethod `json:"method,omitempty" validate:"omitempty,oneof=linear time nearest"`
}

// ManualValueParams overwrites the window with fixed values. Nil channels are left untouched.
type ManualValueParams struct {
	Tube *float64 `json:"tube_value,omitempty"`
	Line *float64 `json:"line_value,omitempty"`
}

// ClampParams limits values in the window. A nil bound means no limit on that side.
type ClampParams struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (ExcludeParams) correctionType() CorrectionType     { return CorrectionExclude }
func (InterpolateParams) correctionType() CorrectionType { return CorrectionInterpolate }
func (ManualValueParams) correctionType() CorrectionType { return CorrectionManualValue }
func (ClampParams) correctionType() CorrectionType       { return CorrectionClamp }

// Correction is a manual edit applied to the closed window [TimeStart, TimeEnd].
// Corrections run in ascending Order; later ones see the output of earlier ones.
type Correction struct {
	ID        string           `json:"id,omitempty"`
	Type      CorrectionType   `json:"type" validate:"required,oneof=exclude interpolate manual_value clamp"`
	TimeStart time.Time        `json:"time_start" validate:"required"`
	TimeEnd   time.Time        `json:"time_end" validate:"required,gtfield=TimeStart"`
	Params    CorrectionParams `json:"params,omitempty"`
	Order     int              `json:"order"`
	Reason    string           `json:"reason,omitempty"`
}

func (c Correction) contains(t time.Time) bool {
	return !t.Before(c.TimeStart) && !t.After(c.TimeEnd)
}

// CorrectionZone echoes an applied correction for charting consumers.
type CorrectionZone struct {
	ID     string         `json:"id,omitempty"`
	Type   CorrectionType `json:"type"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Reason string         `json:"reason,omitempty"`
}

// MarkerPhase is an operator-reported purge phase.
type MarkerPhase string

const (
	PhaseStart MarkerPhase = "start"
	PhasePress MarkerPhase = "press"
	PhaseStop  MarkerPhase = "stop"
)

// NormalizePhase lower-cases and trims a raw phase label.
func NormalizePhase(raw string) MarkerPhase {
	return MarkerPhase(strings.ToLower(strings.TrimSpace(raw)))
}

// PurgeMarker is a discrete operator marker. Tube is the pressure the operator
// recorded, or NaN when unknown.
type PurgeMarker struct {
	Time  time.Time   `json:"time"`
	Phase MarkerPhase `json:"phase"`
	Tube  float64     `json:"p_tube"`
}

// CycleSource tells which detector produced a cycle.
type CycleSource string

const (
	SourceMarker    CycleSource = "marker"
	SourceAlgorithm CycleSource = "algorithm"
)

// PurgeCycle is one full or partial venting → buildup → restart cycle.
type PurgeCycle struct {
	ID     string      `json:"id"`
	Source CycleSource `json:"source"`

	VentingStart *time.Time `json:"venting_start,omitempty"`
	VentingEnd   *time.Time `json:"venting_end,omitempty"`
	BuildupStart *time.Time `json:"buildup_start,omitempty"`
	BuildupEnd   *time.Time `json:"buildup_end,omitempty"`
	RestartTime  *time.Time `json:"restart_time,omitempty"`

	PStart  float64 `json:"p_start"`
	PBottom float64 `json:"p_bottom"`
	PEnd    float64 `json:"p_end"`

	Confidence float64 `json:"confidence"`
	Excluded   bool    `json:"excluded"`
}

// VentingDurationMinutes is zero unless both venting bounds are known.
func (c PurgeCycle) VentingDurationMinutes() float64 {
	return spanMinutes(c.VentingStart, c.VentingEnd)
}

// BuildupDurationMinutes is zero unless both buildup bounds are known.
func (c PurgeCycle) BuildupDurationMinutes() float64 {
	return spanMinutes(c.BuildupStart, c.BuildupEnd)
}

// TotalDurationMinutes spans Start to End.
func (c PurgeCycle) TotalDurationMinutes() float64 {
	return spanMinutes(c.Start(), c.End())
}

// Start is the venting start, or the buildup start for cycles without one.
func (c PurgeCycle) Start() *time.Time {
	if c.VentingStart != nil {
		return c.VentingStart
	}
	return c.BuildupStart
}

// End is the latest known boundary: buildup end, else restart, else venting end.
func (c PurgeCycle) End() *time.Time {
	switch {
	case c.BuildupEnd != nil:
		return c.BuildupEnd
	case c.RestartTime != nil:
		return c.RestartTime
	default:
		return c.VentingEnd
	}
}

func spanMinutes(from, to *time.Time) float64 {
	if from == nil || to == nil {
		return 0
	}
	return to.Sub(*from).Minutes()
}

// ExcludeSet holds caller-maintained cycle ids to ignore.
type ExcludeSet map[string]struct{}

// NewExcludeSet builds a set from ids, ignoring blanks.
func NewExcludeSet(ids ...string) ExcludeSet {
	set := make(ExcludeSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// ParseExcludeIDs parses a comma-separated id list.
func ParseExcludeIDs(raw string) ExcludeSet {
	return NewExcludeSet(strings.Split(raw, ",")...)
}

// Has reports whether id is excluded.
func (s ExcludeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the ids in sorted order.
func (s ExcludeSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DowntimePeriod is a contiguous run of samples with p_tube < p_line.
type DowntimePeriod struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_min"`
	DurationHours   float64   `json:"duration_hours"`
	IsBlowout       bool      `json:"is_blowout"`
	// IntervalHours is the gap to the previous period's start; nil for the first period.
	IntervalHours *float64 `json:"interval_hours,omitempty"`
}

// SamplePoint is one fully annotated sample of the computed series.
type SamplePoint struct {
	Time    time.Time `json:"time"`
	Tube    float64   `json:"p_tube"`
	Line    float64   `json:"p_line"`
	TubeRaw float64   `json:"p_tube_raw"`
	LineRaw float64   `json:"p_line_raw"`

	FlowRate       float64 `json:"flow_rate"`
	CumulativeFlow float64 `json:"cumulative_flow"`

	Downtime       bool    `json:"downtime"`
	Purge          bool    `json:"purge_flag"`
	VentingLoss    float64 `json:"venting_loss"`
	CumulativeLoss float64 `json:"cumulative_venting_loss"`
}

// DailyResult aggregates one calendar date.
type DailyResult struct {
	Date            civil.Date `json:"date"`
	AvgFlowRate     float64    `json:"avg_flow_rate"`
	MinFlowRate     float64    `json:"min_flow_rate"`
	MaxFlowRate     float64    `json:"max_flow_rate"`
	MedianFlowRate  float64    `json:"median_flow_rate"`
	CumulativeFlow  float64    `json:"cumulative_flow"`
	AvgTube         float64    `json:"avg_p_tube"`
	AvgLine         float64    `json:"avg_p_line"`
	AvgDP           float64    `json:"avg_dp"`
	PurgeLoss       float64    `json:"purge_loss"`
	DowntimeMinutes float64    `json:"downtime_minutes"`
	DataPoints      int        `json:"data_points"`
	CorrectedPoints int        `json:"corrected_points"`
}

// DiagnosticKind classifies a non-fatal condition absorbed during a run.
type DiagnosticKind string

const (
	DiagnosticInsufficientData  DiagnosticKind = "insufficient_data"
	DiagnosticNumericDegeneracy DiagnosticKind = "numeric_degeneracy"
)

// Diagnostic reports a non-fatal degradation alongside a result.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Stage   string         `json:"stage"`
	Message string         `json:"message"`
}
