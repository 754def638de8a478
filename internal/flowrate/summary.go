package flowrate

import (
	"math"
	"time"
)

// medianFilterSize is the kernel of the noise filter applied before flow statistics.
const medianFilterSize = 5

// Summary holds scenario-level KPIs. Pointer fields are nil when the value is
// undefined for the data (for example a zero-length observation span).
type Summary struct {
	WellID          string  `json:"well_id"`
	ChokeMM         float64 `json:"choke_mm"`
	ObservationDays float64 `json:"observation_days"`
	DataPoints      int     `json:"data_points"`
	CorrectedPoints int     `json:"corrected_points"`

	MedianFlowRate *float64 `json:"median_flow_rate"`
	MeanFlowRate   *float64 `json:"mean_flow_rate"`
	Q1FlowRate     *float64 `json:"q1_flow_rate"`
	Q3FlowRate     *float64 `json:"q3_flow_rate"`
	CumulativeFlow *float64 `json:"cumulative_flow"`
	ActualAvgFlow  *float64 `json:"actual_avg_flow"`

	DowntimeMinutes      float64  `json:"downtime_minutes"`
	DowntimeHours        float64  `json:"downtime_hours"`
	DowntimeDays         float64  `json:"downtime_days"`
	DowntimeTotalHours   float64  `json:"downtime_total_hours"`
	TotalDowntimePeriods int      `json:"total_downtime_periods"`
	DowntimeLoss         *float64 `json:"downtime_loss"`
	DowntimeLossDaily    *float64 `json:"downtime_loss_daily"`

	PurgeLossTotal    *float64 `json:"purge_loss_total"`
	PurgeLossDailyAvg *float64 `json:"purge_loss_daily_avg"`
	TotalLossDaily    *float64 `json:"total_loss_daily"`
	LossCoefficient   *float64 `json:"loss_coefficient_pct"`
	EffectiveFlowRate *float64 `json:"effective_flow_rate"`
	// ForecastGain is Q3 minus median flow, a rough improvement-potential proxy.
	ForecastGain *float64 `json:"forecast_gain"`

	MedianTube *float64 `json:"median_p_tube"`
	MedianLine *float64 `json:"median_p_line"`
	MedianDP   *float64 `json:"median_dp"`

	PurgeVentingCount   int     `json:"purge_venting_count"`
	PurgeVentingHours   float64 `json:"purge_venting_hours"`
	PurgeBuildupHours   float64 `json:"purge_buildup_hours"`
	PurgeMarkerCount    int     `json:"purge_marker_count"`
	PurgeAlgorithmCount int     `json:"purge_algorithm_count"`
}

// SummaryInput is everything BuildSummary derives KPIs from.
type SummaryInput struct {
	WellID          string
	ChokeMM         float64
	Points          []SamplePoint
	Downtime        []DowntimePeriod
	Cycles          []PurgeCycle
	CorrectedPoints int
}

// BuildSummary computes the scenario KPIs. Non-finite intermediate results
// are reported as absent.
func BuildSummary(in SummaryInput) Summary {
	s := Summary{
		WellID:          in.WellID,
		ChokeMM:         in.ChokeMM,
		DataPoints:      len(in.Points),
		CorrectedPoints: in.CorrectedPoints,
	}
	n := len(in.Points)
	if n == 0 {
		return s
	}

	times := make([]time.Time, n)
	flow := make([]float64, n)
	tube := make([]float64, n)
	line := make([]float64, n)
	for i, p := range in.Points {
		times[i] = p.Time
		flow[i] = p.FlowRate
		tube[i] = p.Tube
		line[i] = p.Line
	}
	intervals := sampleIntervals(times)

	obsDays := times[n-1].Sub(times[0]).Hours() / 24
	s.ObservationDays = round(obsDays, 2)

	filtered := medianFilter(flow, medianFilterSize)
	medFlow := median(filtered)
	q1 := quantile(filtered, 0.25)
	q3 := quantile(filtered, 0.75)
	cum := in.Points[n-1].CumulativeFlow
	actualAvg := ratio(cum, obsDays)

	s.MedianFlowRate = metric(medFlow, 3)
	s.MeanFlowRate = metric(mean(filtered), 3)
	s.Q1FlowRate = metric(q1, 3)
	s.Q3FlowRate = metric(q3, 3)
	s.CumulativeFlow = metric(cum, 3)
	s.ActualAvgFlow = metric(actualAvg, 3)

	var downMinutes, coveredMinutes, lossSum float64
	for i, p := range in.Points {
		coveredMinutes += intervals[i]
		lossSum += p.VentingLoss
		if p.Downtime {
			downMinutes += intervals[i]
		}
	}
	downDays := downMinutes / 1440
	s.DowntimeMinutes = round(downMinutes, 1)
	s.DowntimeHours = round(downMinutes/60, 2)
	s.DowntimeDays = round(downDays, 3)

	var periodMinutes float64
	for _, p := range in.Downtime {
		periodMinutes += p.DurationMinutes
	}
	s.TotalDowntimePeriods = len(in.Downtime)
	s.DowntimeTotalHours = round(periodMinutes/60, 2)

	downtimeLoss := downDays * medFlow
	downtimeLossDaily := ratio(downtimeLoss, obsDays)
	purgeTotal := in.Points[n-1].CumulativeLoss
	purgeDaily := ratio(lossSum, coveredMinutes/1440)

	s.DowntimeLoss = metric(downtimeLoss, 3)
	s.DowntimeLossDaily = metric(downtimeLossDaily, 4)
	s.PurgeLossTotal = metric(purgeTotal, 4)
	s.PurgeLossDailyAvg = metric(purgeDaily, 4)
	s.TotalLossDaily = metric(downtimeLossDaily+purgeDaily, 4)
	if cum > 0 {
		s.LossCoefficient = metric((downtimeLoss+purgeTotal)/cum*100, 2)
	}
	s.EffectiveFlowRate = metric(actualAvg-purgeDaily, 3)
	s.ForecastGain = metric(q3-medFlow, 3)

	medTube, medLine := median(tube), median(line)
	s.MedianTube = metric(medTube, 2)
	s.MedianLine = metric(medLine, 2)
	s.MedianDP = metric(math.Max(medTube-medLine, 0), 2)

	var ventMinutes, buildMinutes float64
	for _, c := range in.Cycles {
		if c.Excluded {
			continue
		}
		s.PurgeVentingCount++
		ventMinutes += c.VentingDurationMinutes()
		buildMinutes += c.BuildupDurationMinutes()
		switch c.Source {
		case SourceMarker:
			s.PurgeMarkerCount++
		case SourceAlgorithm:
			s.PurgeAlgorithmCount++
		}
	}
	s.PurgeVentingHours = round(ventMinutes/60, 2)
	s.PurgeBuildupHours = round(buildMinutes/60, 2)
	return s
}

// ratio divides a by b, yielding NaN when b is not positive.
func ratio(a, b float64) float64 {
	if !(b > 0) {
		return math.NaN()
	}
	return a / b
}
