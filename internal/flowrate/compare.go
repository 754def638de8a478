package flowrate

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

// Granularity is the period size of a scenario comparison.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity accepts daily, weekly or monthly; empty means daily.
func ParseGranularity(raw string) (Granularity, error) {
	switch g := Granularity(raw); g {
	case "":
		return GranularityDaily, nil
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return g, nil
	default:
		return "", apperrors.NewConfigError(fmt.Sprintf("unknown granularity %q", raw), nil)
	}
}

// periodStart maps a date to the first day of its period. Weeks start on Monday.
func (g Granularity) periodStart(d civil.Date) civil.Date {
	switch g {
	case GranularityWeekly:
		offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
		return d.AddDays(-offset)
	case GranularityMonthly:
		return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	default:
		return d
	}
}

func (g Granularity) label(start civil.Date) string {
	switch g {
	case GranularityWeekly:
		_, week := start.In(time.UTC).ISOWeek()
		return fmt.Sprintf("W%02d (%s)", week, start)
	case GranularityMonthly:
		return fmt.Sprintf("%04d-%02d", start.Year, int(start.Month))
	default:
		return start.String()
	}
}

// PeriodComparison is one row of a comparison. Values missing on either side
// leave the corresponding deltas nil.
type PeriodComparison struct {
	Period string     `json:"period"`
	Start  civil.Date `json:"start"`

	CurrentAvgFlow  *float64 `json:"current_avg_flow"`
	BaselineAvgFlow *float64 `json:"baseline_avg_flow"`
	DeltaFlow       *float64 `json:"delta_flow"`
	DeltaFlowPct    *float64 `json:"delta_flow_pct"`

	CurrentCumulative  *float64 `json:"current_cumulative"`
	BaselineCumulative *float64 `json:"baseline_cumulative"`
	DeltaCumulative    *float64 `json:"delta_cumulative"`
	DeltaCumulativePct *float64 `json:"delta_cumulative_pct"`

	CurrentDowntimeMinutes  *float64 `json:"current_downtime_min"`
	BaselineDowntimeMinutes *float64 `json:"baseline_downtime_min"`
}

// ComparisonTotals compares the whole periods.
type ComparisonTotals struct {
	CurrentTotalFlow  float64  `json:"current_total_flow"`
	BaselineTotalFlow float64  `json:"baseline_total_flow"`
	CurrentAvgRate    float64  `json:"current_avg_rate"`
	BaselineAvgRate   float64  `json:"baseline_avg_rate"`
	DeltaTotal        float64  `json:"delta_total"`
	DeltaTotalPct     *float64 `json:"delta_total_pct"`
}

// Comparison is the result of CompareScenarios. Totals is nil when either
// side has no rows.
type Comparison struct {
	Granularity Granularity        `json:"granularity"`
	Rows        []PeriodComparison `json:"rows"`
	Totals      *ComparisonTotals  `json:"totals,omitempty"`
}

// periodAggregate is a DailyResult sequence resampled into one period.
type periodAggregate struct {
	avgFlow    float64
	cumulative float64
	downtime   float64
}

// CompareScenarios resamples both daily sequences to the granularity (sums
// for volumes and minutes, means for rates) and joins them on period.
func CompareScenarios(current, baseline []DailyResult, g Granularity) (Comparison, error) {
	g, err := ParseGranularity(string(g))
	if err != nil {
		return Comparison{}, err
	}
	cur := resample(current, g)
	base := resample(baseline, g)

	keys := make([]civil.Date, 0, len(cur)+len(base))
	seen := make(map[civil.Date]bool, len(cur)+len(base))
	for _, m := range []map[civil.Date]periodAggregate{cur, base} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := Comparison{Granularity: g, Rows: make([]PeriodComparison, 0, len(keys))}
	for _, k := range keys {
		row := PeriodComparison{Period: g.label(k), Start: k}
		c, hasCur := cur[k]
		b, hasBase := base[k]
		if hasCur {
			row.CurrentAvgFlow = metric(c.avgFlow, 4)
			row.CurrentCumulative = metric(c.cumulative, 4)
			row.CurrentDowntimeMinutes = metric(c.downtime, 1)
		}
		if hasBase {
			row.BaselineAvgFlow = metric(b.avgFlow, 4)
			row.BaselineCumulative = metric(b.cumulative, 4)
			row.BaselineDowntimeMinutes = metric(b.downtime, 1)
		}
		if hasCur && hasBase {
			row.DeltaFlow = metric(c.avgFlow-b.avgFlow, 4)
			row.DeltaFlowPct = percentDelta(c.avgFlow, b.avgFlow)
			row.DeltaCumulative = metric(c.cumulative-b.cumulative, 4)
			row.DeltaCumulativePct = percentDelta(c.cumulative, b.cumulative)
		}
		out.Rows = append(out.Rows, row)
	}

	if len(cur) > 0 && len(base) > 0 {
		out.Totals = totals(cur, base)
	}
	return out, nil
}

func resample(days []DailyResult, g Granularity) map[civil.Date]periodAggregate {
	type bucket struct {
		flows      []float64
		cumulative float64
		downtime   float64
	}
	buckets := make(map[civil.Date]*bucket)
	for _, d := range days {
		k := g.periodStart(d.Date)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.flows = append(b.flows, d.AvgFlowRate)
		b.cumulative += d.CumulativeFlow
		b.downtime += d.DowntimeMinutes
	}
	out := make(map[civil.Date]periodAggregate, len(buckets))
	for k, b := range buckets {
		out[k] = periodAggregate{avgFlow: mean(b.flows), cumulative: b.cumulative, downtime: b.downtime}
	}
	return out
}

func totals(cur, base map[civil.Date]periodAggregate) *ComparisonTotals {
	sum := func(m map[civil.Date]periodAggregate) (float64, float64) {
		keys := make([]civil.Date, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
		var total float64
		rates := make([]float64, 0, len(keys))
		for _, k := range keys {
			total += m[k].cumulative
			rates = append(rates, m[k].avgFlow)
		}
		return total, mean(rates)
	}
	curTotal, curRate := sum(cur)
	baseTotal, baseRate := sum(base)
	t := &ComparisonTotals{
		CurrentTotalFlow:  round(curTotal, 3),
		BaselineTotalFlow: round(baseTotal, 3),
		CurrentAvgRate:    round(curRate, 4),
		BaselineAvgRate:   round(baseRate, 4),
	}
	t.DeltaTotal = round(t.CurrentTotalFlow-t.BaselineTotalFlow, 3)
	t.DeltaTotalPct = percentDelta(t.CurrentTotalFlow, t.BaselineTotalFlow)
	return t
}

// percentDelta is (current-base)/base in percent, nil when base is zero.
func percentDelta(current, base float64) *float64 {
	if base == 0 {
		return nil
	}
	return metric((current-base)/base*100, 2)
}
