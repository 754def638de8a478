package flowrate

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
)

// ApplyCycleLoss rebuilds the venting loss from detected cycles. Loss is kept
// only inside [VentingStart, VentingEnd] of non-excluded cycles. With no
// active cycle the preliminary loss and the downtime mask are returned as
// they are. The returned flags mark samples counted as purge.
func ApplyCycleLoss(times []time.Time, preliminary []float64, downtime []bool, cycles []PurgeCycle) ([]float64, []bool) {
	loss := append([]float64(nil), preliminary...)
	var active []PurgeCycle
	for _, c := range cycles {
		if !c.Excluded {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return loss, append([]bool(nil), downtime...)
	}

	purge := make([]bool, len(times))
	for _, c := range active {
		if c.VentingStart == nil || c.VentingEnd == nil {
			continue
		}
		for i, t := range times {
			if !t.Before(*c.VentingStart) && !t.After(*c.VentingEnd) {
				purge[i] = true
			}
		}
	}
	for i := range loss {
		if !purge[i] {
			loss[i] = 0
		}
	}
	return loss, purge
}

// runningSum returns the prefix sums of values.
func runningSum(values []float64) []float64 {
	out := make([]float64, len(values))
	total := 0.0
	for i, v := range values {
		total += v
		out[i] = total
	}
	return out
}

// AggregateDaily groups annotated samples by calendar date. The flow volume of
// the segment between two samples is credited to the day of the later sample,
// so the daily volumes add up to the series total. correctedPoints is
// prorated by each day's share of samples and rounded; the shares need not
// add up to the total.
func AggregateDaily(points []SamplePoint, correctedPoints int) []DailyResult {
	if len(points) == 0 {
		return nil
	}
	times := make([]time.Time, len(points))
	for i, p := range points {
		times[i] = p.Time
	}
	intervals := sampleIntervals(times)
	total := len(points)

	var days []DailyResult
	for lo := 0; lo < total; {
		date := civil.DateOf(points[lo].Time)
		hi := lo
		for hi < total && civil.DateOf(points[hi].Time) == date {
			hi++
		}
		days = append(days, aggregateDay(date, points, intervals, lo, hi, correctedPoints, total))
		lo = hi
	}
	return days
}

func aggregateDay(date civil.Date, points []SamplePoint, intervals []float64, lo, hi, corrected, total int) DailyResult {
	n := hi - lo
	flow := make([]float64, 0, n)
	tube := make([]float64, 0, n)
	line := make([]float64, 0, n)
	dp := make([]float64, 0, n)
	var volume, loss, downtime float64
	for i := lo; i < hi; i++ {
		p := points[i]
		flow = append(flow, p.FlowRate)
		tube = append(tube, p.Tube)
		line = append(line, p.Line)
		dp = append(dp, p.Tube-p.Line)
		if i > 0 {
			volume += p.CumulativeFlow - points[i-1].CumulativeFlow
		}
		loss += p.VentingLoss
		if p.Downtime {
			downtime += intervals[i]
		}
	}
	lowest, highest := minMax(flow)
	return DailyResult{
		Date:            date,
		AvgFlowRate:     round(mean(flow), 4),
		MinFlowRate:     round(lowest, 4),
		MaxFlowRate:     round(highest, 4),
		MedianFlowRate:  round(median(flow), 4),
		CumulativeFlow:  round(volume, 4),
		AvgTube:         round(mean(tube), 3),
		AvgLine:         round(mean(line), 3),
		AvgDP:           round(mean(dp), 3),
		PurgeLoss:       round(loss, 5),
		DowntimeMinutes: round(downtime, 1),
		DataPoints:      n,
		CorrectedPoints: int(math.Round(float64(corrected) * float64(n) / float64(total))),
	}
}
