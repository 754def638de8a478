package flowrate

import "time"

// DetectDowntime groups contiguous samples with tube pressure below line
// pressure. A period ends at the first sample where the condition no longer
// holds, or at the last sample when it holds to the end of the series.
func DetectDowntime(times []time.Time, tube, line []float64, cfg DowntimeConfig) []DowntimePeriod {
	var periods []DowntimePeriod
	open := -1
	for i := range times {
		down := tube[i] < line[i]
		switch {
		case down && open < 0:
			open = i
		case !down && open >= 0:
			periods = append(periods, newDowntimePeriod(times[open], times[i], cfg))
			open = -1
		}
	}
	if open >= 0 {
		periods = append(periods, newDowntimePeriod(times[open], times[len(times)-1], cfg))
	}

	for i := 1; i < len(periods); i++ {
		gap := round(periods[i].Start.Sub(periods[i-1].Start).Hours(), 2)
		periods[i].IntervalHours = &gap
	}
	return periods
}

func newDowntimePeriod(start, end time.Time, cfg DowntimeConfig) DowntimePeriod {
	dur := end.Sub(start).Minutes()
	rounded := round(dur, 1)
	return DowntimePeriod{
		Start:           start,
		End:             end,
		DurationMinutes: rounded,
		DurationHours:   round(rounded/60, 2),
		IsBlowout:       dur > cfg.MinBlowoutMinutes,
	}
}

// downtimeMask flags samples with tube pressure below line pressure.
func downtimeMask(tube, line []float64) []bool {
	mask := make([]bool, len(tube))
	for i := range tube {
		mask[i] = tube[i] < line[i]
	}
	return mask
}
