package flowrate

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCycleLoss(t *testing.T) {
	times := timesOf(minuteSamples(constant(10, 1), nil))
	preliminary := constant(10, 2)
	downtime := []bool{false, true, true, false, false, false, true, true, false, false}

	first := cycleSpan(SourceMarker, 1, 3, 0.95)
	first.VentingEnd = timePtr(at(2))
	second := cycleSpan(SourceAlgorithm, 6, 8, 0.8)
	second.VentingEnd = timePtr(at(7))

	t.Run("no cycles keeps preliminary loss", func(t *testing.T) {
		loss, purge := ApplyCycleLoss(times, preliminary, downtime, nil)
		assert.Equal(t, preliminary, loss)
		assert.Equal(t, downtime, purge)
	})

	t.Run("loss kept inside venting windows only", func(t *testing.T) {
		loss, purge := ApplyCycleLoss(times, preliminary, downtime, []PurgeCycle{first, second})
		assert.Equal(t, []float64{0, 2, 2, 0, 0, 0, 2, 2, 0, 0}, loss)
		assert.Equal(t, []bool{false, true, true, false, false, false, true, true, false, false}, purge)
	})

	t.Run("excluding a cycle equals never detecting it", func(t *testing.T) {
		excluded := first
		excluded.Excluded = true
		withExcluded, _ := ApplyCycleLoss(times, preliminary, downtime, []PurgeCycle{excluded, second})
		without, _ := ApplyCycleLoss(times, preliminary, downtime, []PurgeCycle{second})
		assert.Equal(t, without, withExcluded)
		assert.Equal(t, runningSum(without), runningSum(withExcluded))
	})

	t.Run("all cycles excluded keeps preliminary loss", func(t *testing.T) {
		a, b := first, second
		a.Excluded, b.Excluded = true, true
		loss, purge := ApplyCycleLoss(times, preliminary, downtime, []PurgeCycle{a, b})
		assert.Equal(t, preliminary, loss)
		assert.Equal(t, downtime, purge)
	})

	t.Run("does not modify preliminary", func(t *testing.T) {
		_, _ = ApplyCycleLoss(times, preliminary, downtime, []PurgeCycle{second})
		assert.Equal(t, constant(10, 2), preliminary)
	})
}

func TestAggregateDaily(t *testing.T) {
	start := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	points := make([]SamplePoint, 0, 13)
	times := make([]time.Time, 0, 13)
	flow := make([]float64, 0, 13)
	for i := 0; i < 13; i++ {
		ts := start.Add(time.Duration(i) * 10 * time.Minute)
		times = append(times, ts)
		flow = append(flow, float64(100+i))
	}
	cum := CumulativeFlow(times, flow)
	for i := range times {
		points = append(points, SamplePoint{
			Time:           times[i],
			Tube:           20,
			Line:           8,
			FlowRate:       flow[i],
			CumulativeFlow: cum[i],
			Downtime:       i == 8,
			VentingLoss:    0.5,
		})
	}

	days := AggregateDaily(points, 4)
	require.Len(t, days, 2)

	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 1}, days[0].Date)
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 2}, days[1].Date)
	assert.Equal(t, 6, days[0].DataPoints)
	assert.Equal(t, 7, days[1].DataPoints)
	assert.Equal(t, 100.0, days[0].MinFlowRate)
	assert.Equal(t, 105.0, days[0].MaxFlowRate)
	assert.Equal(t, 102.5, days[0].AvgFlowRate)
	assert.Equal(t, 102.5, days[0].MedianFlowRate)
	assert.Equal(t, 12.0, days[0].AvgDP)
	assert.Equal(t, 3.0, days[0].PurgeLoss)
	assert.Equal(t, 0.0, days[0].DowntimeMinutes)
	assert.Equal(t, 10.0, days[1].DowntimeMinutes)

	total := 0.0
	for _, d := range days {
		total += d.CumulativeFlow
	}
	assert.InDelta(t, cum[len(cum)-1], total, 1e-2)

	// 4 corrected points prorated 6/13 and 7/13, rounded.
	assert.Equal(t, 2, days[0].CorrectedPoints)
	assert.Equal(t, 2, days[1].CorrectedPoints)

	assert.Empty(t, AggregateDaily(nil, 0))
}
