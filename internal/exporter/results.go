package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/config"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

// ResultExporter writes engine results as CSV and JSON files
type ResultExporter struct {
	csvWriter *CSVWriter
	paths     config.PathsConfig
}

// NewResultExporter creates a result exporter writing under paths
func NewResultExporter(csvWriter *CSVWriter, paths config.PathsConfig) *ResultExporter {
	return &ResultExporter{csvWriter: csvWriter, paths: paths}
}

// ExportResult writes every table of res into the scenario's output
// directory and returns that directory.
func (e *ResultExporter) ExportResult(res *flowrate.Result) (string, error) {
	dir := e.paths.ScenarioOutputDir(res.ScenarioID)
	if err := config.EnsureDir(dir); err != nil {
		return "", err
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{config.DailyFileName, func() error { return e.ExportDaily(res.Daily, filepath.Join(dir, config.DailyFileName)) }},
		{config.CyclesFileName, func() error { return e.ExportCycles(res.Cycles, filepath.Join(dir, config.CyclesFileName)) }},
		{config.DowntimeFileName, func() error { return e.ExportDowntime(res.Downtime, filepath.Join(dir, config.DowntimeFileName)) }},
		{config.SamplesFileName, func() error { return e.ExportSamples(res.Samples, filepath.Join(dir, config.SamplesFileName)) }},
		{config.ResultFileName, func() error { return e.ExportJSON(chartResult(res), filepath.Join(dir, config.ResultFileName)) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return "", fmt.Errorf("export %s: %w", step.name, err)
		}
	}
	return dir, nil
}

// chartResult returns a shallow copy of res with the sample series decimated
func chartResult(res *flowrate.Result) *flowrate.Result {
	out := *res
	out.Samples = res.Chart(flowrate.DefaultChartPoints)
	return &out
}

var dailyHeaders = []string{
	"date", "avg_flow_rate", "min_flow_rate", "max_flow_rate", "median_flow_rate",
	"cumulative_flow", "avg_p_tube", "avg_p_line", "avg_dp", "purge_loss",
	"downtime_minutes", "data_points", "corrected_points",
}

// ExportDaily writes one row per calendar date
func (e *ResultExporter) ExportDaily(rows []flowrate.DailyResult, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Date.String(),
			formatFloat(r.AvgFlowRate),
			formatFloat(r.MinFlowRate),
			formatFloat(r.MaxFlowRate),
			formatFloat(r.MedianFlowRate),
			formatFloat(r.CumulativeFlow),
			formatFloat(r.AvgTube),
			formatFloat(r.AvgLine),
			formatFloat(r.AvgDP),
			formatFloat(r.PurgeLoss),
			formatFloat(r.DowntimeMinutes),
			formatInt(r.DataPoints),
			formatInt(r.CorrectedPoints),
		})
	}
	return e.csvWriter.WriteCSV(path, WriteOptions{Headers: dailyHeaders, Records: records, BOMPrefix: true})
}

var cycleHeaders = []string{
	"id", "source", "venting_start", "venting_end", "buildup_start", "buildup_end",
	"restart_time", "p_start", "p_bottom", "p_end", "venting_minutes",
	"buildup_minutes", "total_minutes", "confidence", "excluded",
}

// ExportCycles writes the detected purge cycles, excluded ones included
func (e *ResultExporter) ExportCycles(cycles []flowrate.PurgeCycle, path string) error {
	records := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		records = append(records, []string{
			c.ID,
			string(c.Source),
			formatTimePtr(c.VentingStart),
			formatTimePtr(c.VentingEnd),
			formatTimePtr(c.BuildupStart),
			formatTimePtr(c.BuildupEnd),
			formatTimePtr(c.RestartTime),
			formatFloat(c.PStart),
			formatFloat(c.PBottom),
			formatFloat(c.PEnd),
			formatFloat(c.VentingDurationMinutes()),
			formatFloat(c.BuildupDurationMinutes()),
			formatFloat(c.TotalDurationMinutes()),
			formatFloat(c.Confidence),
			formatBool(c.Excluded),
		})
	}
	return e.csvWriter.WriteCSV(path, WriteOptions{Headers: cycleHeaders, Records: records, BOMPrefix: true})
}

var downtimeHeaders = []string{
	"start", "end", "duration_min", "duration_hours", "is_blowout", "interval_hours",
}

// ExportDowntime writes the downtime periods
func (e *ResultExporter) ExportDowntime(periods []flowrate.DowntimePeriod, path string) error {
	records := make([][]string, 0, len(periods))
	for _, p := range periods {
		records = append(records, []string{
			formatTime(p.Start),
			formatTime(p.End),
			formatFloat(p.DurationMinutes),
			formatFloat(p.DurationHours),
			formatBool(p.IsBlowout),
			formatOptional(p.IntervalHours),
		})
	}
	return e.csvWriter.WriteCSV(path, WriteOptions{Headers: downtimeHeaders, Records: records, BOMPrefix: true})
}

var sampleHeaders = []string{
	"time", "p_tube", "p_line", "p_tube_raw", "p_line_raw", "flow_rate",
	"cumulative_flow", "downtime", "purge_flag", "venting_loss", "cumulative_venting_loss",
}

// ExportSamples streams the full annotated sample series
func (e *ResultExporter) ExportSamples(points []flowrate.SamplePoint, path string) error {
	stream, err := e.csvWriter.CreateStreamWriter(path, sampleHeaders)
	if err != nil {
		return err
	}
	for i, p := range points {
		if err := stream.WriteRecord([]string{
			formatTime(p.Time),
			formatFloat(p.Tube),
			formatFloat(p.Line),
			formatFloat(p.TubeRaw),
			formatFloat(p.LineRaw),
			formatFloat(p.FlowRate),
			formatFloat(p.CumulativeFlow),
			formatBool(p.Downtime),
			formatBool(p.Purge),
			formatFloat(p.VentingLoss),
			formatFloat(p.CumulativeLoss),
		}); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write sample %d: %w", i, err)
		}
	}
	return stream.Close()
}

var comparisonHeaders = []string{
	"period", "start", "current_avg_flow", "baseline_avg_flow", "delta_flow", "delta_flow_pct",
	"current_cumulative", "baseline_cumulative", "delta_cumulative", "delta_cumulative_pct",
	"current_downtime_min", "baseline_downtime_min",
}

// ExportComparison writes the per-period comparison rows. Whole-period
// totals go into the JSON document.
func (e *ResultExporter) ExportComparison(cmp flowrate.Comparison, path string) error {
	records := make([][]string, 0, len(cmp.Rows))
	for _, r := range cmp.Rows {
		records = append(records, []string{
			r.Period,
			r.Start.String(),
			formatOptional(r.CurrentAvgFlow),
			formatOptional(r.BaselineAvgFlow),
			formatOptional(r.DeltaFlow),
			formatOptional(r.DeltaFlowPct),
			formatOptional(r.CurrentCumulative),
			formatOptional(r.BaselineCumulative),
			formatOptional(r.DeltaCumulative),
			formatOptional(r.DeltaCumulativePct),
			formatOptional(r.CurrentDowntimeMinutes),
			formatOptional(r.BaselineDowntimeMinutes),
		})
	}
	return e.csvWriter.WriteCSV(path, WriteOptions{Headers: comparisonHeaders, Records: records, BOMPrefix: true})
}

// ExportJSON writes v as indented JSON
func (e *ResultExporter) ExportJSON(v any, path string) error {
	fullPath := e.paths.Resolve(path)
	if err := config.EnsureDir(filepath.Dir(fullPath)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
