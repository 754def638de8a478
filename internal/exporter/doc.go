// Package exporter writes flow-rate results to disk.
//
// CSVWriter is the low-level writer: headed files, append mode, an optional
// UTF-8 BOM for spreadsheet tools, and a StreamWriter for long sample series.
// Relative paths resolve against config.PathsConfig.BaseDir.
//
// ResultExporter maps engine output onto files. ExportResult writes one
// directory per scenario:
//
//	output/<scenario-id>/
//	    daily.csv         one row per calendar date
//	    purge_cycles.csv  detected cycles, excluded ones flagged
//	    downtime.csv      downtime periods
//	    samples.csv       the full annotated series
//	    result.json       summary, tables and a decimated chart series
//
// Absent values (nil KPIs, unknown cycle timestamps, non-finite numbers)
// are written as empty cells.
package exporter
