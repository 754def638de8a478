package config

import "time"

// Application constants
const (
	AppName    = "flowcalc"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. FLOWCALC_LOGGING_LEVEL.
	EnvPrefix = "FLOWCALC"

	// Batch defaults
	DefaultMaxConcurrency  = 4
	DefaultScenarioTimeout = 2 * time.Minute

	// File names written per scenario
	DailyFileName    = "daily.csv"
	CyclesFileName   = "purge_cycles.csv"
	DowntimeFileName = "downtime.csv"
	SamplesFileName  = "samples.csv"
	ResultFileName   = "result.json"
	CompareFileName  = "comparison.csv"

	// Default locations relative to the working directory
	DefaultOutputDir = "output"
	DefaultLogFile   = "logs/flowcalc.log"
)
