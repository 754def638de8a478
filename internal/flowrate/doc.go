// Package flowrate turns wellhead tube/line pressure series into gas flow
// estimates, purge (venting) cycles, downtime periods and daily KPIs.
//
// # Pipeline
//
// Engine.Run executes the stages in order:
//
//  1. Clean: non-positive and missing readings are filled from neighbours.
//  2. ApplyCorrections: manual exclude, interpolate, manual_value and clamp edits.
//  3. Smooth: optional Savitzky–Golay filter (two passes, clipped at zero).
//  4. FlowRate / CumulativeFlow: choke-flow equation and trapezoidal volume.
//  5. DetectPurgeCycles: operator markers and curve shape, reconciled.
//  6. ApplyCycleLoss, DetectDowntime, AggregateDaily, BuildSummary.
//
// CompareScenarios works on two DailyResult sequences produced by earlier runs.
//
// # Files
//
//   - types.go: series, corrections, cycles and result rows
//   - config.go: calibration and detection constants
//   - cleaning.go, corrections.go, smoothing.go: signal preparation
//   - calculator.go: flow and venting-loss physics
//   - purge.go, purge_markers.go, purge_curve.go: cycle detection
//   - downtime.go, aggregate.go, summary.go, compare.go: derived results
//   - engine.go: orchestration
//
// # Determinism
//
// Every stage is a pure function of its inputs. Cycle ids are name-based
// UUIDs of the detecting source and venting start, so an exclude list kept
// by a caller stays valid across recomputations.
//
// # Usage
//
//	engine, err := flowrate.NewEngine(flowrate.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	res, err := engine.Run(ctx, flowrate.Input{
//	    WellID:  "w-12",
//	    Samples: samples,
//	    ChokeMM: &choke,
//	})
package flowrate
