// Package services runs flow-rate scenarios against external data sources.
//
// ScenarioService sits between the engine in internal/flowrate and whatever
// stores pressure series, choke diameters, purge markers and corrections.
// Those collaborators are reached only through the small port interfaces in
// ports.go, so the service works the same over CSV files, a database, or
// in-memory fakes in tests.
//
// # Operations
//
//	- Calculate: load one scenario's inputs and run the engine
//	- RunBatch: run many scenarios concurrently with a bounded worker count
//	  and a per-scenario timeout; failures are reported per scenario
//	- Compare: compute two scenarios and compare their daily rows
//
// # Observability
//
// Every run is a span ("scenario.calculate") tagged with scenario and well
// ids. When FlowMetrics are supplied, run outcomes, durations and detection
// counts are recorded. Batch logs carry a trace_id shared by all scenarios in
// the batch.
//
// # Usage
//
//	svc, err := services.NewScenarioService(services.Sources{
//	    Pressure: pressureRepo,
//	    Choke:    wellRepo,
//	    Markers:  markerRepo,
//	}, cfg.Engine, cfg.Batch, logger, services.WithMetrics(metrics))
//	if err != nil {
//	    return err
//	}
//	results, err := svc.RunBatch(ctx, scenarios)
package services
