// Package config loads the flowcalc configuration.
//
// # Configuration Sources
//
//	1. Default values from struct tags
//	2. Environment variables (FLOWCALC_*)
//	3. A YAML configuration file, key by key
//
// # Environment Variables
//
// Variables follow the section path of the field:
//
//	FLOWCALC_LOGGING_LEVEL=debug
//	FLOWCALC_BATCH_MAX_CONCURRENCY=8
//	FLOWCALC_ENGINE_SMOOTHING_ENABLED=true
//	FLOWCALC_ENGINE_FLOW_MODEL_MULTIPLIER=4.1
//
// # Usage
//
//	cfg, err := config.Load(*configPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests use config.Default(), which needs no environment.
package config
