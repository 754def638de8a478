package services

import "errors"

// Scenario service errors
var (
	ErrNoScenarios     = errors.New("no scenarios to run")
	ErrMissingSource   = errors.New("pressure and choke sources are required")
	ErrScenarioTimeout = errors.New("scenario timed out")
)
