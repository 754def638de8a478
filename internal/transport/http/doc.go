// Package http serves the flowcalc operations endpoints: health, version,
// Prometheus metrics and a read-only view of the loaded scenarios.
//
// Errors are rendered as RFC 7807 problem details by the errors package.
package http
