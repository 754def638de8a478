// Package middleware holds the HTTP middleware of the operations router:
// OpenTelemetry request instrumentation and a token-bucket rate limiter.
package middleware
