// Package errors defines the error taxonomy shared by the flow-rate engine and its callers.
package errors

import (
	stderrors "errors"
)

// ErrNoPressureData is the cause attached to MissingInput errors for empty series.
var ErrNoPressureData = stderrors.New("no pressure data")

// ErrNoChokeDiameter is the cause attached to MissingInput errors for wells without a choke.
var ErrNoChokeDiameter = stderrors.New("no choke diameter")

// ErrNoValidReadings is the cause attached to MissingInput errors for a channel without any usable value.
var ErrNoValidReadings = stderrors.New("no valid readings")

// MissingPressureData builds the error returned when a well has no samples for a period.
func MissingPressureData(wellID string, period string) *AppError {
	return NewAppError(ErrTypeMissingInput, "no pressure data for well", ErrNoPressureData).
		WithContext("well_id", wellID).
		WithContext("period", period)
}

// MissingChannelData builds the error returned when a pressure channel has no
// valid reading left to fill gaps from.
func MissingChannelData(wellID, channel string) *AppError {
	return NewAppError(ErrTypeMissingInput, "no valid readings on "+channel, ErrNoValidReadings).
		WithContext("well_id", wellID).
		WithContext("channel", channel)
}

// MissingChokeDiameter builds the error returned when no choke diameter is configured.
func MissingChokeDiameter(wellID string) *AppError {
	return NewAppError(ErrTypeMissingInput, "choke diameter not configured", ErrNoChokeDiameter).
		WithContext("well_id", wellID)
}
