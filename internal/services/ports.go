package services

import (
	"context"
	"time"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

// PressureSource loads the time-ordered pressure series of a well. An empty
// slice with a nil error means no data for the period.
type PressureSource interface {
	LoadPressure(ctx context.Context, wellID string, from, to time.Time) ([]flowrate.PressureSample, error)
}

// ChokeSource resolves the choke bore diameter of a well in millimetres.
// A nil diameter means none is configured.
type ChokeSource interface {
	ChokeDiameter(ctx context.Context, wellID string) (*float64, error)
}

// MarkerSource loads operator purge markers for a well.
type MarkerSource interface {
	LoadMarkers(ctx context.Context, wellID string, from, to time.Time) ([]flowrate.PurgeMarker, error)
}

// CorrectionSource loads the ordered manual corrections of a scenario.
type CorrectionSource interface {
	LoadCorrections(ctx context.Context, scenarioID string) ([]flowrate.Correction, error)
}

// Sources bundles the collaborator ports. Markers and Corrections are optional.
type Sources struct {
	Pressure    PressureSource
	Choke       ChokeSource
	Markers     MarkerSource
	Corrections CorrectionSource
}
