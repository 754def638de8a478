package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

type MockPressureSource struct {
	mock.Mock
}

func (m *MockPressureSource) LoadPressure(ctx context.Context, wellID string, from, to time.Time) ([]flowrate.PressureSample, error) {
	args := m.Called(ctx, wellID, from, to)
	samples, _ := args.Get(0).([]flowrate.PressureSample)
	return samples, args.Error(1)
}

type MockChokeSource struct {
	mock.Mock
}

func (m *MockChokeSource) ChokeDiameter(ctx context.Context, wellID string) (*float64, error) {
	args := m.Called(ctx, wellID)
	d, _ := args.Get(0).(*float64)
	return d, args.Error(1)
}

type MockMarkerSource struct {
	mock.Mock
}

func (m *MockMarkerSource) LoadMarkers(ctx context.Context, wellID string, from, to time.Time) ([]flowrate.PurgeMarker, error) {
	args := m.Called(ctx, wellID, from, to)
	markers, _ := args.Get(0).([]flowrate.PurgeMarker)
	return markers, args.Error(1)
}

type MockCorrectionSource struct {
	mock.Mock
}

func (m *MockCorrectionSource) LoadCorrections(ctx context.Context, scenarioID string) ([]flowrate.Correction, error) {
	args := m.Called(ctx, scenarioID)
	corrections, _ := args.Get(0).([]flowrate.Correction)
	return corrections, args.Error(1)
}

// blockingPressure never returns data before ctx is done.
type blockingPressure struct{}

func (blockingPressure) LoadPressure(ctx context.Context, _ string, _, _ time.Time) ([]flowrate.PressureSample, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
