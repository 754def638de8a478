package flowrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExcludeIDs(t *testing.T) {
	set := ParseExcludeIDs(" b2, a1,,c3 ")
	assert.Equal(t, []string{"a1", "b2", "c3"}, set.IDs())
	assert.True(t, set.Has("a1"))
	assert.False(t, set.Has(""))
	assert.Empty(t, ParseExcludeIDs("").IDs())

	var none ExcludeSet
	assert.False(t, none.Has("a1"))
}

func TestNormalizePhase(t *testing.T) {
	assert.Equal(t, PhaseStart, NormalizePhase("  START"))
	assert.Equal(t, PhasePress, NormalizePhase("Press\n"))
	assert.Equal(t, MarkerPhase("other"), NormalizePhase("Other"))
}

func TestPurgeCycle_Durations(t *testing.T) {
	vs, ve, be, rs := at(0), at(12), at(42), at(50)

	full := PurgeCycle{VentingStart: &vs, VentingEnd: &ve, BuildupStart: &ve, BuildupEnd: &be, RestartTime: &rs}
	assert.Equal(t, 12.0, full.VentingDurationMinutes())
	assert.Equal(t, 30.0, full.BuildupDurationMinutes())
	assert.Equal(t, 42.0, full.TotalDurationMinutes())

	noBuildupEnd := PurgeCycle{VentingStart: &vs, VentingEnd: &ve, RestartTime: &rs}
	assert.Equal(t, rs, *noBuildupEnd.End())
	assert.Zero(t, noBuildupEnd.BuildupDurationMinutes())

	ventingOnly := PurgeCycle{VentingStart: &vs, VentingEnd: &ve}
	assert.Equal(t, ve, *ventingOnly.End())

	buildupOnly := PurgeCycle{BuildupStart: &ve}
	assert.Equal(t, ve, *buildupOnly.Start())
	assert.Nil(t, buildupOnly.End())
	assert.Zero(t, buildupOnly.TotalDurationMinutes())
}
