package bitstar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

func TestPlanReachesGoalRibbon(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 15, Y: 0}, state.State{X: 25, Y: 0}, 2))

	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Heading: 0, Speed: cfg.MaxSpeed, Time: 0}

	stats, err := New().Plan(m, start, cfg, plan.Plan{}, 300*time.Millisecond, nil, nil)
	require.NoError(t, err)
	assert.False(t, stats.Plan.Empty())
}

func TestPlanSkipsReplanningWhenPreviousNonEmpty(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 15, Y: 0}, state.State{X: 25, Y: 0}, 2))
	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Speed: cfg.MaxSpeed}

	seg, err := plan.NewSegment(start, state.State{X: 5, Y: 0, Speed: cfg.MaxSpeed}, cfg.MaxTurningRadius, cfg.MaxSpeed, 0)
	require.NoError(t, err)
	previous := plan.Plan{Segments: []plan.Segment{seg}}

	stats, err := New().Plan(m, start, cfg, previous, 100*time.Millisecond, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, previous, stats.Plan)
}

func TestPlanFailsWithNoUncoveredRibbons(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Speed: cfg.MaxSpeed}
	_, err := New().Plan(m, start, cfg, plan.Plan{}, 100*time.Millisecond, nil, nil)
	assert.Error(t, err)
}
