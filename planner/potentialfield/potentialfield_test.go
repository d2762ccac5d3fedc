package potentialfield

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

func TestPlanHeadsTowardUncoveredRibbon(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 50, Y: 0}, state.State{X: 60, Y: 0}, 2))

	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Heading: 0, Speed: cfg.MaxSpeed, Time: 0}

	stats, err := New().Plan(m, start, cfg, plan.Plan{}, time.Second, nil, nil)
	require.NoError(t, err)
	assert.False(t, stats.Plan.Empty())

	end, err := stats.Plan.EndPose()
	require.NoError(t, err)
	assert.Greater(t, end.X, start.X)
}

func TestRibbonForceSumsOverEveryUncoveredRibbon(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 50, Y: 0}, state.State{X: 60, Y: 0}, 2))

	start := state.State{X: 0, Y: 0}
	single := ribbonForce(start, m)

	m.Add(ribbon.NewRibbon(state.State{X: -50, Y: 0}, state.State{X: -60, Y: 0}, 2))
	both := ribbonForce(start, m)

	assert.NotEqual(t, single, both, "a second uncovered ribbon must change the summed force, not just whichever endpoint is nearest")
}

func TestPlanFailsWithNoRibbonsAndNoForce(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Speed: cfg.MaxSpeed}
	_, err := New().Plan(m, start, cfg, plan.Plan{}, time.Second, nil, nil)
	assert.Error(t, err)
}
