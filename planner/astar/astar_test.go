package astar

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

func TestPlanProducesNonEmptyPlan(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 20, Y: 0}, state.State{X: 30, Y: 0}, 2))

	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Heading: 0, Speed: cfg.MaxSpeed, Time: 0}

	stats, err := New().Plan(m, start, cfg, plan.Plan{}, 200*time.Millisecond, nil, nil)
	require.NoError(t, err)
	assert.False(t, stats.Plan.Empty())
	assert.GreaterOrEqual(t, stats.Generated, 1)
}

func TestPlanFailsWithNoBudget(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 20, Y: 0}, state.State{X: 30, Y: 0}, 2))
	cfg := config.Default()
	start := state.State{X: 0, Y: 0, Speed: cfg.MaxSpeed}
	_, err := New().Plan(m, start, cfg, plan.Plan{}, 0, nil, nil)
	assert.Error(t, err)
}
