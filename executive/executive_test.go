package executive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/internal/plog"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/planner"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

type stubPlanner struct{}

func (stubPlanner) Plan(ribbons *ribbon.Manager, start state.State, cfg config.PlannerConfig, previous plan.Plan, budget time.Duration, dyn obstacle.DynamicObstaclesManager, m *obstacle.Map) (planner.Stats, error) {
	end := state.State{X: start.X + 5, Y: start.Y, Heading: 0, Speed: cfg.MaxSpeed, Time: start.Time + 2}
	seg, err := plan.NewSegment(start, end, cfg.CoverageTurningRadius, cfg.MaxSpeed, start.Time)
	if err != nil {
		return planner.Stats{}, err
	}
	ribbons.Cover(end, false)
	return planner.Stats{Plan: plan.Plan{Segments: []plan.Segment{seg}}}, nil
}

type stubController struct {
	mu        sync.Mutex
	published int
	position  state.State
	step      float64
}

func (c *stubController) PublishPlan(ctx context.Context, p plan.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published++
	return nil
}

// VehiclePosition advances the reported position by step each time it is
// polled, standing in for a vehicle that keeps moving between cycles.
func (c *stubController) VehiclePosition(ctx context.Context) (state.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.position
	c.position.X += c.step
	return pos, nil
}

func TestExecutiveRunsUntilRibbonsDone(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 5, Y: 0}, state.State{X: 8, Y: 0}, 4))

	e := New(Options{
		Ribbons:     m,
		Planners:    map[PlannerKind]planner.Planner{PotentialField: stubPlanner{}},
		Which:       PotentialField,
		Config:      config.Default(),
		Logger:      plog.NewDiscard(),
		CycleBudget: time.Millisecond,
	})

	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))

	deadline := time.Now().Add(5 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())
	assert.True(t, m.Done())
}

func TestExecutivePublishesPlanViaController(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 5, Y: 0}, state.State{X: 8, Y: 0}, 4))

	controller := &stubController{position: state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}, step: 0.2}

	e := New(Options{
		Ribbons:     m,
		Planners:    map[PlannerKind]planner.Planner{PotentialField: stubPlanner{}},
		Which:       PotentialField,
		Config:      config.Default(),
		Controller:  controller,
		Logger:      plog.NewDiscard(),
		CycleBudget: time.Millisecond,
	})

	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))

	deadline := time.Now().Add(5 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())
	assert.True(t, m.Done())
	assert.Greater(t, controller.published, 0)
}

type stubFailingPlanner struct{}

func (stubFailingPlanner) Plan(ribbons *ribbon.Manager, start state.State, cfg config.PlannerConfig, previous plan.Plan, budget time.Duration, dyn obstacle.DynamicObstaclesManager, m *obstacle.Map) (planner.Stats, error) {
	return planner.Stats{}, errors.New("planning failed")
}

func TestExecutiveFailureResetsRadiusShrinkAndHalvesHorizon(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 500, Y: 0}, state.State{X: 510, Y: 0}, 2))

	e := New(Options{
		Ribbons:             m,
		Planners:            map[PlannerKind]planner.Planner{PotentialField: stubFailingPlanner{}},
		Which:               PotentialField,
		Config:              config.Default(),
		Logger:              plog.NewDiscard(),
		CycleBudget:         time.Millisecond,
		RadiusShrinkEnabled: true,
		RadiusShrinkAmount:  1,
	})

	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))
	time.Sleep(60 * time.Millisecond)
	e.CancelPlanner()

	deadline := time.Now().Add(2 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())
	assert.Equal(t, 0.0, e.radiusShrink, "radius shrink should reset after a failed cycle")
	assert.Equal(t, config.Default().TimeMinimum, e.baseTimeHorizon, "repeated halving should clamp at TimeMinimum, not shrink unbounded")
}

// jumpingController reports one position while the executive derives the
// next cycle's start state and a distant one when publishPlan checks back
// in, standing in for a vehicle that strays off the plan mid-cycle.
type jumpingController struct {
	mu    sync.Mutex
	calls int
}

func (c *jumpingController) PublishPlan(ctx context.Context, p plan.Plan) error { return nil }

func (c *jumpingController) VehiclePosition(ctx context.Context) (state.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls%2 == 1 {
		return state.State{X: 0, Y: 0}, nil
	}
	return state.State{X: 1000, Y: 1000}, nil
}

func TestExecutiveControllerDeviationResetsRadiusShrink(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 500, Y: 0}, state.State{X: 510, Y: 0}, 2))

	controller := &jumpingController{}
	var mu sync.Mutex
	sawUnachievable := false

	e := New(Options{
		Ribbons:             m,
		Planners:            map[PlannerKind]planner.Planner{PotentialField: stubPlanner{}},
		Which:               PotentialField,
		Config:              config.Default(),
		Controller:          controller,
		Logger:              plog.NewDiscard(),
		CycleBudget:         5 * time.Millisecond,
		RadiusShrinkEnabled: true,
		RadiusShrinkAmount:  1,
		OnCycleStats: func(cs CycleStats) {
			mu.Lock()
			defer mu.Unlock()
			if !cs.PlanAchievable {
				sawUnachievable = true
			}
		},
	})

	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))
	time.Sleep(50 * time.Millisecond)
	e.CancelPlanner()

	deadline := time.Now().Add(2 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawUnachievable, "a controller deviation should surface as an unachievable cycle")
	assert.Equal(t, 0.0, e.radiusShrink, "radius shrink should reset after the most recent deviation")
}

type countingPlanner struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPlanner) Plan(ribbons *ribbon.Manager, start state.State, cfg config.PlannerConfig, previous plan.Plan, budget time.Duration, dyn obstacle.DynamicObstaclesManager, m *obstacle.Map) (planner.Stats, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	end := state.State{X: start.X + 5, Y: start.Y, Heading: 0, Speed: cfg.MaxSpeed, Time: start.Time + 2}
	seg, err := plan.NewSegment(start, end, cfg.CoverageTurningRadius, cfg.MaxSpeed, start.Time)
	if err != nil {
		return planner.Stats{}, err
	}
	ribbons.Cover(end, false)
	return planner.Stats{Plan: plan.Plan{Segments: []plan.Segment{seg}}}, nil
}

func TestExecutiveBitStarSkipsReplanningOncePlanned(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 500, Y: 0}, state.State{X: 510, Y: 0}, 2))

	p := &countingPlanner{}
	e := New(Options{
		Ribbons:     m,
		Planners:    map[PlannerKind]planner.Planner{BitStar: p},
		Which:       BitStar,
		Config:      config.Default(),
		Logger:      plog.NewDiscard(),
		CycleBudget: time.Millisecond,
		ReusePlan:   true,
	})

	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))
	time.Sleep(30 * time.Millisecond)
	e.CancelPlanner()

	deadline := time.Now().Add(2 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.calls, "BIT* should not be re-invoked once it has produced a plan")
}

func TestExecutiveInboundEventsAreSafeDuringPlanLoop(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 500, Y: 0}, state.State{X: 510, Y: 0}, 2))

	dyn := obstacle.NewBinary(4, 4)
	e := New(Options{
		Ribbons:     m,
		Dynamic:     dyn,
		Planners:    map[PlannerKind]planner.Planner{PotentialField: stubPlanner{}},
		Which:       PotentialField,
		Config:      config.Default(),
		Logger:      plog.NewDiscard(),
		CycleBudget: time.Millisecond,
	})

	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))

	// Hammer every inbound-event method concurrently with the running
	// planning loop; none of this should race with planLoop's reads of
	// ribbons/cfg/cycleBudget.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.AddRibbon(ribbon.NewRibbon(state.State{X: float64(i), Y: 0}, state.State{X: float64(i) + 1, Y: 0}, 2))
			e.UpdateDynamicObstacle(uint32(i), state.State{X: float64(i), Y: 0})
			e.SetConfiguration(config.Default())
			e.SetPlanningTime(2 * time.Millisecond)
		}(i)
	}
	e.ClearRibbons()
	wg.Wait()

	e.CancelPlanner()
	deadline := time.Now().Add(2 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())
}

func TestExecutiveCancelStopsLoop(t *testing.T) {
	m := ribbon.NewManager(ribbon.MaxDistance, 8, 3)
	m.Add(ribbon.NewRibbon(state.State{X: 500, Y: 0}, state.State{X: 510, Y: 0}, 2))

	e := New(Options{
		Ribbons:     m,
		Planners:    map[PlannerKind]planner.Planner{PotentialField: stubPlanner{}},
		Which:       PotentialField,
		Config:      config.Default(),
		Logger:      plog.NewDiscard(),
		CycleBudget: 5 * time.Millisecond,
	})
	require.NoError(t, e.StartPlanner(state.State{X: 0, Y: 0, Speed: config.Default().MaxSpeed}))
	time.Sleep(20 * time.Millisecond)
	e.CancelPlanner()

	deadline := time.Now().Add(2 * time.Second)
	for e.State() != Inactive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Inactive, e.State())
}
