// Package executive owns the real-time replanning loop: it repeatedly
// asks the configured Planner for a plan, splices it against whatever the
// vehicle is still flying, and hands the result to a controller — all
// within a fixed wall-clock budget per cycle. Ported from the reference
// executive's planLoop, generalized from its C++ condition-variable/mutex
// machinery into the Go sync primitives that do the same job.
package executive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/internal/plog"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/planner"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

// PlannerState is the executive's coarse lifecycle.
type PlannerState int

const (
	Inactive PlannerState = iota
	Running
	Cancelled
)

// restartWait bounds how long StartPlanner waits for a prior cycle to
// notice cancellation before giving up and starting anyway.
const restartWait = 2 * time.Second

var (
	ErrControllerUnreachable = errors.New("executive: controller unreachable")
	ErrMapLoad                = errors.New("executive: failed to load map")
)

// ControllerClient is the outbound RPC surface the executive hands
// finished plans to.
type ControllerClient interface {
	PublishPlan(ctx context.Context, p plan.Plan) error
	VehiclePosition(ctx context.Context) (state.State, error)
}

// PlannerKind selects which member of the planner family runs a given
// cycle.
type PlannerKind int

const (
	PotentialField PlannerKind = iota
	AStar
	BitStar
)

// CycleStats is published once per planning cycle for telemetry.
type CycleStats struct {
	ID                uuid.UUID
	Plan              plan.Plan
	CollisionPenalty  float64
	PlanAchievable    bool
}

// TaskStats is published once the loop exits.
type TaskStats struct {
	WallClockTime            time.Duration
	CumulativeCollisionPenalty float64
	TimePenalty               float64
	UncoveredLength           float64
	Err                       error
}

// Executive drives the replanning loop described above.
type Executive struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state PlannerState

	mapMu sync.Mutex
	staticMap, pendingMap *obstacle.Map

	// ribbonsMu guards every read or mutation of ribbons, the way mapMu
	// guards the map slot: inbound events (AddRibbon, ClearRibbons) and
	// the planning loop's per-cycle Done/Clone calls all take it.
	ribbonsMu sync.Mutex
	ribbons   *ribbon.Manager
	dynamic   obstacle.DynamicObstaclesManager

	planners map[PlannerKind]planner.Planner
	which    PlannerKind

	// cfgMu guards cfg the same way, so SetConfiguration from an inbound
	// event can never race with a cycle's read of it.
	cfgMu      sync.Mutex
	cfg        config.PlannerConfig
	controller ControllerClient
	log        *plog.Logger

	cycleBudget time.Duration

	lastState   state.State
	currentPlan plan.Plan
	radiusShrink float64

	reusePlanEnabled   bool
	radiusShrinkEnabled bool
	radiusShrinkAmount  float64

	failureCount int
	baseTimeHorizon float64

	onCycleStats func(CycleStats)
	onTaskStats  func(TaskStats)
}

// Options configures New.
type Options struct {
	Ribbons      *ribbon.Manager
	Dynamic      obstacle.DynamicObstaclesManager
	StaticMap    *obstacle.Map
	Planners     map[PlannerKind]planner.Planner
	Which        PlannerKind
	Config       config.PlannerConfig
	Controller   ControllerClient
	Logger       *plog.Logger
	CycleBudget  time.Duration
	ReusePlan    bool
	RadiusShrinkEnabled bool
	RadiusShrinkAmount  float64
	OnCycleStats func(CycleStats)
	OnTaskStats  func(TaskStats)
}

func New(opts Options) *Executive {
	e := &Executive{
		state:       Inactive,
		ribbons:     opts.Ribbons,
		dynamic:     opts.Dynamic,
		staticMap:   opts.StaticMap,
		planners:    opts.Planners,
		which:       opts.Which,
		cfg:         opts.Config,
		controller:  opts.Controller,
		log:         opts.Logger,
		cycleBudget: opts.CycleBudget,
		reusePlanEnabled:    opts.ReusePlan,
		radiusShrinkEnabled: opts.RadiusShrinkEnabled,
		radiusShrinkAmount:  opts.RadiusShrinkAmount,
		baseTimeHorizon:     opts.Config.TimeHorizon,
		onCycleStats:        opts.OnCycleStats,
		onTaskStats:         opts.OnTaskStats,
	}
	e.cond = sync.NewCond(&e.mu)
	if e.cycleBudget == 0 {
		e.cycleBudget = time.Second
	}
	return e
}

// StartPlanner transitions Inactive -> Running and launches the loop
// goroutine. If a prior cycle is still winding down from cancellation, it
// waits up to restartWait for that to finish before starting anyway —
// matching the reference's bounded condition-variable wait on restart.
func (e *Executive) StartPlanner(start state.State) error {
	e.mu.Lock()
	deadline := time.Now().Add(restartWait)
	for e.state == Cancelled {
		waitUntil(e.cond, deadline)
		if time.Now().After(deadline) {
			break
		}
	}
	if e.state == Running {
		e.mu.Unlock()
		return errors.New("executive: already running")
	}
	e.state = Running
	e.lastState = start
	e.mu.Unlock()

	go e.planLoop()
	return nil
}

// CancelPlanner requests the loop stop at its next cycle boundary.
// Cancellation is cooperative: a planner already mid-call is never
// interrupted, only the cycle after it.
func (e *Executive) CancelPlanner() {
	e.mu.Lock()
	if e.state == Running {
		e.state = Cancelled
	}
	e.mu.Unlock()
}

func (e *Executive) State() PlannerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetMap swaps in a newly loaded map at the next cycle's non-blocking
// try-lock point. If the planning loop is mid-cycle and holding the map
// lock, the swap is simply deferred to the following cycle.
func (e *Executive) SetMap(m *obstacle.Map) {
	e.mapMu.Lock()
	e.pendingMap = m
	e.mapMu.Unlock()
}

// RefreshMap parses a new map from r and queues it for the next cycle's
// swap. Load failures are logged and swallowed rather than propagated —
// the executive keeps running on whatever map it already has.
func (e *Executive) RefreshMap(r *bufio.Reader) {
	m, err := obstacle.LoadGridWorldMap(r)
	if err != nil {
		if e.log != nil {
			e.log.Warn("failed to load map", "error", fmt.Errorf("%w: %v", ErrMapLoad, err))
		}
		return
	}
	e.SetMap(m)
}

// AddRibbon enrolls a new ribbon for the mission to sweep.
func (e *Executive) AddRibbon(r *ribbon.Ribbon) {
	e.ribbonsMu.Lock()
	e.ribbons.Add(r)
	e.ribbonsMu.Unlock()
}

// ClearRibbons drops every currently tracked ribbon.
func (e *Executive) ClearRibbons() {
	e.ribbonsMu.Lock()
	e.ribbons.Ribbons = nil
	e.ribbonsMu.Unlock()
}

// UpdateDynamicObstacle records a fresh pose report for a tracked dynamic
// obstacle. The obstacle manager itself self-locks, the same way Binary
// and Gaussian already do, so no Executive-level lock is needed here.
func (e *Executive) UpdateDynamicObstacle(id uint32, s state.State) {
	if e.dynamic != nil {
		e.dynamic.UpdateState(id, s)
	}
}

// SetConfiguration swaps in a new PlannerConfig for subsequent cycles.
func (e *Executive) SetConfiguration(cfg config.PlannerConfig) {
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
}

// SetPlanningTime changes the wall-clock budget each replanning cycle gets.
func (e *Executive) SetPlanningTime(budget time.Duration) {
	e.cfgMu.Lock()
	e.cycleBudget = budget
	e.cfgMu.Unlock()
}

// Terminate requests the replanning loop stop, same as CancelPlanner — the
// name inbound callers expect for the shutdown event.
func (e *Executive) Terminate() {
	e.CancelPlanner()
}

func waitUntil(cond *sync.Cond, deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}

func (e *Executive) planLoop() {
	wallClockStart := time.Now()
	cumulativeCollisionPenalty := 0.0

	defer func() {
		e.mu.Lock()
		e.state = Inactive
		e.cond.Broadcast()
		e.mu.Unlock()

		if e.onTaskStats != nil {
			e.cfgMu.Lock()
			weight := e.cfg.Weight
			e.cfgMu.Unlock()

			e.ribbonsMu.Lock()
			uncovered := e.ribbons.GetTotalUncoveredLength()
			e.ribbonsMu.Unlock()

			e.onTaskStats(TaskStats{
				WallClockTime:              time.Since(wallClockStart),
				CumulativeCollisionPenalty: cumulativeCollisionPenalty * weight,
				TimePenalty:                time.Since(wallClockStart).Seconds() * weight,
				UncoveredLength:            uncovered,
			})
		}
	}()

	for {
		if e.State() == Cancelled {
			break
		}
		e.ribbonsMu.Lock()
		done := e.ribbons.Done()
		e.ribbonsMu.Unlock()
		if done {
			break
		}

		e.cfgMu.Lock()
		cfg := e.cfg
		cycleBudget := e.cycleBudget
		e.cfgMu.Unlock()

		cycleStart := time.Now()
		startState := e.deriveStartState(cycleBudget)

		// non-blocking map slot swap: log and move on if busy this cycle.
		if e.mapMu.TryLock() {
			if e.pendingMap != nil {
				e.staticMap = e.pendingMap
				e.pendingMap = nil
			}
			e.mapMu.Unlock()
		} else if e.log != nil {
			e.log.Debug("map slot busy this cycle, deferring swap")
		}

		if e.reusePlanEnabled && !e.currentPlan.Empty() {
			_ = e.currentPlan.ChangeIntoSuffix(startState.Time)
		} else {
			e.currentPlan = plan.Plan{}
		}

		radius := cfg.CoverageTurningRadius
		if e.radiusShrinkEnabled {
			e.radiusShrink += e.radiusShrinkAmount
			radius -= e.radiusShrink
			if radius < 1 {
				radius = 1
			}
		}
		cycleCfg := cfg
		cycleCfg.CoverageTurningRadius = radius
		cycleCfg.TimeHorizon = e.baseTimeHorizon

		instantaneousPenalty := 0.0
		if e.dynamic != nil {
			instantaneousPenalty = e.dynamic.CollisionExists(e.lastState.X, e.lastState.Y, e.lastState.Time, true) * cfg.CollisionPenalty
			cumulativeCollisionPenalty += instantaneousPenalty
		}

		// Only the clone gets the speculative dead-reckoned coverage credit;
		// the master manager's real coverage comes from telemetry (the
		// controller-reported positions in deriveStartState), not
		// extrapolation, so a plan later discarded for deviation can't have
		// permanently credited ground it never actually swept. Without a
		// controller, nothing covers the master manager.
		e.ribbonsMu.Lock()
		ribbonsSnapshot := e.ribbons.Clone()
		e.ribbonsMu.Unlock()
		ribbonsSnapshot.CoverBetween(e.lastState, startState, false)

		// BIT* is a single-goal-pose planner: once it has produced a
		// non-empty plan, re-invoking it every cycle is wasted work until
		// that plan is exhausted.
		skipBitStar := e.which == BitStar && !e.currentPlan.Empty()

		var stats planner.Stats
		var planErr error
		lastPlanAchievable := true
		if !skipBitStar {
			p := e.planners[e.which]
			remaining := cycleBudget - time.Since(cycleStart)
			if remaining < 0 {
				remaining = 0
			}
			stats, planErr = p.Plan(ribbonsSnapshot, startState, cycleCfg, e.currentPlan, remaining, e.dynamic, e.staticMap)
			if planErr != nil {
				if e.log != nil {
					e.log.Warn("planning cycle failed", "error", planErr)
				}
				lastPlanAchievable = false
				e.radiusShrink = 0
				e.failureCount++
				if e.failureCount >= 3 {
					e.baseTimeHorizon /= 2
					if e.baseTimeHorizon < cfg.TimeMinimum {
						e.baseTimeHorizon = cfg.TimeMinimum
					}
					e.failureCount = 0
				}
			} else {
				e.failureCount = 0
				e.currentPlan = stats.Plan
			}
		} else {
			stats = planner.Stats{Plan: e.currentPlan}
		}

		if !e.currentPlan.Empty() {
			deviated, err := e.publishPlan(startState, cycleBudget)
			if err != nil && e.log != nil {
				e.log.Warn("failed to publish plan to controller", "error", err)
			}
			if deviated {
				lastPlanAchievable = false
				e.radiusShrink = 0
			}
		}

		cycleID := uuid.New()
		if e.onCycleStats != nil {
			e.onCycleStats(CycleStats{
				ID:               cycleID,
				Plan:             e.currentPlan,
				CollisionPenalty: instantaneousPenalty,
				PlanAchievable:   lastPlanAchievable,
			})
		}

		// sleep out the rest of the cycle budget to keep a steady real-time
		// replanning cadence.
		elapsed := time.Since(cycleStart)
		if remaining := cycleBudget - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}

		if e.State() == Cancelled {
			break
		}

		e.lastState = startState
	}
}

// deriveStartState projects the vehicle's last known pose forward to the
// time the next cycle's plan would actually take effect, matching the
// reference's "project by planningTimeIdeal - overhead" sentinel logic.
func (e *Executive) deriveStartState(cycleBudget time.Duration) state.State {
	if e.controller != nil {
		if s, err := e.controller.VehiclePosition(context.Background()); err == nil {
			// the reported position is telemetry, so it credits the master
			// manager's coverage directly.
			e.ribbonsMu.Lock()
			e.ribbons.Cover(s, false)
			e.ribbonsMu.Unlock()
			return s.Project(s.Time + cycleBudget.Seconds())
		}
	}
	return e.lastState.Project(e.lastState.Time + cycleBudget.Seconds())
}

// deviationThreshold bounds how far the controller-reported position may
// stray from the plan's own sampled pose at startState.Time before the
// plan is discarded as no longer trustworthy.
const deviationThreshold = 5.0

// publishPlan hands the current plan to the controller and checks it back
// against reality: it samples the plan at startState.Time and compares
// that sampled pose, not startState itself, to the controller's reported
// position, since a spliced reused plan can kink away from startState by
// the time this cycle actually publishes. deviated reports whether the
// plan was discarded because the vehicle strayed too far from it.
func (e *Executive) publishPlan(startState state.State, cycleBudget time.Duration) (deviated bool, err error) {
	if e.controller == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cycleBudget)
	defer cancel()

	if err := e.controller.PublishPlan(ctx, e.currentPlan); err != nil {
		e.CancelPlanner()
		return false, fmt.Errorf("%w: %v", ErrControllerUnreachable, err)
	}

	pos, err := e.controller.VehiclePosition(ctx)
	if err != nil {
		return false, nil
	}
	sampled, err := e.currentPlan.Sample(startState.Time)
	if err != nil {
		return false, nil
	}
	if pos.DistanceTo(sampled) > deviationThreshold {
		if e.log != nil {
			e.log.Warn("vehicle strayed from sampled plan state; discarding plan", "distance", pos.DistanceTo(sampled))
		}
		e.currentPlan = plan.Plan{}
		return true, nil
	}
	return false, nil
}
