// Package astar implements the anytime best-first search over a lazily
// generated Dubins-edge graph, the "A*/sampling-based" member of the
// planner family.
package astar

import (
	"math"
	"math/rand"
	"time"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/planner"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

// Planner implements planner.Planner.
type Planner struct{}

func New() *Planner { return &Planner{} }

func (p *Planner) Plan(
	ribbons *ribbon.Manager,
	start state.State,
	cfg config.PlannerConfig,
	previous plan.Plan,
	budget time.Duration,
	dynamicObstacles obstacle.DynamicObstaclesManager,
	staticMap *obstacle.Map,
) (planner.Stats, error) {
	deadline := time.Now().Add(budget)

	root := &vertex{state: start, currentCost: 0, costSet: true, uncovered: ribbons}
	queue := newVertexQueue(cfg)
	queue.push(root)

	// best is the lowest-f vertex reached so far other than the root, which
	// has no edge to trace and so is never a usable plan on its own.
	var best *vertex
	generated, expanded := 1, 0

	for queue.Len() > 0 {
		if time.Now().After(deadline) {
			break
		}
		current := queue.pop()
		expanded++

		if current != root && (best == nil || current.fValue(cfg) < best.fValue(cfg)) {
			best = current
		}
		if current.uncovered != nil && current.uncovered.Done() {
			best = current
			break
		}
		if current.state.Time-start.Time >= cfg.TimeHorizon {
			continue
		}

		for i := 0; i < cfg.K; i++ {
			sample := boundedBiasedRandomState(cfg, ribbons, current)
			e, err := newEdge(current, sample, cfg)
			if err != nil {
				continue
			}
			if sample.uncovered == nil {
				sample.uncovered = current.uncovered
			}
			e.updateTrueCost(cfg, dynamicObstacles, staticMap)
			sample.parent = e
			sample.currentCost = e.trueCost
			sample.costSet = true
			queue.push(sample)
			generated++
		}
	}

	tracedPlan, ok := tracePlan(best)
	if !ok {
		return planner.Stats{}, planner.ErrPlanFailure
	}
	return planner.Stats{
		Plan:       tracedPlan,
		Generated:  generated,
		Expanded:   expanded,
		Iterations: expanded,
		FinalCost:  best.fValue(cfg),
	}, nil
}

// boundedBiasedRandomState samples a pose within a cost-scaled radius of
// current, biased toward the uncovered ribbon endpoints and toward max
// speed, matching BoundedBiasedRandomState's bias structure.
func boundedBiasedRandomState(cfg config.PlannerConfig, ribbons *ribbon.Manager, current *vertex) *vertex {
	distance := math.Min(current.gValue()*cfg.MaxSpeed+50, (cfg.TimeHorizon+1)*cfg.MaxSpeed)

	var anchor state.State
	uncovered := ribbons.UncoveredRibbons()
	if len(uncovered) > 0 && rand.Float64() < 0.5 {
		r := uncovered[rand.Intn(len(uncovered))]
		if rand.Float64() < 0.5 {
			anchor = r.Start
		} else {
			anchor = r.End
		}
	} else {
		anchor = current.state
	}

	if rand.Float64() < cfg.GoalBias {
		s := anchor
		s.Speed = cfg.MaxSpeed
		s.Time = current.state.Time + current.state.DistanceTo(anchor)/cfg.MaxSpeed
		return &vertex{state: s}
	}

	speed := rand.Float64() * cfg.MaxSpeed
	if rand.Float64() < cfg.MaxSpeedBias {
		speed = cfg.MaxSpeed
	}
	x := anchor.X - distance + rand.Float64()*2*distance
	y := anchor.Y - distance + rand.Float64()*2*distance
	heading := rand.Float64() * 2 * math.Pi
	dist := current.state.DistanceTo(state.State{X: x, Y: y})
	s := state.State{X: x, Y: y, Heading: heading, Speed: speed, Time: current.state.Time + dist/math.Max(speed, 0.1)}
	return &vertex{state: s}
}

// tracePlan walks parent edges back to the root, then reverses and
// re-samples them into a plan.Plan.
func tracePlan(v *vertex) (plan.Plan, bool) {
	var segments []plan.Segment
	for cursor := v; cursor != nil && cursor.parent != nil; cursor = cursor.parent.start {
		segments = append(segments, cursor.parent.segment)
	}
	if len(segments) == 0 {
		return plan.Plan{}, false
	}
	result := plan.Plan{}
	for i := len(segments) - 1; i >= 0; i-- {
		result.Append(segments[i])
	}
	return result, true
}
