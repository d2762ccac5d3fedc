// Package potentialfield implements the reactive force-sum planner,
// ported from PotentialFieldPlanner.h: ribbons attract, static and
// dynamic obstacles repel, and the net force steers a chain of short
// Dubins arcs.
package potentialfield

import (
	"math"
	"time"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/planner"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

const (
	lookaheadSteps            = 10
	staticObsIgnoreThreshold  = 7.5
	stepDistance              = 5.0
	minNetForceMagnitude      = 1e-3
)

type force struct {
	x, y float64
}

func newForce(magnitude, direction float64) force {
	return force{x: magnitude * math.Cos(direction), y: magnitude * math.Sin(direction)}
}

func (f force) add(other force) force {
	return force{x: f.x + other.x, y: f.y + other.y}
}

func (f force) direction() float64 {
	return math.Atan2(f.y, f.x)
}

func (f force) magnitude() float64 {
	return math.Hypot(f.x, f.y)
}

func ribbonMagnitude(distance float64) float64 {
	if distance <= 0.5 {
		return 20
	}
	return 10 / distance
}

func dynamicObstacleMagnitude(distance, length, width float64) float64 {
	if distance <= 0 {
		return 1000
	}
	return math.Exp(-distance/13) * length * width / 10
}

func staticObstacleMagnitude(distance float64) float64 {
	if distance > staticObsIgnoreThreshold {
		return 0
	}
	return math.Exp(-distance / 15)
}

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
	current := start
	result := plan.Plan{}
	deadline := time.Now().Add(budget)

	for step := 0; step < lookaheadSteps; step++ {
		if time.Now().After(deadline) {
			break
		}
		net := p.netForce(current, ribbons, dynamicObstacles, staticMap)
		if net.magnitude() < minNetForceMagnitude {
			break
		}
		heading := net.direction()
		next := state.State{
			X:       current.X + stepDistance*math.Cos(heading),
			Y:       current.Y + stepDistance*math.Sin(heading),
			Heading: heading,
			Speed:   cfg.MaxSpeed,
			Time:    current.Time + stepDistance/cfg.MaxSpeed,
		}
		segment, err := plan.NewSegment(current, next, cfg.CoverageTurningRadius, cfg.MaxSpeed, current.Time)
		if err != nil {
			break
		}
		result.Append(segment)
		current = next
	}

	if result.Empty() {
		return planner.Stats{}, planner.ErrPlanFailure
	}
	return planner.Stats{Plan: result, Iterations: len(result.Segments)}, nil
}

// netForce sums ribbon attraction toward every uncovered ribbon endpoint,
// dynamic-obstacle repulsion, and static-obstacle repulsion sampled by
// ray-casting outward from s.
func (p *Planner) netForce(s state.State, ribbons *ribbon.Manager, dyn obstacle.DynamicObstaclesManager, staticMap *obstacle.Map) force {
	net := ribbonForce(s, ribbons)

	if staticMap != nil {
		for _, dir := range []float64{0, math.Pi / 4, -math.Pi / 4, math.Pi / 2, -math.Pi / 2} {
			d := distanceToStaticObstacle(s, s.Heading+dir, staticMap)
			if mag := staticObstacleMagnitude(d); mag > 0 {
				net = net.add(newForce(mag, s.Heading+dir+math.Pi))
			}
		}
	}

	if dyn != nil {
		net = net.add(dynamicObstacleForce(s, dyn))
	}

	return net
}

// dynamicObstacleForce samples the obstacle manager's collision mass on a
// ring around s and sums a repulsion away from every sample that carries
// mass, each scaled by that mass. The DynamicObstaclesManager interface
// only exposes a scalar mass query (not
// individual obstacle footprints), so this finite-difference approach
// stands in for the upstream model's direct per-obstacle width/length
// repulsion term.
func dynamicObstacleForce(s state.State, dyn obstacle.DynamicObstaclesManager) force {
	const radius = 4.0
	var net force
	for i := 0; i < 8; i++ {
		dir := float64(i) * math.Pi / 4
		sx := s.X + radius*math.Cos(dir)
		sy := s.Y + radius*math.Sin(dir)
		mass := dyn.CollisionExists(sx, sy, s.Time, false)
		if mass <= 0 {
			continue
		}
		magnitude := dynamicObstacleMagnitude(radius, 1, 1) * mass
		away := math.Atan2(s.Y-sy, s.X-sx)
		net = net.add(newForce(magnitude, away))
	}
	return net
}

// ribbonForce sums an attractive force toward every uncovered ribbon
// endpoint rather than pulling only toward the single nearest one, so a
// second, farther ribbon still tugs at the vehicle while it works a
// closer one.
func ribbonForce(s state.State, ribbons *ribbon.Manager) force {
	var net force
	for _, r := range ribbons.UncoveredRibbons() {
		for _, endpoint := range []state.State{r.Start, r.End} {
			d := s.DistanceTo(endpoint)
			net = net.add(newForce(ribbonMagnitude(d), s.HeadingTo(endpoint)))
		}
	}
	return net
}

// distanceToStaticObstacle marches outward from s along direction in
// fixed steps until it hits a blocked cell or gives up past the ignore
// threshold.
func distanceToStaticObstacle(s state.State, direction float64, m *obstacle.Map) float64 {
	const step = 0.5
	for d := step; d <= staticObsIgnoreThreshold; d += step {
		x := s.X + d*math.Cos(direction)
		y := s.Y + d*math.Sin(direction)
		if m.IsBlocked(x, y) {
			return d
		}
	}
	return staticObsIgnoreThreshold + 1
}
