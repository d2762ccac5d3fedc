package astar

import (
	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
)

// edge is a lazily-evaluated Dubins connection between two vertices. Its
// approximate cost (pure travel time) is cheap; its true cost additionally
// accounts for collision penalty and newly-covered ribbon credit, and is
// only computed when the edge is actually expanded.
type edge struct {
	start, end  *vertex
	segment     plan.Segment
	trueCostSet bool
	trueCost    float64
}

func newEdge(start, end *vertex, cfg config.PlannerConfig) (*edge, error) {
	seg, err := plan.NewSegment(start.state, end.state, cfg.CoverageTurningRadius, cfg.MaxSpeed, start.state.Time)
	if err != nil {
		return nil, err
	}
	return &edge{start: start, end: end, segment: seg}, nil
}

func (e *edge) approxCost(cfg config.PlannerConfig) float64 {
	return e.segment.Curve.Length() / cfg.MaxSpeed * cfg.TimePenalty
}

// updateTrueCost samples the connecting Dubins arc at DubinsInc intervals,
// accumulating a collision penalty against both the static map and dynamic
// obstacles, and crediting coverage for any ribbon swept along the way.
func (e *edge) updateTrueCost(cfg config.PlannerConfig, dyn obstacle.DynamicObstaclesManager, staticMap *obstacle.Map) {
	length := e.segment.Curve.Length()
	if length == 0 {
		e.trueCost = e.start.gValue()
		e.trueCostSet = true
		return
	}
	if e.end.uncovered != nil {
		e.end.uncovered = e.end.uncovered.Clone()
	}
	penalty := 0.0
	for d := 0.0; d < length; d += cfg.DubinsInc {
		t := e.segment.StartTime + d/cfg.MaxSpeed
		s, err := e.segment.Sample(t)
		if err != nil {
			continue
		}
		if staticMap != nil && staticMap.IsBlocked(s.X, s.Y) {
			penalty += cfg.CollisionPenalty
		}
		if dyn != nil {
			penalty += dyn.CollisionExists(s.X, s.Y, s.Time, true) * cfg.CollisionPenalty
		}
		if e.end.uncovered != nil {
			e.end.uncovered.Cover(s, false)
		}
	}

	if e.end.uncovered != nil {
		endPose, err := e.segment.Sample(e.segment.EndTime())
		if err == nil {
			e.end.uncovered.Cover(endPose, false)
		}
	}

	e.trueCost = e.start.gValue() + e.approxCost(cfg) + penalty
	e.trueCostSet = true
}
