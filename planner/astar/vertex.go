package astar

import (
	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

// vertex is a sampled pose in the lazy search graph, reachable from the
// start through a chain of parent edges.
type vertex struct {
	state       state.State
	currentCost float64
	costSet     bool
	parent      *edge
	uncovered   *ribbon.Manager

	// seq is assigned in push order and used only to break ties between
	// two vertices with equal h and g values.
	seq int
}

func (v *vertex) gValue() float64 {
	if v.costSet {
		return v.currentCost
	}
	return 0
}

// hValue estimates the remaining coverage cost from this vertex, using
// whichever ribbon heuristic the config selects.
func (v *vertex) hValue(cfg config.PlannerConfig) float64 {
	if v.uncovered == nil {
		return 0
	}
	return v.uncovered.HeuristicCost(v.state) / maxf(cfg.MaxSpeed, 1e-6) * cfg.TimePenalty * cfg.Weight
}

func (v *vertex) fValue(cfg config.PlannerConfig) float64 {
	return v.gValue() + v.hValue(cfg)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
