// Package planner defines the shared trait every concrete planner (the
// potential-field, A*/sampling-based, and BIT* families) implements.
package planner

import (
	"errors"
	"time"

	"github.com/jhc-asv/ribbon-planner/config"
	"github.com/jhc-asv/ribbon-planner/obstacle"
	"github.com/jhc-asv/ribbon-planner/plan"
	"github.com/jhc-asv/ribbon-planner/ribbon"
	"github.com/jhc-asv/ribbon-planner/state"
)

// ErrPlanFailure is returned when a planner exhausts its budget without
// producing any usable plan. The executive treats this as an empty-plan
// cycle rather than a fatal error.
var ErrPlanFailure = errors.New("planner: failed to find a plan within budget")

// Stats summarizes one planning call for logging/telemetry.
type Stats struct {
	Plan       plan.Plan
	Generated  int
	Expanded   int
	Iterations int
	FinalCost  float64
}

// Planner is satisfied by every member of the planner family.
type Planner interface {
	// Plan searches for a coverage plan starting at start, budgeted to
	// return before budget elapses. previous is the plan still being
	// followed: BIT* returns it unchanged when it is non-empty, and the
	// other planners ignore it.
	Plan(
		ribbons *ribbon.Manager,
		start state.State,
		cfg config.PlannerConfig,
		previous plan.Plan,
		budget time.Duration,
		dynamicObstacles obstacle.DynamicObstaclesManager,
		staticMap *obstacle.Map,
	) (Stats, error)
}
