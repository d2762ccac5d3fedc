package obstacle

import "github.com/jhc-asv/ribbon-planner/state"

// DynamicObstaclesManager is the interface planners use for collision
// queries against whichever dynamic-obstacle model the executive is
// configured with.
type DynamicObstaclesManager interface {
	// CollisionExists returns a probability-like mass (0 for no collision)
	// that (x, y) at time t intersects a tracked obstacle. strict is passed
	// through to the model; neither Binary nor GaussianManager changes its
	// answer with it.
	CollisionExists(x, y, t float64, strict bool) float64

	// UpdateState pushes a fresh track report for obstacle id, the uniform
	// entry point inbound telemetry events use regardless of which model
	// is configured.
	UpdateState(id uint32, s state.State)
}
