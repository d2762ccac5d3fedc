// Package config defines the immutable per-call planner configuration
// passed explicitly instead of held as shared package-level mutable state.
package config

import "github.com/jhc-asv/ribbon-planner/ribbon"

// PlannerConfig bundles every tunable a Planner.Plan call needs. It is
// passed by value so a planner can never observe a config change made by
// a concurrent replanning cycle — each cycle builds its own.
type PlannerConfig struct {
	MaxSpeed         float64
	MaxTurningRadius float64
	CoverageTurningRadius float64

	// TimeHorizon bounds how far ahead a planner samples/searches;
	// TimeMinimum floors it so repeated-failure backoff can't shrink it
	// to nothing.
	TimeHorizon float64
	TimeMinimum float64

	// sampling-based / BIT* planner tunables
	GoalBias            float64
	MaxSpeedBias        float64
	DubinsInc           float64
	K                    int
	BitStarSamples       int
	AggressiveSmoothing  bool
	Weight               float64
	Heuristic            ribbon.Heuristic

	// cost-accounting tunables
	CoveragePenalty  float64
	CollisionPenalty float64
	TimePenalty      float64

	// BIT* dynamic-obstacle cost shaping
	DynamicObstacleCostFactor    float64
	DynamicObstacleTimeStdevPower float64
	DynamicObstacleTimeStdevFactor float64
}

// Default returns the tunables the upstream planner shipped with.
func Default() PlannerConfig {
	return PlannerConfig{
		MaxSpeed:              2.5,
		MaxTurningRadius:      8,
		CoverageTurningRadius: 8,

		TimeHorizon: 60,
		TimeMinimum: 15,

		GoalBias:           0.05,
		MaxSpeedBias:       1.0,
		DubinsInc:          0.1,
		K:                  3,
		BitStarSamples:     10,
		AggressiveSmoothing: false,
		Weight:             1.0,
		Heuristic:          ribbon.TspPointRobotNoSplitKRibbons,

		CoveragePenalty:  10,
		CollisionPenalty: 600,
		TimePenalty:      1,

		DynamicObstacleCostFactor:     100000,
		DynamicObstacleTimeStdevPower: 1,
		DynamicObstacleTimeStdevFactor: 1,
	}
}
