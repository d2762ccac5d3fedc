// Package bitstar implements Batch Informed Trees (BIT*) targeting a
// single goal pose (Algorithms 1-3: Prune, ExpandVertex, and the
// batch-sampling main loop). Each invocation has exactly one goal pose —
// the uncovered ribbon endpoint nearest the start by straight-line
// distance — rather than driving toward ribbon coverage directly.
package bitstar

import (
	"container/heap"
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

type vertex struct {
	state            state.State
	currentCost      float64
	currentCostIsSet bool
	approxCost       float64
	approxCostIsSet  bool
	parent           *edge
}

func (v *vertex) currentCostValue() float64 {
	if v.currentCostIsSet {
		return v.currentCost
	}
	return math.MaxFloat64
}

type edge struct {
	start, end  *vertex
	segment     *plan.Segment
	trueCostSet bool
	trueCost    float64
}

// approxDistanceCost is the lower-bound straight-line cost between two
// poses, cheap enough to call while pruning the sample set.
func approxDistanceCost(a, b state.State, maxSpeed float64) float64 {
	return a.DistanceTo(b) / math.Max(maxSpeed, 1e-6)
}

func (e *edge) approxCost(cfg config.PlannerConfig) float64 {
	return approxDistanceCost(e.start.state, e.end.state, cfg.MaxSpeed)
}

// updateTrueCost builds and samples the Dubins connection, applying
// collision penalty and the dynamic-obstacle cost term:
// cost += factor * integratedCost * stdev^power * stdevFactor.
func (e *edge) updateTrueCost(cfg config.PlannerConfig, dyn obstacle.DynamicObstaclesManager, staticMap *obstacle.Map) float64 {
	if e.trueCostSet {
		return e.trueCost
	}
	seg, err := plan.NewSegment(e.start.state, e.end.state, cfg.MaxTurningRadius, cfg.MaxSpeed, e.start.state.Time)
	if err != nil {
		e.trueCost = math.MaxFloat64
		e.trueCostSet = true
		return e.trueCost
	}
	e.segment = &seg

	length := seg.Curve.Length()
	penalty, dynamicCost, samples := 0.0, 0.0, 0
	for d := 0.0; d < length; d += cfg.DubinsInc {
		t := seg.StartTime + d/cfg.MaxSpeed
		s, err := seg.Sample(t)
		if err != nil {
			continue
		}
		samples++
		if staticMap != nil && staticMap.IsBlocked(s.X, s.Y) {
			penalty += cfg.CollisionPenalty
		}
		if dyn != nil {
			mass := dyn.CollisionExists(s.X, s.Y, s.Time, true)
			penalty += mass * cfg.CollisionPenalty
			stdev := math.Sqrt(math.Max(mass, 1e-9))
			dynamicCost += cfg.DynamicObstacleCostFactor * mass *
				math.Pow(stdev, float64(cfg.DynamicObstacleTimeStdevPower)) *
				cfg.DynamicObstacleTimeStdevFactor
		}
	}

	travelTime := length / math.Max(cfg.MaxSpeed, 1e-6) * cfg.TimePenalty
	e.trueCost = travelTime + penalty + dynamicCost
	e.trueCostSet = true
	return e.trueCost
}

// vertexQueue / edgeQueue are container/heap priority queues for the
// vertex expansion queue and the edge-processing queue, each ordered by a
// cost function the caller injects.
type vertexQueue struct {
	nodes []*vertex
	cost  func(*vertex) float64
}

func (q vertexQueue) Len() int            { return len(q.nodes) }
func (q vertexQueue) Less(i, j int) bool  { return q.cost(q.nodes[i]) < q.cost(q.nodes[j]) }
func (q vertexQueue) Swap(i, j int)       { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }
func (q *vertexQueue) Push(x interface{}) { q.nodes = append(q.nodes, x.(*vertex)) }
func (q *vertexQueue) Pop() interface{} {
	n := len(q.nodes)
	x := q.nodes[n-1]
	q.nodes = q.nodes[:n-1]
	return x
}

type edgeQueue struct {
	nodes []*edge
	cost  func(*edge) float64
}

func (q edgeQueue) Len() int            { return len(q.nodes) }
func (q edgeQueue) Less(i, j int) bool  { return q.cost(q.nodes[i]) < q.cost(q.nodes[j]) }
func (q edgeQueue) Swap(i, j int)       { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }
func (q *edgeQueue) Push(x interface{}) { q.nodes = append(q.nodes, x.(*edge)) }
func (q *edgeQueue) Pop() interface{} {
	n := len(q.nodes)
	x := q.nodes[n-1]
	q.nodes = q.nodes[:n-1]
	return x
}

// Planner implements planner.Planner with BIT*, targeting a single goal
// pose synthesized each call from the nearest uncovered ribbon endpoint.
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
	// BIT* plans once to a goal pose and should not be re-invoked while a
	// non-empty plan still exists; the executive enforces that skip, so by
	// the time we're called previous is expected empty, but we honor it
	// defensively too.
	if !previous.Empty() {
		return planner.Stats{Plan: previous}, nil
	}

	goal, ok := selectGoalPose(start, cfg, ribbons)
	if !ok {
		return planner.Stats{}, planner.ErrPlanFailure
	}

	deadline := time.Now().Add(budget)

	startV := &vertex{state: start, currentCost: 0, currentCostIsSet: true}
	goalV := &vertex{state: goal}
	best := goalV

	var samples, vertices []*vertex
	var edges []*edge
	vertices = append(vertices, startV)

	qV := &vertexQueue{cost: func(v *vertex) float64 { return v.currentCostValue() + approxDistanceCost(v.state, goal, cfg.MaxSpeed) }}
	qE := &edgeQueue{cost: func(e *edge) float64 {
		return e.start.currentCostValue() + e.approxCost(cfg) + approxDistanceCost(e.end.state, goal, cfg.MaxSpeed)
	}}

	generated, expanded := 1, 0
	batches := 0

	for time.Now().Before(deadline) {
		if qE.Len() == 0 && qV.Len() == 0 {
			prune(&samples, &vertices, &edges, best.currentCostValue())

			batchSize := cfg.BitStarSamples
			samples = make([]*vertex, batchSize)
			for i := 0; i < batchSize; i++ {
				samples[i] = &vertex{state: sampleNear(start, goal, cfg, best.currentCostValue())}
			}
			generated += batchSize
			batches++

			qV.nodes = append([]*vertex(nil), vertices...)
			heap.Init(qV)
		}

		for qE.Len() == 0 && qV.Len() > 0 {
			v := heap.Pop(qV).(*vertex)
			expanded++
			expandVertex(v, qE, samples, vertices, cfg, goal)
		}
		if qE.Len() == 0 {
			continue // exhausted this batch with nothing left to expand; sample another
		}

		e := heap.Pop(qE).(*edge)
		vM, xM := e.start, e.end

		if vM.currentCostValue()+e.approxCost(cfg)+approxDistanceCost(xM.state, goal, cfg.MaxSpeed) >= best.currentCostValue() {
			qV.nodes, qE.nodes = nil, nil
			continue
		}
		trueCost := e.updateTrueCost(cfg, dynamicObstacles, staticMap)
		if vM.currentCostValue()+trueCost >= xM.currentCostValue() {
			continue
		}
		xM.currentCost, xM.currentCostIsSet = vM.currentCostValue()+trueCost, true
		xM.parent = e
		if !containsVertex(vertices, xM) {
			samples = removeVertex(samples, xM)
			vertices = append(vertices, xM)
			heap.Push(qV, xM)
		}
		edges = append(edges, e)

		if best.currentCostValue() > xM.currentCostValue()+approxDistanceCost(xM.state, goal, cfg.MaxSpeed) {
			best = xM
		}
		if xM == goalV || xM.state.DistanceTo(goal) < 1e-6 {
			best = xM
			break
		}
	}

	tracedPlan, ok := tracePlan(best, cfg)
	if !ok {
		return planner.Stats{}, planner.ErrPlanFailure
	}
	return planner.Stats{
		Plan:       tracedPlan,
		Generated:  generated,
		Expanded:   expanded,
		Iterations: batches,
		FinalCost:  best.currentCostValue(),
	}, nil
}

// selectGoalPose picks the uncovered ribbon endpoint nearest to start by
// straight-line distance and uses it as BIT*'s single target. The ribbon
// manager's configured heuristic is not consulted.
func selectGoalPose(start state.State, cfg config.PlannerConfig, ribbons *ribbon.Manager) (state.State, bool) {
	uncovered := ribbons.UncoveredRibbons()
	if len(uncovered) == 0 {
		return state.State{}, false
	}
	best := uncovered[0].Start
	bestDist := start.DistanceTo(best)
	for _, r := range uncovered {
		for _, candidate := range []state.State{r.Start, r.End} {
			if d := start.DistanceTo(candidate); d < bestDist {
				best, bestDist = candidate, d
			}
		}
	}
	best.Speed = cfg.MaxSpeed
	return best, true
}

func sampleNear(start, goal state.State, cfg config.PlannerConfig, costBound float64) state.State {
	if rand.Float64() < cfg.GoalBias {
		g := goal
		g.Time = start.Time + start.DistanceTo(goal)/math.Max(cfg.MaxSpeed, 1e-6)
		return g
	}
	radius := math.Min(costBound*cfg.MaxSpeed, start.DistanceTo(goal)*3+50)
	midX, midY := (start.X+goal.X)/2, (start.Y+goal.Y)/2
	x := midX - radius + rand.Float64()*2*radius
	y := midY - radius + rand.Float64()*2*radius
	heading := rand.Float64() * 2 * math.Pi
	speed := cfg.MaxSpeed
	if rand.Float64() > cfg.MaxSpeedBias {
		speed = rand.Float64() * cfg.MaxSpeed
	}
	return state.State{X: x, Y: y, Heading: heading, Speed: speed, Time: start.Time + start.DistanceTo(state.State{X: x, Y: y})/math.Max(speed, 0.1)}
}

// prune implements Algorithm 3: drop samples/vertices/edges that can't
// possibly improve on goalCost, and demote vertices whose current cost was
// never actually set back into the sample pool.
func prune(samples, vertices *[]*vertex, edges *[]*edge, goalCost float64) {
	filterVertices(samples, func(v *vertex) bool { return v.currentCostValue() < goalCost })
	filterVertices(vertices, func(v *vertex) bool { return v.currentCostValue() <= goalCost })
	filterEdges(edges, func(e *edge) bool { return e.start.currentCostValue() <= goalCost && e.end.currentCostValue() <= goalCost })

	kept := (*vertices)[:0:0]
	for _, v := range *vertices {
		if v.currentCostIsSet {
			kept = append(kept, v)
		} else {
			*samples = append(*samples, v)
		}
	}
	*vertices = kept
}

func filterVertices(vs *[]*vertex, keep func(*vertex) bool) {
	kept := (*vs)[:0:0]
	for _, v := range *vs {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	*vs = kept
}

func filterEdges(es *[]*edge, keep func(*edge) bool) {
	kept := (*es)[:0:0]
	for _, e := range *es {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	*es = kept
}

func containsVertex(vs []*vertex, target *vertex) bool {
	for _, v := range vs {
		if v == target {
			return true
		}
	}
	return false
}

func removeVertex(vs []*vertex, target *vertex) []*vertex {
	out := vs[:0:0]
	for _, v := range vs {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// expandVertex implements Algorithm 2: queue edges from v to every sample,
// and to every other tree vertex whose cost the edge's approximate cost
// could improve. No neighbourhood radius is applied.
func expandVertex(v *vertex, qE *edgeQueue, samples, vertices []*vertex, cfg config.PlannerConfig, goal state.State) {
	for _, s := range samples {
		if s == v {
			continue
		}
		e := &edge{start: v, end: s}
		if v.currentCostValue()+e.approxCost(cfg)+approxDistanceCost(s.state, goal, cfg.MaxSpeed) < math.MaxFloat64 {
			heap.Push(qE, e)
		}
	}
	for _, other := range vertices {
		if other == v {
			continue
		}
		e := &edge{start: v, end: other}
		if v.currentCostValue()+e.approxCost(cfg) < other.currentCostValue() {
			heap.Push(qE, e)
		}
	}
}

// tracePlan walks parent edges back to the root and appends their segments,
// in order, to a plan.Plan. No smoothing is applied, and
// cfg.AggressiveSmoothing is not consulted.
func tracePlan(v *vertex, cfg config.PlannerConfig) (plan.Plan, bool) {
	var segments []plan.Segment
	for cursor := v; cursor != nil && cursor.parent != nil; cursor = cursor.parent.start {
		if cursor.parent.segment == nil {
			return plan.Plan{}, false
		}
		segments = append(segments, *cursor.parent.segment)
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
