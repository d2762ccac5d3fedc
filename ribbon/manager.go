package ribbon

import (
	"math"

	"github.com/jhc-asv/ribbon-planner/state"
)

// Heuristic selects how Manager.HeuristicCost estimates the remaining cost
// to finish coverage, mirroring the named heuristics of the coverage
// planner this package descends from.
type Heuristic int

const (
	MaxDistance Heuristic = iota
	TspPointRobotNoSplitAllRibbons
	TspPointRobotNoSplitKRibbons
	TspDubinsNoSplitAllRibbons
	TspDubinsNoSplitKRibbons
)

// Manager owns the set of ribbons a coverage mission must sweep and how
// much of each has been covered so far.
type Manager struct {
	Ribbons   []*Ribbon
	Heuristic Heuristic
	K         int // number of nearest ribbons considered by the "K" heuristics
	TurningRadius float64
}

func NewManager(h Heuristic, turningRadius float64, k int) *Manager {
	return &Manager{Heuristic: h, TurningRadius: turningRadius, K: k}
}

func (m *Manager) Add(r *Ribbon) {
	m.Ribbons = append(m.Ribbons, r)
}

// Cover marks coverage credit for a single pose against every ribbon.
// strict requires the pose to project between each ribbon's endpoints;
// non-strict extends each ribbon's line so near-miss poses still count.
func (m *Manager) Cover(s state.State, strict bool) {
	for _, r := range m.Ribbons {
		r.Cover(s.X, s.Y, strict)
	}
}

// CoverBetween sweeps coverage credit along the straight segment from a to
// b, sampled every 0.5 m, so a crossed ribbon at least as wide as that
// step is not missed.
func (m *Manager) CoverBetween(a, b state.State, strict bool) {
	dist := a.DistanceTo(b)
	if dist == 0 {
		m.Cover(a, strict)
		return
	}
	step := 0.5
	steps := int(math.Ceil(dist / step))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		m.Cover(state.State{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}, strict)
	}
}

// Done is true once every ribbon's uncovered length has dropped below
// MinLength.
func (m *Manager) Done() bool {
	for _, r := range m.Ribbons {
		if !r.Done() {
			return false
		}
	}
	return true
}

func (m *Manager) GetTotalUncoveredLength() float64 {
	total := 0.0
	for _, r := range m.Ribbons {
		total += r.UncoveredLength()
	}
	return total
}

// UncoveredRibbons returns the ribbons that still have work left, each
// reduced to its largest remaining uncovered span.
func (m *Manager) UncoveredRibbons() []*Ribbon {
	var out []*Ribbon
	for _, r := range m.Ribbons {
		if r.Done() {
			continue
		}
		start, end := r.LargestUncoveredSpan()
		out = append(out, &Ribbon{Start: start, End: end, Width: r.Width})
	}
	return out
}

// Clone deep-copies every ribbon's coverage state so a snapshot can be
// handed to a planner while the original continues to accumulate
// coverage concurrently.
func (m *Manager) Clone() *Manager {
	c := &Manager{Heuristic: m.Heuristic, K: m.K, TurningRadius: m.TurningRadius}
	for _, r := range m.Ribbons {
		c.Ribbons = append(c.Ribbons, r.Clone())
	}
	return c
}

// HeuristicCost estimates the remaining cost to finish coverage from s,
// per the configured Heuristic.
func (m *Manager) HeuristicCost(s state.State) float64 {
	uncovered := m.UncoveredRibbons()
	if len(uncovered) == 0 {
		return 0
	}
	switch m.Heuristic {
	case MaxDistance:
		return m.maxDistanceCost(s, uncovered)
	case TspPointRobotNoSplitAllRibbons:
		return m.tspCost(s, uncovered)
	case TspPointRobotNoSplitKRibbons:
		return m.tspCost(s, m.nearestK(s, uncovered))
	case TspDubinsNoSplitAllRibbons:
		return m.tspCost(s, uncovered) // point-robot tour length stands in for a Dubins-aware tour; TurningRadius is not used
	case TspDubinsNoSplitKRibbons:
		return m.tspCost(s, m.nearestK(s, uncovered))
	default:
		return m.maxDistanceCost(s, uncovered)
	}
}

func (m *Manager) maxDistanceCost(s state.State, ribbons []*Ribbon) float64 {
	max := 0.0
	for _, r := range ribbons {
		if d := s.DistanceTo(r.Start); d > max {
			max = d
		}
		if d := s.DistanceTo(r.End); d > max {
			max = d
		}
	}
	return max
}

func (m *Manager) tspCost(s state.State, ribbons []*Ribbon) float64 {
	solver := NewTSPSolver(ribbons)
	var targets []state.State
	for _, r := range ribbons {
		targets = append(targets, r.Start, r.End)
	}
	return solver.Solve(s.X, s.Y, targets)
}

func (m *Manager) nearestK(s state.State, ribbons []*Ribbon) []*Ribbon {
	k := m.K
	if k <= 0 || k >= len(ribbons) {
		return ribbons
	}
	type scored struct {
		r *Ribbon
		d float64
	}
	scores := make([]scored, len(ribbons))
	for i, r := range ribbons {
		d := math.Min(s.DistanceTo(r.Start), s.DistanceTo(r.End))
		scores[i] = scored{r, d}
	}
	for i := 0; i < k; i++ {
		min := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].d < scores[min].d {
				min = j
			}
		}
		scores[i], scores[min] = scores[min], scores[i]
	}
	out := make([]*Ribbon, k)
	for i := 0; i < k; i++ {
		out[i] = scores[i].r
	}
	return out
}
