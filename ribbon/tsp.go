package ribbon

import (
	"math"
	"sort"

	"github.com/jhc-asv/ribbon-planner/state"
)

// TSPSolver precomputes, for every candidate point, its neighbours sorted
// by distance, so repeated greedy-nearest-neighbour tours over subsets of
// those points don't re-sort from scratch each time.
type TSPSolver struct {
	points    []point
	distances map[point][]pointDistance
}

type point struct {
	x, y float64
}

type pointDistance struct {
	point    point
	distance float64
}

func (p point) distanceTo(other point) pointDistance {
	dx, dy := other.x-p.x, other.y-p.y
	return pointDistance{point: other, distance: math.Sqrt(dx*dx + dy*dy)}
}

// NewTSPSolver indexes the endpoints of every ribbon.
func NewTSPSolver(ribbons []*Ribbon) TSPSolver {
	var s TSPSolver
	s.distances = map[point][]pointDistance{}
	seen := map[point]bool{}
	for _, r := range ribbons {
		for _, p := range []point{{r.Start.X, r.Start.Y}, {r.End.X, r.End.Y}} {
			if !seen[p] {
				seen[p] = true
				s.points = append(s.points, p)
			}
		}
	}
	for _, p := range s.points {
		list := make([]pointDistance, 0, len(s.points)-1)
		for _, other := range s.points {
			if other == p {
				continue
			}
			list = append(list, p.distanceTo(other))
		}
		sort.Slice(list, func(i, j int) bool { return list[i].distance < list[j].distance })
		s.distances[p] = list
	}
	return s
}

// Solve returns the length of a greedy nearest-neighbour tour starting at
// (x, y) and visiting every point among targets.
func (s TSPSolver) Solve(x, y float64, targets []state.State) float64 {
	if len(targets) == 0 {
		return 0
	}
	wanted := make(map[point]bool, len(targets))
	for _, t := range targets {
		wanted[point{t.X, t.Y}] = true
	}

	start := point{x, y}
	var best pointDistance
	found := false
	for _, p := range s.points {
		if !wanted[p] {
			continue
		}
		pd := start.distanceTo(p)
		if !found || pd.distance < best.distance {
			best, found = pd, true
		}
	}
	if !found {
		return 0
	}

	covered := map[point]bool{}
	current := best
	total := 0.0
	for {
		total += current.distance
		covered[current.point] = true
		next := pointDistance{}
		nextFound := false
		for _, pd := range s.distances[current.point] {
			if wanted[pd.point] && !covered[pd.point] {
				next, nextFound = pd, true
				break
			}
		}
		if !nextFound {
			break
		}
		current = next
	}
	return total
}
