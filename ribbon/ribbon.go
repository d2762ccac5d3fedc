// Package ribbon tracks swath-coverage "ribbons" the vehicle must sweep,
// and the heuristics used to pick which uncovered ribbon to aim at next.
package ribbon

import (
	"math"

	"github.com/jhc-asv/ribbon-planner/state"
)

// MinLength below which a ribbon is dropped instead of tracked — avoids
// chasing slivers left over from interval arithmetic.
const MinLength = 1.0

// interval is a covered sub-span of a ribbon, in parametric distance along
// it (0 at Start, Length() at End).
type interval struct {
	lo, hi float64
}

// Ribbon is a straight line segment the vehicle should sweep at least once,
// with Width describing the sensor swath it contributes coverage credit
// within.
type Ribbon struct {
	Start, End state.State
	Width      float64
	covered    []interval
}

func NewRibbon(start, end state.State, width float64) *Ribbon {
	return &Ribbon{Start: start, End: end, Width: width}
}

func (r *Ribbon) Length() float64 {
	return r.Start.DistanceTo(r.End)
}

func (r *Ribbon) dx() float64 { return r.End.X - r.Start.X }
func (r *Ribbon) dy() float64 { return r.End.Y - r.Start.Y }

// project returns the parametric distance along the ribbon closest to
// (x, y) and the perpendicular distance to the ribbon's line. If strict,
// (x, y) must project to somewhere between the endpoints (t in
// [0, Length()]) or ok is false; otherwise the projection is clamped to
// the nearest endpoint, extending the ribbon's effective line.
func (r *Ribbon) project(x, y float64, strict bool) (dist, perp float64, ok bool) {
	length := r.Length()
	if length == 0 {
		return 0, r.Start.DistanceTo(state.State{X: x, Y: y}), true
	}
	ux, uy := r.dx()/length, r.dy()/length
	vx, vy := x-r.Start.X, y-r.Start.Y
	t := vx*ux + vy*uy
	if strict && (t < 0 || t > length) {
		return t, 0, false
	}
	t = math.Max(0, math.Min(length, t))
	px, py := r.Start.X+ux*t, r.Start.Y+uy*t
	return t, math.Hypot(x-px, y-py), true
}

// Cover marks the span within Width/2 of (x, y)'s projection as covered,
// if the point is close enough to the ribbon's line to count. strict
// requires (x, y) to project between the ribbon's endpoints; non-strict
// extends the line past the endpoints so near-miss points still count.
func (r *Ribbon) Cover(x, y float64, strict bool) {
	dist, perp, ok := r.project(x, y, strict)
	if !ok || perp > r.Width/2 {
		return
	}
	length := r.Length()
	lo := math.Max(0, dist-r.Width/2)
	hi := math.Min(length, dist+r.Width/2)
	r.addInterval(interval{lo, hi})
}

func (r *Ribbon) addInterval(n interval) {
	merged := []interval{n}
	for _, existing := range r.covered {
		if existing.hi < merged[0].lo-1e-9 || existing.lo > merged[0].hi+1e-9 {
			merged = append(merged, existing)
			continue
		}
		merged[0].lo = math.Min(merged[0].lo, existing.lo)
		merged[0].hi = math.Max(merged[0].hi, existing.hi)
	}
	r.covered = merged
}

// CoveredLength sums the merged covered intervals.
func (r *Ribbon) CoveredLength() float64 {
	total := 0.0
	for _, iv := range r.covered {
		total += iv.hi - iv.lo
	}
	return total
}

func (r *Ribbon) UncoveredLength() float64 {
	return math.Max(0, r.Length()-r.CoveredLength())
}

func (r *Ribbon) Done() bool {
	return r.UncoveredLength() < MinLength
}

// LargestUncoveredSpan returns the endpoints (in world coordinates) of the
// longest contiguous gap in coverage, used as the "still needs doing" part
// of the ribbon when a planner needs a concrete target.
func (r *Ribbon) LargestUncoveredSpan() (state.State, state.State) {
	length := r.Length()
	if len(r.covered) == 0 {
		return r.Start, r.End
	}
	gaps := []interval{}
	cursor := 0.0
	for _, iv := range r.covered {
		if iv.lo > cursor {
			gaps = append(gaps, interval{cursor, iv.lo})
		}
		cursor = iv.hi
	}
	if cursor < length {
		gaps = append(gaps, interval{cursor, length})
	}
	best := interval{0, 0}
	for _, g := range gaps {
		if g.hi-g.lo > best.hi-best.lo {
			best = g
		}
	}
	return r.pointAt(best.lo), r.pointAt(best.hi)
}

func (r *Ribbon) pointAt(dist float64) state.State {
	length := r.Length()
	if length == 0 {
		return r.Start
	}
	t := dist / length
	return state.State{
		X:       r.Start.X + r.dx()*t,
		Y:       r.Start.Y + r.dy()*t,
		Heading: r.Start.Heading,
	}
}

// Clone deep-copies covered-interval state so snapshots taken under a lock
// can be handed to a planner safely.
func (r *Ribbon) Clone() *Ribbon {
	c := &Ribbon{Start: r.Start, End: r.End, Width: r.Width}
	c.covered = append(c.covered, r.covered...)
	return c
}
