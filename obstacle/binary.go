package obstacle

import (
	"math"
	"sync"

	"github.com/jhc-asv/ribbon-planner/state"
)

// Binary tracks dynamic obstacles as oriented-rectangle footprints and
// reports an all-or-nothing collision probability, the cheap alternative
// to Gaussian when an obstacle's true spread isn't worth modeling.
type Binary struct {
	mu     sync.Mutex
	tracks map[uint32]state.State
	Length, Width float64 // footprint dimensions, metres
}

func NewBinary(length, width float64) *Binary {
	return &Binary{tracks: map[uint32]state.State{}, Length: length, Width: width}
}

func (b *Binary) Update(id uint32, s state.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracks[id] = s
}

// UpdateState satisfies DynamicObstaclesManager. Update remains the direct
// entry point for callers that already track obstacles as state.State.
func (b *Binary) UpdateState(id uint32, s state.State) {
	b.Update(id, s)
}

func (b *Binary) Forget(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tracks, id)
}

// CollisionExists projects every tracked obstacle to the query time and
// returns 1.0 if the query point falls within any obstacle's footprint
// rectangle, else 0.
func (b *Binary) CollisionExists(x, y, t float64, strict bool) float64 {
	b.mu.Lock()
	tracks := make([]state.State, 0, len(b.tracks))
	for _, s := range b.tracks {
		tracks = append(tracks, s)
	}
	b.mu.Unlock()

	for _, obstacle := range tracks {
		projected := obstacle.Project(t)
		if rectangleContains(projected, b.Length, b.Width, x, y) {
			return 1.0
		}
	}
	return 0
}

// rectangleContains tests whether (x, y) falls within the oriented
// rectangle of the given length/width centered on and heading-aligned
// with center.
func rectangleContains(center state.State, length, width, x, y float64) bool {
	dx, dy := x-center.X, y-center.Y
	cos, sin := math.Cos(center.Heading), math.Sin(center.Heading)
	// rotate the query point into the obstacle's body frame
	localX := dx*cos + dy*sin
	localY := -dx*sin + dy*cos
	return localX >= -length/2 && localX <= length/2 &&
		localY >= -width/2 && localY <= width/2
}

// GetDeepCopy returns a snapshot map suitable for handing to a planner
// that must not observe further mutation of the live track table.
func (b *Binary) GetDeepCopy() map[uint32]state.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[uint32]state.State, len(b.tracks))
	for id, s := range b.tracks {
		out[id] = s
	}
	return out
}

func (b *Binary) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tracks)
}
