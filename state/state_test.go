package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeUntil(t *testing.T) {
	a := State{Time: 1}
	b := State{Time: 4}
	assert.Equal(t, 3.0, a.TimeUntil(b))
}

func TestDistanceTo(t *testing.T) {
	a := State{X: 0, Y: 0}
	b := State{X: 3, Y: 4}
	assert.Equal(t, 5.0, a.DistanceTo(b))
}

func TestHeadingTo(t *testing.T) {
	a := State{X: 0, Y: 0}
	b := State{X: 1, Y: 1}
	assert.InDelta(t, math.Pi/4, a.HeadingTo(b), 1e-9)
}

func TestCollides(t *testing.T) {
	a := State{X: 0, Y: 0, Time: 10}
	close := State{X: 1, Y: 1, Time: 10}
	far := State{X: 10, Y: 10, Time: 10}
	laterTime := State{X: 0, Y: 0, Time: 11}
	assert.True(t, a.Collides(close))
	assert.False(t, a.Collides(far))
	assert.False(t, a.Collides(laterTime))
}

func TestProject(t *testing.T) {
	s := State{X: 0, Y: 0, Heading: 0, Speed: 2, Time: 0}
	p := s.Project(5)
	assert.InDelta(t, 10.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
	assert.Equal(t, 5.0, p.Time)
}

func TestPush(t *testing.T) {
	s := State{X: 0, Y: 0}
	s.Push(math.Pi/2, 3)
	assert.InDelta(t, 0.0, s.X, 1e-9)
	assert.InDelta(t, 3.0, s.Y, 1e-9)
}
