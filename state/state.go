// Package state defines the vehicle pose/time primitive shared by every
// planner, the ribbon manager, and the obstacle models.
package state

import (
	"fmt"
	"math"
)

const collisionThreshold = 1.5

// State is a single pose of the vehicle at an instant. Heading is radians
// measured the way the Dubins math wants it (clockwise from north folded
// into the usual east-counterclockwise convention), not compass heading;
// String() flips it back for display.
type State struct {
	X, Y, Heading, Speed, Time float64
}

func (s State) TimeUntil(other State) float64 {
	return other.Time - s.Time
}

func (s State) DistanceTo(other State) float64 {
	return math.Hypot(s.X-other.X, s.Y-other.Y)
}

func (s State) HeadingTo(other State) float64 {
	h := math.Atan2(other.Y-s.Y, other.X-s.X)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// Collides is true iff other is at the same time and within 1.5m in both
// axes — the coarse box check used for instantaneous collision penalties.
func (s State) Collides(other State) bool {
	return s.Time == other.Time &&
		math.Abs(s.X-other.X) < collisionThreshold &&
		math.Abs(s.Y-other.Y) < collisionThreshold
}

func (s State) IsSamePosition(other State) bool {
	return s.X == other.X && s.Y == other.Y
}

// Array returns {x, y, heading} for the dubins package's curve solver.
func (s State) Array() [3]float64 {
	return [3]float64{s.X, s.Y, s.Heading}
}

func (s State) String() string {
	return fmt.Sprintf("%f %f %f %f %f", s.X, s.Y, (-1*s.Heading)+math.Pi/2, s.Speed, s.Time)
}

// Project extrapolates to time assuming constant speed and heading.
func (s State) Project(time float64) State {
	dt := time - s.Time
	magnitude := dt * s.Speed
	return State{
		X:       s.X + math.Cos(s.Heading)*magnitude,
		Y:       s.Y + math.Sin(s.Heading)*magnitude,
		Heading: s.Heading,
		Speed:   s.Speed,
		Time:    time,
	}
}

// Push moves the state along heading by distance. Mutates in place.
func (s *State) Push(heading float64, distance float64) {
	s.X += distance * math.Cos(heading)
	s.Y += distance * math.Sin(heading)
}
