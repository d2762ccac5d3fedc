// Package plan implements the time-parameterized Dubins plan model shared
// by every planner and the executive's replanning loop.
package plan

import (
	"errors"
	"fmt"

	"github.com/jhc-asv/ribbon-planner/dubins"
	"github.com/jhc-asv/ribbon-planner/state"
)

// ErrOutOfRange is returned by Sample, StartTime, and EndTime when a plan
// is empty or a requested time falls outside its coverage.
var ErrOutOfRange = errors.New("plan: time outside bounds")

const planTimeDensity = 0.5

// Segment is a single Dubins arc driven at a constant speed, starting at
// StartTime.
type Segment struct {
	Curve     dubins.Path
	Speed     float64
	StartTime float64
}

// EndTime is StartTime plus however long the curve takes to drive at Speed.
func (s Segment) EndTime() float64 {
	if s.Speed == 0 {
		return s.StartTime
	}
	return s.StartTime + s.Curve.Length()/s.Speed
}

func (s Segment) ContainsTime(t float64) bool {
	return t >= s.StartTime && t <= s.EndTime()
}

// Sample returns the pose at time t, which must satisfy ContainsTime(t).
func (s Segment) Sample(t float64) (state.State, error) {
	if !s.ContainsTime(t) {
		return state.State{}, ErrOutOfRange
	}
	var q [3]float64
	dist := (t - s.StartTime) * s.Speed
	if errCode := s.Curve.Sample(dist, &q); errCode != 0 {
		return state.State{}, fmt.Errorf("plan: dubins sample error %d", errCode)
	}
	return state.State{X: q[0], Y: q[1], Heading: q[2], Speed: s.Speed, Time: t}, nil
}

// NewSegment builds the shortest Dubins connection between start and end at
// turning radius rho, run at the given speed beginning at startTime.
func NewSegment(start, end state.State, rho, speed, startTime float64) (Segment, error) {
	var curve dubins.Path
	if errCode := dubins.ShortestPath(&curve, start.Array(), end.Array(), rho); errCode != 0 {
		return Segment{}, fmt.Errorf("plan: no dubins path (error %d)", errCode)
	}
	return Segment{Curve: curve, Speed: speed, StartTime: startTime}, nil
}

// Plan is an ordered sequence of segments, each picking up where the last
// left off in time.
type Plan struct {
	Segments  []Segment
	Dangerous bool
}

func (p *Plan) Empty() bool { return len(p.Segments) == 0 }

func (p *Plan) Append(s Segment) {
	p.Segments = append(p.Segments, s)
}

func (p *Plan) AppendPlan(other Plan) {
	p.Segments = append(p.Segments, other.Segments...)
}

// StartTime is the start time of the first segment.
func (p *Plan) StartTime() (float64, error) {
	if p.Empty() {
		return 0, ErrOutOfRange
	}
	return p.Segments[0].StartTime, nil
}

// EndTime is the end time of the last segment.
func (p *Plan) EndTime() (float64, error) {
	if p.Empty() {
		return 0, ErrOutOfRange
	}
	return p.Segments[len(p.Segments)-1].EndTime(), nil
}

func (p *Plan) ContainsTime(t float64) bool {
	for _, s := range p.Segments {
		if s.ContainsTime(t) {
			return true
		}
	}
	return false
}

// Sample scans segments in order and returns the pose at t, matching the
// original linear-scan semantics (the first segment containing the time
// wins, so overlap at segment boundaries favors the earlier segment).
func (p *Plan) Sample(t float64) (state.State, error) {
	for _, s := range p.Segments {
		if s.ContainsTime(t) {
			return s.Sample(t)
		}
	}
	return state.State{}, fmt.Errorf("%w: requested time %f outside plan bounds", ErrOutOfRange, t)
}

// TotalTime is the span from the first segment's start to the last
// segment's end.
func (p *Plan) TotalTime() float64 {
	if p.Empty() {
		return 0
	}
	end := p.Segments[len(p.Segments)-1].EndTime()
	return end - p.Segments[0].StartTime
}

// ChangeIntoSuffix drops whole leading segments that have already ended by
// startTime. It does not retime what remains, so the first surviving
// segment's own StartTime may still be earlier than startTime.
func (p *Plan) ChangeIntoSuffix(startTime float64) error {
	if p.Empty() {
		return ErrOutOfRange
	}
	for len(p.Segments) > 0 && p.Segments[0].EndTime() < startTime {
		p.Segments = p.Segments[1:]
	}
	return nil
}

// GetHalfSecondSamples walks the plan at planTimeDensity-second intervals.
func (p *Plan) GetHalfSecondSamples() []state.State {
	var out []state.State
	if p.Empty() {
		return out
	}
	start, _ := p.StartTime()
	end, _ := p.EndTime()
	for t := start; t < end; t += planTimeDensity {
		s, err := p.Sample(t)
		if err != nil {
			break
		}
		out = append(out, s)
	}
	return out
}

// EndPose returns the pose at the very end of the plan.
func (p *Plan) EndPose() (state.State, error) {
	end, err := p.EndTime()
	if err != nil {
		return state.State{}, err
	}
	return p.Sample(end)
}

// FromStates builds a single-segment plan connecting start to end.
func FromStates(start, end state.State, rho float64) (Plan, error) {
	seg, err := NewSegment(start, end, rho, end.Speed, start.Time)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Segments: []Segment{seg}}, nil
}

// Clone deep-copies the plan so callers can hand out snapshots that
// survive concurrent mutation of the original.
func (p *Plan) Clone() Plan {
	out := Plan{Dangerous: p.Dangerous}
	out.Segments = append(out.Segments, p.Segments...)
	return out
}

// Length is the total arc length of every segment, in the same units as
// the turning radius (metres).
func (p *Plan) Length() float64 {
	total := 0.0
	for _, s := range p.Segments {
		total += s.Curve.Length()
	}
	return total
}
