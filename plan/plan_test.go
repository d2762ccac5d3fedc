package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhc-asv/ribbon-planner/state"
)

func straightSegment(t *testing.T, startTime float64) Segment {
	start := state.State{X: 0, Y: 0, Heading: 0, Speed: 2, Time: startTime}
	end := state.State{X: 20, Y: 0, Heading: 0, Speed: 2, Time: startTime}
	seg, err := NewSegment(start, end, 1, 2, startTime)
	require.NoError(t, err)
	return seg
}

func TestSegmentSampleWithinBounds(t *testing.T) {
	seg := straightSegment(t, 0)
	s, err := seg.Sample(seg.StartTime)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s.X, 1e-6)
	assert.InDelta(t, 0.0, s.Y, 1e-6)
}

func TestPlanSampleOutOfRange(t *testing.T) {
	p := Plan{}
	_, err := p.Sample(5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPlanChangeIntoSuffixDropsPastSegments(t *testing.T) {
	p := Plan{Segments: []Segment{
		straightSegment(t, 0),
		straightSegment(t, 10),
		straightSegment(t, 20),
	}}
	require.NoError(t, p.ChangeIntoSuffix(15))
	assert.Len(t, p.Segments, 2)
	assert.Equal(t, 10.0, p.Segments[0].StartTime)
}

func TestPlanChangeIntoSuffixOnEmptyErrors(t *testing.T) {
	p := Plan{}
	assert.Error(t, p.ChangeIntoSuffix(1))
}

func TestPlanTotalTime(t *testing.T) {
	p := Plan{Segments: []Segment{straightSegment(t, 0)}}
	assert.Greater(t, p.TotalTime(), 0.0)
}

func TestPlanGetHalfSecondSamples(t *testing.T) {
	p := Plan{Segments: []Segment{straightSegment(t, 0)}}
	samples := p.GetHalfSecondSamples()
	assert.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		assert.Greater(t, samples[i].Time, samples[i-1].Time)
	}
}
