package reach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarting(t *testing.T) {
	p := Starting("origin", 3600)

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, SegmentStart, p.Last().Kind)
	assert.Equal(t, "origin", p.Last().StopID)
	assert.Equal(t, 3600, p.Last().Departure)
	assert.Equal(t, 3600, p.Last().Arrival)
}

func TestAppendExtendsWithoutMutating(t *testing.T) {
	base := Starting("A", 0)

	ride, err := base.Append(Segment{
		Kind: SegmentRide, Departure: 100, Arrival: 200, Route: "10", StopID: "B",
	})
	require.NoError(t, err)

	walk, err := base.Append(Segment{
		Kind: SegmentWalk, Departure: 0, Arrival: 50, WalkMeters: 50, StopID: "C",
	})
	require.NoError(t, err)

	// Both extensions share the same prefix and the base is untouched
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, "A", base.Last().StopID)

	assert.Equal(t, 2, ride.Len())
	assert.Equal(t, "B", ride.Last().StopID)
	assert.Equal(t, 2, walk.Len())
	assert.Equal(t, "C", walk.Last().StopID)

	assert.Equal(t, base.Last(), ride.Segments()[0])
	assert.Equal(t, base.Last(), walk.Segments()[0])
}

func TestAppendRejectsNonMonotonicTime(t *testing.T) {
	base := Starting("A", 100)

	_, err := base.Append(Segment{
		Kind: SegmentRide, Departure: 99, Arrival: 200, StopID: "B",
	})
	assert.Error(t, err)

	// Departing exactly at the previous arrival is fine
	_, err = base.Append(Segment{
		Kind: SegmentRide, Departure: 100, Arrival: 200, StopID: "B",
	})
	assert.NoError(t, err)
}

func TestAppendToNilPath(t *testing.T) {
	var p *Path
	_, err := p.Append(Segment{Kind: SegmentRide, Departure: 0, Arrival: 10, StopID: "B"})
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestSegmentsInTravelOrder(t *testing.T) {
	p := Starting("A", 0)
	p, err := p.Append(Segment{Kind: SegmentRide, Departure: 10, Arrival: 20, StopID: "B"})
	require.NoError(t, err)
	p, err = p.Append(Segment{Kind: SegmentWalk, Departure: 20, Arrival: 30, StopID: "C"})
	require.NoError(t, err)

	segs := p.Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, "A", segs[0].StopID)
	assert.Equal(t, "B", segs[1].StopID)
	assert.Equal(t, "C", segs[2].StopID)
}

func TestLessOrdersByArrivalThenLength(t *testing.T) {
	early := Starting("A", 0)
	late := Starting("A", 100)

	assert.True(t, early.Less(late))
	assert.False(t, late.Less(early))

	// Equal arrival: fewer segments wins
	short := Starting("A", 100)
	long, err := Starting("A", 0).Append(Segment{
		Kind: SegmentWalk, Departure: 0, Arrival: 100, StopID: "A",
	})
	require.NoError(t, err)

	assert.True(t, short.Less(long))
	assert.False(t, long.Less(short))
}

func TestWithWaitingFillsGaps(t *testing.T) {
	p := Starting("A", 0)
	p, err := p.Append(Segment{Kind: SegmentRide, Departure: 60, Arrival: 120, Route: "10", StopID: "B"})
	require.NoError(t, err)
	p, err = p.Append(Segment{Kind: SegmentRide, Departure: 120, Arrival: 180, Route: "20", StopID: "C"})
	require.NoError(t, err)

	segs := p.WithWaiting().Segments()
	require.Len(t, segs, 4)

	assert.Equal(t, SegmentStart, segs[0].Kind)
	assert.Equal(t, SegmentWait, segs[1].Kind)
	assert.Equal(t, 0, segs[1].Departure)
	assert.Equal(t, 60, segs[1].Arrival)
	assert.Equal(t, "A", segs[1].StopID)
	assert.Equal(t, SegmentRide, segs[2].Kind)
	// No gap between the two rides, so no wait inserted
	assert.Equal(t, SegmentRide, segs[3].Kind)
}

func TestWithWaitingNoGaps(t *testing.T) {
	p := Starting("A", 0)
	p, err := p.Append(Segment{Kind: SegmentWalk, Departure: 0, Arrival: 50, StopID: "B"})
	require.NoError(t, err)

	assert.Equal(t, p.Len(), p.WithWaiting().Len())
}
