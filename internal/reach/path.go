package reach

import (
	"errors"
	"fmt"
)

// SegmentKind distinguishes the kinds of travel segment in an itinerary.
type SegmentKind string

const (
	SegmentStart SegmentKind = "START"
	SegmentRide  SegmentKind = "RIDE"
	SegmentWait  SegmentKind = "WAIT"
	SegmentWalk  SegmentKind = "WALK"
)

// Segment is one atomic step of an itinerary: arrive at StopID at Arrival
// having departed the previous stop at Departure. Offsets are seconds since
// service-day start. Route is set on ride segments, WalkMeters on walks.
type Segment struct {
	Kind       SegmentKind
	Departure  int
	Arrival    int
	Route      string
	WalkMeters float64
	StopID     string
}

// Path is an immutable itinerary from the origin to some stop. Each Path
// node owns its own tail segment and shares its predecessor chain, so the
// search can branch a Path thousands of times without copying prefixes.
// A Path is never empty: every chain ends at a start segment.
type Path struct {
	prev *Path
	seg  Segment
	size int
}

// ErrEmptyPath is returned when appending to a nil Path; itineraries must
// begin with Starting.
var ErrEmptyPath = errors.New("path must begin with a start segment")

// Starting constructs the single-segment Path representing "already at the
// origin stop at the start offset".
func Starting(originStopID string, startOffset int) *Path {
	return &Path{
		seg: Segment{
			Kind:      SegmentStart,
			Departure: startOffset,
			Arrival:   startOffset,
			StopID:    originStopID,
		},
		size: 1,
	}
}

// Append returns a new Path extending the receiver with one segment. The
// receiver is unchanged. Appending fails when the segment departs before the
// receiver's last arrival (time monotonicity) or when the receiver is nil.
func (p *Path) Append(seg Segment) (*Path, error) {
	if p == nil {
		return nil, ErrEmptyPath
	}
	if seg.Departure < p.seg.Arrival {
		return nil, fmt.Errorf("segment departs at %d before previous arrival at %d",
			seg.Departure, p.seg.Arrival)
	}
	return &Path{prev: p, seg: seg, size: p.size + 1}, nil
}

// Last returns the most recently appended segment.
func (p *Path) Last() Segment {
	return p.seg
}

// Len returns the number of segments, including the start segment.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return p.size
}

// Segments returns the segments in travel order.
func (p *Path) Segments() []Segment {
	out := make([]Segment, p.size)
	for node := p; node != nil; node = node.prev {
		out[node.size-1] = node.seg
	}
	return out
}

// Less orders Paths by (arrival offset, segment count), ascending: arrive
// earlier first, and among equal arrivals prefer fewer segments. This is the
// total order the search frontier pops in.
func (p *Path) Less(other *Path) bool {
	if p.seg.Arrival != other.seg.Arrival {
		return p.seg.Arrival < other.seg.Arrival
	}
	return p.size < other.size
}

// WithWaiting returns a copy of the Path with a synthetic wait segment
// filling every gap between one segment's arrival and the next one's
// departure. Purely cosmetic; used when rendering an itinerary.
func (p *Path) WithWaiting() *Path {
	segs := p.Segments()
	out := &Path{seg: segs[0], size: 1}
	for _, seg := range segs[1:] {
		if prev := out.seg; prev.Arrival != seg.Departure {
			out = &Path{prev: out, size: out.size + 1, seg: Segment{
				Kind:      SegmentWait,
				Departure: prev.Arrival,
				Arrival:   seg.Departure,
				StopID:    prev.StopID,
			}}
		}
		out = &Path{prev: out, seg: seg, size: out.size + 1}
	}
	return out
}
