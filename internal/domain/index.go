package domain

import "math"

// SegmentIndex is the ordered, read-only view of a parsed script with derived windows.
// It is safe to share between goroutines.
type SegmentIndex struct {
	segments []Segment
	duration float64
}

// NewSegmentIndex builds an index over segments for a track of the given duration in
// seconds. A non-positive duration leaves the last window open-ended.
//
// When start times are not strictly increasing the index is still returned together
// with an *OrderError so callers can flag the script and carry on.
func NewSegmentIndex(segments []Segment, duration float64) (*SegmentIndex, error) {
	owned := make([]Segment, len(segments))
	copy(owned, segments)
	idx := &SegmentIndex{segments: owned, duration: duration}

	for i := 1; i < len(owned); i++ {
		if owned[i].StartTime <= owned[i-1].StartTime {
			return idx, &OrderError{Index: i, Previous: owned[i-1].StartTime, Start: owned[i].StartTime}
		}
	}
	return idx, nil
}

func (x *SegmentIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.segments)
}

// At returns segment i. It panics when i is out of range.
func (x *SegmentIndex) At(i int) Segment {
	return x.segments[i]
}

// Duration is the track duration the index was built with (0 when unknown).
func (x *SegmentIndex) Duration() float64 {
	return x.duration
}

// Segments returns a copy of the indexed segments.
func (x *SegmentIndex) Segments() []Segment {
	out := make([]Segment, len(x.segments))
	copy(out, x.segments)
	return out
}

// WindowOf returns the active window [start, end) of segment i. The last segment ends at
// the track duration, or +Inf when the duration is unknown.
func (x *SegmentIndex) WindowOf(i int) (start, end float64) {
	start = x.segments[i].StartTime
	if i+1 < len(x.segments) {
		return start, x.segments[i+1].StartTime
	}
	if x.duration > 0 {
		return start, x.duration
	}
	return start, math.Inf(1)
}
