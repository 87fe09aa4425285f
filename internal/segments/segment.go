package segments

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformed marks text that is not a "start-end" pair of numbers.
	ErrMalformed = errors.New("malformed segment")
	// ErrNegative marks a window with a negative bound.
	ErrNegative = errors.New("segment bounds must not be negative")
	// ErrOrder marks a window whose start is not strictly before its end.
	ErrOrder = errors.New("segment start must be before end")
)

// Segment is a closed time window in seconds during which the translation
// track is the primary source.
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// New validates and returns a segment.
func New(start, end float64) (Segment, error) {
	seg := Segment{Start: start, End: end}
	if err := seg.Validate(); err != nil {
		return Segment{}, err
	}
	return seg, nil
}

// Validate reports whether the segment bounds are usable.
func (s Segment) Validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0) {
		return fmt.Errorf("%w: bounds must be finite", ErrMalformed)
	}
	if s.Start < 0 || s.End < 0 {
		return ErrNegative
	}
	if s.Start >= s.End {
		return ErrOrder
	}
	return nil
}

// Contains reports whether t falls inside the window. Both bounds are
// inclusive, matching the engine's between() function.
func (s Segment) Contains(t float64) bool {
	return t >= s.Start && t <= s.End
}

// Duration returns the window length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// String renders the segment in its textual "start-end" form.
func (s Segment) String() string {
	return FormatSeconds(s.Start) + "-" + FormatSeconds(s.End)
}

// Set is an ordered, immutable list of segments.
type Set struct {
	items []Segment
}

// NewSet validates every segment and returns the set. The input order is kept.
func NewSet(items ...Segment) (Set, error) {
	out := make([]Segment, 0, len(items))
	for i, seg := range items {
		if err := seg.Validate(); err != nil {
			return Set{}, fmt.Errorf("segment %d (%s): %w", i+1, seg, err)
		}
		out = append(out, seg)
	}
	return Set{items: out}, nil
}

// Segments returns a copy of the windows in input order.
func (s Set) Segments() []Segment {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]Segment, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports the number of windows.
func (s Set) Len() int { return len(s.items) }

// Empty reports whether the set has no windows.
func (s Set) Empty() bool { return len(s.items) == 0 }

// Contains reports whether t lies in any window of the set.
func (s Set) Contains(t float64) bool {
	for _, seg := range s.items {
		if seg.Contains(t) {
			return true
		}
	}
	return false
}

// Coverage returns the total time covered by the union of all windows.
func (s Set) Coverage() float64 {
	if len(s.items) == 0 {
		return 0
	}
	sorted := s.Segments()
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	total := 0.0
	cur := sorted[0]
	for _, seg := range sorted[1:] {
		if seg.Start <= cur.End {
			if seg.End > cur.End {
				cur.End = seg.End
			}
			continue
		}
		total += cur.Duration()
		cur = seg
	}
	return total + cur.Duration()
}

// String renders the set in its comma-separated textual form.
func (s Set) String() string {
	parts := make([]string, 0, len(s.items))
	for _, seg := range s.items {
		parts = append(parts, seg.String())
	}
	return strings.Join(parts, ",")
}

// FormatSeconds renders a time value without a trailing fraction when the
// value is whole.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
