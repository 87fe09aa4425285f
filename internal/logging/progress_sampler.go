package logging

import (
	"math"
	"strings"
)

// ProgressSampler thins out byte-level upload progress so each subject (a
// language, usually) logs once when it first reports and again each time it
// crosses a bucket of the given width in percent.
type ProgressSampler struct {
	width float64
	seen  map[string]int // subject -> last logged bucket
}

// NewProgressSampler returns a sampler with width-percent buckets (10 when
// width is not positive).
func NewProgressSampler(width float64) *ProgressSampler {
	if width <= 0 {
		width = 10
	}
	return &ProgressSampler{width: width, seen: map[string]int{}}
}

// ShouldLog reports whether progress for subject deserves a log line.
// Negative percent means unknown; only a new subject logs then. A nil
// sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, subject string) bool {
	if s == nil {
		return true
	}
	subject = strings.TrimSpace(subject)
	bucket := -1
	if percent >= 0 {
		bucket = int(math.Floor(math.Min(percent, 100) / s.width))
	}
	if last, known := s.seen[subject]; known && bucket <= last {
		return false
	}
	s.seen[subject] = bucket
	return true
}

// Reset forgets every subject.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	clear(s.seen)
}
