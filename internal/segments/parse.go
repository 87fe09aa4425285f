package segments

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"sermonmux/internal/logging"
)

// Rejection describes a pair that Parse skipped.
type Rejection struct {
	Raw string
	Err error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("segment %q: %v", r.Raw, r.Err)
}

// Parse reads the comma-separated "start-end" encoding. Malformed pairs are
// skipped and logged as warnings; parsing always continues with the remainder.
// Blank input yields an empty set.
func Parse(text string, logger *slog.Logger) Set {
	set, rejected := ParseDetailed(text)
	for _, r := range rejected {
		logging.WarnWithContext(logger, "segment skipped", "segment_rejected",
			logging.String("segment", r.Raw),
			logging.Error(r.Err),
			logging.String(logging.FieldErrorHint, "use start-end seconds with start before end, e.g. 60-300"),
			logging.String(logging.FieldImpact, "window ignored for volume automation"),
		)
	}
	return set
}

// ParseDetailed is Parse without logging; it returns the skipped pairs.
func ParseDetailed(text string) (Set, []Rejection) {
	if strings.TrimSpace(text) == "" {
		return Set{}, nil
	}
	var (
		items    []Segment
		rejected []Rejection
	)
	for _, part := range strings.Split(text, ",") {
		raw := strings.TrimSpace(part)
		if raw == "" {
			continue
		}
		seg, err := parsePair(raw)
		if err != nil {
			rejected = append(rejected, Rejection{Raw: raw, Err: err})
			continue
		}
		items = append(items, seg)
	}
	return Set{items: items}, rejected
}

func parsePair(raw string) (Segment, error) {
	bounds := strings.Split(raw, "-")
	if len(bounds) != 2 {
		return Segment{}, fmt.Errorf("%w: expected start-end", ErrMalformed)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: start: %v", ErrMalformed, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: end: %v", ErrMalformed, err)
	}
	return New(start, end)
}
