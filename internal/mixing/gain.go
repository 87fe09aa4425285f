package mixing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sermonmux/internal/segments"
)

// Default gain levels.
const (
	DefaultPrimary = 1.0
	DefaultDucked  = 0.15
	DefaultShouts  = 0.5

	MinLevel = 0.0
	MaxLevel = 4.0
)

// ErrLevelOutOfRange is returned for caller-supplied levels outside [MinLevel, MaxLevel].
var ErrLevelOutOfRange = errors.New("gain level out of range")

// Levels holds the three scalar gains used by volume automation.
type Levels struct {
	Primary float64
	Ducked  float64
	Shouts  float64
}

// DefaultLevels returns the built-in levels.
func DefaultLevels() Levels {
	return Levels{Primary: DefaultPrimary, Ducked: DefaultDucked, Shouts: DefaultShouts}
}

// Validate rejects levels outside the accepted gain range.
func (l Levels) Validate() error {
	for _, item := range []struct {
		name  string
		value float64
	}{
		{"primary", l.Primary},
		{"ducked", l.Ducked},
		{"shouts", l.Shouts},
	} {
		if item.value < MinLevel || item.value > MaxLevel || math.IsNaN(item.value) {
			return fmt.Errorf("%w: %s=%v (must be between %v and %v)", ErrLevelOutOfRange, item.name, item.value, MinLevel, MaxLevel)
		}
	}
	return nil
}

// Role identifies which audio source a gain applies to.
type Role int

const (
	RoleOriginal Role = iota
	RoleTranslation
)

func (r Role) String() string {
	switch r {
	case RoleOriginal:
		return "original"
	case RoleTranslation:
		return "translation"
	default:
		return "unknown"
	}
}

// Expression is a piecewise-constant gain over playback time: Inside while t
// lies in any window, Outside otherwise.
type Expression struct {
	windows segments.Set
	inside  float64
	outside float64
}

// Eval returns the gain at playback time t (seconds).
func (e Expression) Eval(t float64) float64 {
	if e.windows.Contains(t) {
		return e.inside
	}
	return e.outside
}

// Inside is the level applied within the windows.
func (e Expression) Inside() float64 { return e.inside }

// Outside is the level applied outside the windows.
func (e Expression) Outside() float64 { return e.outside }

// String renders the expression in ffmpeg expression syntax. The between()
// terms are summed, so the condition is non-zero when any window matches.
func (e Expression) String() string {
	cond := "0"
	if !e.windows.Empty() {
		terms := make([]string, 0, e.windows.Len())
		for _, seg := range e.windows.Segments() {
			terms = append(terms, "between(t,"+formatNumber(seg.Start)+","+formatNumber(seg.End)+")")
		}
		cond = strings.Join(terms, "+")
	}
	return "if(" + cond + "," + formatNumber(e.inside) + "," + formatNumber(e.outside) + ")"
}

// Gains pairs the complementary expressions for one mixing job.
type Gains struct {
	Original    Expression
	Translation Expression
}

// For returns the expression for the given role.
func (g Gains) For(role Role) Expression {
	if role == RoleTranslation {
		return g.Translation
	}
	return g.Original
}

// BuildGains derives both expressions from the windows. The original source
// is ducked inside windows; the translation is primary inside windows and
// drops to the shouts floor elsewhere.
func BuildGains(windows segments.Set, levels Levels) Gains {
	return Gains{
		Original:    Expression{windows: windows, inside: levels.Ducked, outside: levels.Primary},
		Translation: Expression{windows: windows, inside: levels.Primary, outside: levels.Shouts},
	}
}

// formatNumber keeps at least one fractional digit so levels read as gains
// ("1.0", "0.15") rather than integers.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
