package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknown is returned for codes that do not parse as a base language.
var ErrUnknown = errors.New("unknown language code")

// Info describes a configured language.
type Info struct {
	Code    string
	ISO3    string
	Display string
}

// Lookup parses code and returns its canonical form. Region and script
// subtags are dropped: artifacts and metadata are keyed on the base language.
func Lookup(code string) (Info, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Info{}, fmt.Errorf("%w: empty", ErrUnknown)
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknown, code)
	}
	base, confidence := tag.Base()
	if confidence != language.Exact {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknown, code)
	}
	name := display.English.Languages().Name(language.Make(base.String()))
	if name == "" {
		name = strings.ToUpper(base.String())
	}
	return Info{
		Code:    base.String(),
		ISO3:    base.ISO3(),
		Display: name,
	}, nil
}

// Normalize returns the canonical base code, or the lowercased input when it
// cannot be parsed.
func Normalize(code string) string {
	if info, err := Lookup(code); err == nil {
		return info.Code
	}
	return strings.ToLower(strings.TrimSpace(code))
}

// ToISO3 converts a language code to ISO 639-2. Returns "und" for
// unrecognized input.
func ToISO3(code string) string {
	info, err := Lookup(code)
	if err != nil {
		return "und"
	}
	return info.ISO3
}

// DisplayName returns a human-readable language name.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if info, err := Lookup(code); err == nil {
		return info.Display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList canonicalizes and deduplicates codes, keeping first-seen order.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		trimmed := Normalize(code)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
