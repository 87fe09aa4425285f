package templates

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"sermonmux/internal/logging"
)

// MeetingType names the kind of service being recorded.
type MeetingType string

const (
	MeetingSermon  MeetingType = "Sermon"
	MeetingWorship MeetingType = "Worship meeting"
	MeetingPrayer  MeetingType = "Prayer meeting"
)

// ErrUnknownMeetingType is returned by ParseMeetingType.
var ErrUnknownMeetingType = errors.New("unknown meeting type")

// MeetingTypes lists the supported meeting types in display order.
func MeetingTypes() []MeetingType {
	return []MeetingType{MeetingSermon, MeetingWorship, MeetingPrayer}
}

// ParseMeetingType matches value case-insensitively against the known types.
func ParseMeetingType(value string) (MeetingType, error) {
	trimmed := strings.Join(strings.Fields(value), " ")
	for _, mt := range MeetingTypes() {
		if strings.EqualFold(trimmed, string(mt)) {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMeetingType, value)
}

// Slug returns the lowercased, underscore-joined form used in artifact names.
func (m MeetingType) Slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(m))), " ", "_")
}

// Template is a title/description pair with {date} and {location} placeholders.
type Template struct {
	Title       string
	Description string
}

// Overrides replaces built-in templates per meeting type and language code.
// Empty fields keep the built-in value.
type Overrides map[MeetingType]map[string]Template

var builtin = map[MeetingType]map[string]Template{
	MeetingSermon: {
		"he": {"שיעור - {date}", "הקלטת השיעור מתאריך {date} ב{location}.\nצפייה מהנה!"},
		"ru": {"Проповедь ({date}) - Перевод на русский", "Запись проповеди от {date}, место: {location}.\nПеревод на русский язык."},
		"en": {"Sermon ({date}) - English Translation", "Sermon recording from {date} at {location}.\nEnglish translation."},
	},
	MeetingWorship: {
		"he": {"אסיפת הלל - {date}", "הקלטת אסיפת הלל מתאריך {date} ב{location}.\nצפייה מהנה!"},
		"ru": {"Прославление ({date}) - Перевод на русский", "Запись прославления от {date}, место: {location}.\nПеревод на русский язык."},
		"en": {"Worship Meeting ({date}) - English Translation", "Worship meeting recording from {date} at {location}.\nEnglish translation."},
	},
	MeetingPrayer: {
		"he": {"אסיפת תפילה - {date}", "הקלטת אסיפת תפילה מתאריך {date} ב{location}.\nצפייה מהנה!"},
		"ru": {"Молитвенное собрание ({date}) - Перевод на русский", "Запись молитвенного собрания от {date}, место: {location}.\nПеревод на русский язык."},
		"en": {"Prayer Meeting ({date}) - English Translation", "Prayer meeting recording from {date} at {location}.\nEnglish translation."},
	},
}

// Catalog resolves templates, preferring overrides over built-ins.
type Catalog struct {
	overrides Overrides
}

// NewCatalog returns a catalog layered over the built-in templates.
func NewCatalog(overrides Overrides) *Catalog {
	return &Catalog{overrides: overrides}
}

// Lookup returns the template for meeting and lang. Fields with no built-in
// or override value fall back to a generic English form and ok is false.
func (c *Catalog) Lookup(meeting MeetingType, lang string) (Template, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	tpl := builtin[meeting][lang]
	if c != nil {
		override := c.overrides[meeting][lang]
		if strings.TrimSpace(override.Title) != "" {
			tpl.Title = override.Title
		}
		if strings.TrimSpace(override.Description) != "" {
			tpl.Description = override.Description
		}
	}
	ok := true
	if tpl.Title == "" {
		tpl.Title = string(meeting) + " ({date})"
		ok = false
	}
	if tpl.Description == "" {
		tpl.Description = string(meeting) + " recording from {date} at {location}."
		ok = false
	}
	return tpl, ok
}

// Vars holds placeholder values.
type Vars struct {
	Date     string
	Location string
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// Render substitutes placeholders in both fields of tpl.
func Render(tpl Template, vars Vars, logger *slog.Logger) Template {
	return Template{
		Title:       Format(tpl.Title, vars, logger),
		Description: Format(tpl.Description, vars, logger),
	}
}

// Format substitutes {date} and {location} in text. A template containing
// any other placeholder is returned unchanged and a warning is logged.
func Format(text string, vars Vars, logger *slog.Logger) string {
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		switch match[1] {
		case "date", "location":
		default:
			logging.WarnWithContext(logger, "template placeholder unknown; template left unchanged", "template_placeholder_unknown",
				logging.String("placeholder", match[0]),
				logging.String("template", truncate(text, 50)),
				logging.String(logging.FieldImpact, "upload metadata keeps raw placeholders"),
				logging.String(logging.FieldErrorHint, "use only {date} and {location} in templates"),
			)
			return text
		}
	}
	return strings.NewReplacer("{date}", vars.Date, "{location}", vars.Location).Replace(text)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
