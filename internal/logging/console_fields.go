package logging

import (
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys are rendered first, in this order, when present.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"outcome",
	"error",
	FieldErrorClass,
	FieldErrorHint,
	FieldImpact,
	"job_kind",
	"output",
	"title",
	"remote_id",
	FieldProgressPercent,
	"uploaded_bytes",
	"file_size_bytes",
	"segments",
	"elapsed",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	take := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKey(attr.key, attr.value)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				take(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			take(idx)
		}
	}
	return result, hidden
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldRunID, FieldLanguage, FieldStage, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldCorrelationID, "args", "session_uri", "chunk_size", FieldDiagnostic:
		return true
	}
	return strings.HasSuffix(key, "_id") && key != "remote_id"
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error", "output", "path", "title":
		return false
	}
	return len(value) > 160
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldErrorClass:
		return "Error Class"
	case FieldProgressPercent:
		return "Progress"
	case "remote_id":
		return "Video ID"
	case "file_size_bytes":
		return "File Size"
	case "uploaded_bytes":
		return "Uploaded"
	case "job_kind":
		return "Job"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}
