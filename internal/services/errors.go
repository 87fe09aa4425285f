package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool   = errors.New("external tool error")
	ErrEngineNotFound = errors.New("media engine not found")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrIO             = errors.New("io error")
	ErrTransport      = errors.New("transport failure")
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("timeout")
	ErrTransient      = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the short failure class used in log fields,
// the artifact registry and API payloads.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return "configuration"
	case errors.Is(err, ErrEngineNotFound):
		return "engine_not_found"
	case errors.Is(err, ErrExternalTool):
		return "engine_execution_failed"
	case errors.Is(err, ErrIO), errors.Is(err, ErrNotFound):
		return "io"
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout):
		return "transport"
	default:
		return "unexpected"
	}
}

// IsRunFatal reports whether an error should stop the whole run rather than
// only the current language.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrEngineNotFound) || errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
