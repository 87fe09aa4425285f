package transcode

import (
	"fmt"
	"strings"

	"sermonmux/internal/services"
)

// ExecutionError reports a nonzero engine exit. Diagnostic is the engine's
// stderr, verbatim.
type ExecutionError struct {
	Binary     string
	Args       []string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *ExecutionError) Error() string {
	summary := lastLine(e.Diagnostic)
	if summary == "" && e.Err != nil {
		summary = e.Err.Error()
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, summary)
}

// Unwrap exposes both the classification marker and the underlying error.
func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrExternalTool}
	}
	return []error{services.ErrExternalTool, e.Err}
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
