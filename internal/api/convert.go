package api

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/deps"
	"sermonmux/internal/logging"
	"sermonmux/internal/orchestrator"
)

const watchURLPrefix = "https://youtu.be/"

// FromStatus converts an orchestrator snapshot.
func FromStatus(status orchestrator.Status) RunStatus {
	dto := RunStatus{
		State:           string(status.State),
		RunID:           status.RunID,
		Kind:            string(status.Kind),
		StartedAt:       formatTime(status.StartedAt),
		FinishedAt:      formatTime(status.FinishedAt),
		CurrentLanguage: status.CurrentLanguage,
		Stage:           status.Stage,
		Languages:       append([]string{}, status.Languages...),
		Produced:        status.Produced,
		Uploaded:        status.Uploaded,
		Failed:          status.Failed,
		CancelRequested: status.CancelRequested,
		LastError:       status.LastError,
		ErrorClass:      status.ErrorClass,
	}
	if len(status.Artifacts) > 0 {
		dto.Artifacts = make(map[string]string, len(status.Artifacts))
		for lang, path := range status.Artifacts {
			dto.Artifacts[lang] = path
		}
	}
	if p := status.Progress; p != nil {
		dto.Progress = &UploadProgress{
			Language:  p.Language,
			BytesSent: p.Sent,
			Total:     p.Total,
			Percent:   p.Percent,
		}
	}
	return dto
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromRuns converts registry runs.
func FromRuns(runs []artifacts.Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		dto := Run{
			ID:           run.ID,
			Kind:         string(run.Kind),
			State:        run.State,
			Stamp:        run.Stamp,
			MeetingType:  run.MeetingType,
			StartedAt:    formatTime(run.StartedAt),
			ErrorMessage: run.ErrorMessage,
		}
		if run.FinishedAt != nil {
			dto.FinishedAt = formatTime(*run.FinishedAt)
		}
		out = append(out, dto)
	}
	return out
}

// FromArtifacts converts produced file records.
func FromArtifacts(records []artifacts.Artifact) []Artifact {
	out := make([]Artifact, 0, len(records))
	for _, rec := range records {
		out = append(out, Artifact{
			ID:        rec.ID,
			RunID:     rec.RunID,
			Language:  rec.Language,
			JobKind:   rec.JobKind,
			Path:      rec.Path,
			SizeBytes: rec.SizeBytes,
			Size:      humanize.IBytes(uint64(max(rec.SizeBytes, 0))),
			CreatedAt: formatTime(rec.CreatedAt),
		})
	}
	return out
}

// FromUploads converts upload records.
func FromUploads(records []artifacts.Upload) []Upload {
	out := make([]Upload, 0, len(records))
	for _, rec := range records {
		dto := Upload{
			ID:           rec.ID,
			RunID:        rec.RunID,
			Language:     rec.Language,
			Path:         rec.Path,
			Status:       rec.Status,
			RemoteID:     rec.RemoteID,
			ErrorMessage: rec.ErrorMessage,
			BytesSent:    rec.BytesSent,
			CreatedAt:    formatTime(rec.CreatedAt),
		}
		if id := strings.TrimSpace(rec.RemoteID); id != "" {
			dto.WatchURL = watchURLPrefix + id
		}
		out = append(out, dto)
	}
	return out
}

// FromLogEvents converts hub events.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, FromLogEvent(evt))
	}
	return out
}

// FromLogEvent converts one hub event.
func FromLogEvent(evt logging.LogEvent) LogEvent {
	var details []DetailField
	if len(evt.Details) > 0 {
		details = make([]DetailField, 0, len(evt.Details))
		for _, detail := range evt.Details {
			details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
		}
	}
	return LogEvent{
		Sequence:  evt.Sequence,
		Timestamp: formatTime(evt.Timestamp),
		Level:     evt.Level,
		Message:   evt.Message,
		Component: evt.Component,
		Stage:     evt.Stage,
		RunID:     evt.RunID,
		Language:  evt.Language,
		Fields:    evt.Fields,
		Details:   details,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
