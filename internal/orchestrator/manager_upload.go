package orchestrator

import (
	"context"
	"log/slog"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/logging"
	"sermonmux/internal/services"
	"sermonmux/internal/templates"
	"sermonmux/internal/upload"
)

// uploadLanguage uploads path for lang. It reports true when the run must
// halt because the upload was cancelled.
func (m *Manager) uploadLanguage(ctx context.Context, rc *runContext, lang, path string) bool {
	ctx = services.WithStage(ctx, stageUpload)
	logger := logging.WithContext(ctx, m.logger)
	m.setStage(lang, stageUpload)

	if rc.token.Cancelled() {
		logger.Info("run cancelled before upload",
			logging.String(logging.FieldEventType, "run_cancel_observed"),
			logging.String("reason", "cancel requested before upload"),
			logging.String("path", path),
		)
		return true
	}

	job := upload.Job{
		Path:     path,
		Language: lang,
		Metadata: m.metadataFor(logger, rc, lang),
	}
	outcome := rc.uploader.Upload(ctx, job, rc.token)
	m.recordUpload(ctx, logger, rc, job, outcome)

	switch outcome.Status {
	case upload.StatusCompleted:
		m.countUploaded()
		logger.Info("upload finished",
			logging.String(logging.FieldEventType, "language_uploaded"),
			logging.String("title", job.Metadata.Title),
			logging.String("remote_id", outcome.RemoteID),
			logging.String("path", path),
		)
		m.publish(ctx, eventUploadCompleted(lang, job.Metadata.Title, outcome.RemoteID))
		return false
	case upload.StatusCancelled:
		logger.Info("upload cancelled; halting run",
			logging.String(logging.FieldEventType, "run_cancel_observed"),
			logging.String("title", job.Metadata.Title),
			logging.Int64("uploaded_bytes", outcome.BytesSent),
		)
		return true
	default:
		m.countFailed()
		logging.ErrorWithContext(logger, "upload failed", "language_upload_failed",
			logging.String("path", path),
			logging.String("title", job.Metadata.Title),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorClass, services.Classify(outcome.Err)),
			logging.String(logging.FieldImpact, "video not published; run continues"),
			logging.String(logging.FieldErrorHint, uploadFailureHint(outcome)),
		)
		m.publish(ctx, eventUploadFailed(lang, outcome.Err))
		return false
	}
}

func uploadFailureHint(outcome upload.Outcome) string {
	if upload.IsTransport(outcome) {
		return "check network access and credentials, then retry with upload-existing"
	}
	return "check the produced file and upload settings, then retry with upload-existing"
}

func (m *Manager) metadataFor(logger *slog.Logger, rc *runContext, lang string) upload.Metadata {
	tpl, ok := rc.plan.catalog.Lookup(rc.plan.meeting, lang)
	if !ok {
		logging.WarnWithContext(logger, "no template for language; using generic metadata", "template_missing",
			logging.String("meeting_type", string(rc.plan.meeting)),
			logging.String(logging.FieldImpact, "upload uses a generic title"),
		)
	}
	rendered := templates.Render(tpl, templates.Vars{Date: rc.plan.date, Location: rc.plan.location}, logger)
	return upload.Metadata{
		Title:         rendered.Title,
		Description:   rendered.Description,
		Tags:          append([]string(nil), rc.plan.cfg.Upload.Tags...),
		CategoryID:    rc.plan.cfg.Upload.CategoryID,
		PrivacyStatus: rc.plan.cfg.Upload.PrivacyStatus,
	}
}

func (m *Manager) recordUpload(ctx context.Context, logger *slog.Logger, rc *runContext, job upload.Job, outcome upload.Outcome) {
	if m.store == nil {
		return
	}
	message := ""
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	err := m.store.RecordUpload(context.WithoutCancel(ctx), artifacts.Upload{
		RunID:        rc.id,
		Language:     job.Language,
		Path:         job.Path,
		Status:       outcome.Status.String(),
		RemoteID:     outcome.RemoteID,
		ErrorMessage: message,
		BytesSent:    outcome.BytesSent,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record upload", "registry_write_failed",
			logging.Error(err),
		)
	}
}

// uploadExisting uploads the recorded or expected artifact of every
// configured language.
func (m *Manager) uploadExisting(ctx context.Context, rc *runContext) (State, error) {
	uploaded := 0
	for _, lang := range rc.plan.languages {
		langCtx := services.WithLanguage(ctx, lang)
		logger := logging.WithContext(langCtx, m.logger)

		if rc.token.Cancelled() {
			logger.Info("upload existing cancelled",
				logging.String(logging.FieldEventType, "run_cancel_observed"),
			)
			return StateCancelled, nil
		}

		path, source := m.resolveExisting(langCtx, rc, lang)
		if path == "" {
			logger.Info("file not found, skipping",
				logging.String(logging.FieldEventType, "existing_artifact_missing"),
				logging.String("path", artifacts.PathFor(rc.plan.cfg.Paths.OutputDir, rc.plan.stamp, rc.plan.meeting, lang)),
			)
			continue
		}
		logger.Info("uploading existing file",
			logging.String(logging.FieldEventType, "existing_artifact_found"),
			logging.String("path", path),
			logging.String("source", source),
		)

		before := m.Status().Uploaded
		if halted := m.uploadLanguage(langCtx, rc, lang, path); halted {
			return StateCancelled, nil
		}
		if m.Status().Uploaded > before {
			uploaded++
		}
	}

	if uploaded == 0 {
		logging.WarnWithContext(m.logger.With(logging.String(logging.FieldRunID, rc.id)),
			"no existing files uploaded", "nothing_uploaded",
			logging.String(logging.FieldImpact, "no videos were published"),
			logging.String(logging.FieldErrorHint, "run process first or pass the stamp of the earlier run"),
		)
		m.publish(ctx, eventNothingUploaded())
	}
	return StateCompleted, nil
}

// resolveExisting prefers the in-memory path, then the registry, then the
// deterministic path for this run's stamp. Only paths still on disk count.
// An explicit request stamp checks the derived path first.
func (m *Manager) resolveExisting(ctx context.Context, rc *runContext, lang string) (string, string) {
	expected := artifacts.PathFor(rc.plan.cfg.Paths.OutputDir, rc.plan.stamp, rc.plan.meeting, lang)
	if !rc.plan.req.Stamp.IsZero() && artifacts.Exists(expected) {
		return expected, "expected_path"
	}
	if path, ok := m.runState.Artifact(lang); ok && artifacts.Exists(path) {
		return path, "memory"
	}
	if m.store != nil {
		latest, err := m.store.LatestArtifact(ctx, lang)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, m.logger), "artifact registry lookup failed", "registry_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "falling back to the expected file name"),
			)
		} else if latest != nil && artifacts.Exists(latest.Path) {
			return latest.Path, "registry"
		}
	}
	if artifacts.Exists(expected) {
		return expected, "expected_path"
	}
	return "", ""
}
