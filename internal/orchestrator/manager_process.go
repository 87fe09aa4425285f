package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/logging"
	"sermonmux/internal/mixing"
	"sermonmux/internal/services"
	"sermonmux/internal/transcode"
)

const (
	stageTranscode = "transcode"
	stageUpload    = "upload"
)

// process runs transcode (and optionally upload) for each planned language.
func (m *Manager) process(ctx context.Context, rc *runContext) (State, error) {
	if err := artifacts.EnsureOutputDir(rc.plan.cfg.Paths.OutputDir); err != nil {
		return StateFaulted, services.Wrap(services.ErrIO, stageTranscode, "prepare output directory", "", err)
	}

	var graph mixing.Graph
	if len(rc.plan.languages) > 1 {
		gains := mixing.BuildGains(rc.plan.req.Segments, rc.plan.cfg.MixingLevels())
		graph = mixing.Compose(gains, rc.plan.cfg.Mixing.DropoutTransition)
		logging.WithContext(ctx, m.logger).Debug("mix graph composed",
			logging.Int("segments", rc.plan.req.Segments.Len()),
			logging.String("filter_complex", graph.String()),
		)
	}

	for _, lang := range rc.plan.languages {
		langCtx := services.WithLanguage(ctx, lang)
		logger := logging.WithContext(langCtx, m.logger)

		if rc.token.Cancelled() {
			logger.Info("run cancelled before language",
				logging.String(logging.FieldEventType, "run_cancel_observed"),
				logging.String("reason", "cancel requested before transcode"),
			)
			return StateCancelled, nil
		}

		output, err := m.transcodeLanguage(langCtx, logger, rc, lang, graph)
		if err != nil {
			if errors.Is(err, context.Canceled) && rc.token.Cancelled() {
				return StateCancelled, nil
			}
			if services.IsRunFatal(err) {
				return StateFaulted, err
			}
			m.countFailed()
			continue
		}
		m.recordArtifact(langCtx, logger, rc, lang, output)

		if !rc.plan.req.Upload {
			continue
		}
		if halted := m.uploadLanguage(langCtx, rc, lang, output); halted {
			return StateCancelled, nil
		}
	}
	return StateCompleted, nil
}

func (m *Manager) transcodeLanguage(ctx context.Context, logger *slog.Logger, rc *runContext, lang string, graph mixing.Graph) (string, error) {
	ctx = services.WithStage(ctx, stageTranscode)
	logger = logging.WithContext(ctx, logger)
	m.setStage(lang, stageTranscode)

	job := m.buildJob(rc, lang, graph)
	output, err := m.transcoder.Execute(ctx, job)
	if err == nil {
		return output, nil
	}

	attrs := []logging.Attr{
		logging.String("path", job.OutputPath),
		logging.String("job_kind", job.Kind.String()),
		logging.Error(err),
		logging.String(logging.FieldErrorClass, services.Classify(err)),
	}
	var execErr *transcode.ExecutionError
	if errors.As(err, &execErr) {
		attrs = append(attrs, logging.Int("exit_code", execErr.ExitCode))
	}
	if services.IsRunFatal(err) || errors.Is(err, context.Canceled) {
		return "", err
	}
	attrs = append(attrs, logging.String(logging.FieldImpact, "language skipped; run continues"))
	logging.ErrorWithContext(logger, "transcode failed", "language_transcode_failed", attrs...)
	m.publish(ctx, eventTranscodeFailed(lang, err))
	return "", err
}

func (m *Manager) buildJob(rc *runContext, lang string, graph mixing.Graph) transcode.Job {
	video := rc.plan.req.VideoPath
	original := rc.plan.req.Audio[rc.plan.original]
	output := artifacts.PathFor(rc.plan.cfg.Paths.OutputDir, rc.plan.stamp, rc.plan.meeting, lang)
	if lang == rc.plan.original {
		return transcode.NewSingleTrack(video, original, output, lang)
	}
	return transcode.NewMixedTrack(video, original, rc.plan.req.Audio[lang], graph, output, lang)
}

func (m *Manager) recordArtifact(ctx context.Context, logger *slog.Logger, rc *runContext, lang, path string) {
	m.runState.record(lang, path)
	m.countProduced()
	if m.store == nil {
		return
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	kind := transcode.KindMixedTrack
	if lang == rc.plan.original {
		kind = transcode.KindSingleTrack
	}
	_, err := m.store.RecordArtifact(ctx, artifacts.Artifact{
		RunID:     rc.id,
		Language:  lang,
		JobKind:   kind.String(),
		Path:      path,
		SizeBytes: size,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record artifact", "registry_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a later process will not find this file through the registry"),
		)
	}
}
