package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/logging"
	"sermonmux/internal/services"
)

// runContext is the worker's view of one run.
type runContext struct {
	id       string
	kind     artifacts.RunKind
	plan     plan
	token    *CancelToken
	uploader Uploader
	started  time.Time
}

// Start validates req and begins a processing run in the background. It
// returns the run ID, ErrRunInProgress, or a configuration error.
func (m *Manager) Start(ctx context.Context, req Request) (string, error) {
	if m.Running() {
		return "", ErrRunInProgress
	}
	now := m.now()
	p, err := m.planProcess(req, now)
	if err != nil {
		return "", err
	}
	return m.launch(ctx, artifacts.RunProcess, p, now)
}

// UploadExisting begins a run that uploads previously produced files for
// every configured language without transcoding.
func (m *Manager) UploadExisting(ctx context.Context, req Request) (string, error) {
	now := m.now()
	return m.launch(ctx, artifacts.RunUploadExisting, m.planUploadExisting(req, now), now)
}

func (m *Manager) launch(ctx context.Context, kind artifacts.RunKind, p plan, now time.Time) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.transcoder == nil && kind == artifacts.RunProcess {
		return "", services.Wrap(services.ErrConfiguration, "orchestrator", "start", "no transcoder configured", nil)
	}

	m.mu.Lock()
	if m.status.State == StateRunning {
		m.mu.Unlock()
		return "", ErrRunInProgress
	}
	locked, err := m.lock.TryLock()
	if err != nil {
		m.mu.Unlock()
		return "", services.Wrap(services.ErrIO, "orchestrator", "acquire run lock", m.lock.Path(), err)
	}
	if !locked {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: another sermonmux process holds %s", ErrRunInProgress, m.lock.Path())
	}

	var uploader Uploader
	if p.req.Upload {
		uploader, err = m.buildUploader(ctx)
		if err != nil {
			_ = m.lock.Unlock()
			m.mu.Unlock()
			return "", err
		}
	}

	id := uuid.NewString()
	token := NewCancelToken(services.WithRunID(ctx, id))
	if kind == artifacts.RunProcess {
		m.runState.resetForProcessing(token)
	} else {
		m.runState.resetToken(token)
	}
	done := make(chan struct{})
	m.done = done
	m.progress = nil
	m.status = Status{
		State:     StateRunning,
		RunID:     id,
		Kind:      kind,
		StartedAt: now,
		Languages: append([]string(nil), p.languages...),
	}
	m.mu.Unlock()

	rc := &runContext{id: id, kind: kind, plan: p, token: token, uploader: uploader, started: now}
	m.beginRunRecord(rc)
	m.publish(token.Context(), eventStarted(rc))

	go m.worker(rc, done)
	return id, nil
}

func (m *Manager) buildUploader(ctx context.Context) (Uploader, error) {
	if m.uploaders == nil {
		return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "start", "uploads requested but no uploader configured", nil)
	}
	uploader, err := m.uploaders(ctx)
	if err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "build uploader", "", err)
	}
	return uploader, nil
}

// Cancel requests cancellation of the active run. It is idempotent and
// reports whether a run was active.
func (m *Manager) Cancel() bool {
	m.mu.RLock()
	running := m.status.State == StateRunning
	m.mu.RUnlock()
	token := m.runState.Token()
	if !running || token == nil {
		return false
	}
	if !token.Cancelled() {
		m.logger.Info("cancellation requested",
			logging.String(logging.FieldEventType, "run_cancel_requested"),
			logging.String(logging.FieldRunID, m.Status().RunID),
		)
	}
	token.Cancel()
	return true
}

// Wait blocks until the current run finishes or ctx ends, and returns the
// final status.
func (m *Manager) Wait(ctx context.Context) (Status, error) {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done == nil {
		return m.Status(), nil
	}
	select {
	case <-done:
		return m.Status(), nil
	case <-ctx.Done():
		return m.Status(), ctx.Err()
	}
}

func (m *Manager) worker(rc *runContext, done chan struct{}) {
	state := StateCompleted
	var runErr error
	defer func() {
		if r := recover(); r != nil {
			state = StateFaulted
			runErr = fmt.Errorf("unexpected panic: %v", r)
			m.logger.Error("run worker panicked",
				logging.String(logging.FieldRunID, rc.id),
				logging.String(logging.FieldEventType, "run_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
		m.finish(rc, state, runErr)
		close(done)
	}()

	ctx := services.WithRunID(rc.token.Context(), rc.id)
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("kind", string(rc.kind)),
		logging.String("meeting_type", string(rc.plan.meeting)),
		logging.String("stamp", artifacts.Stamp(rc.plan.stamp)),
		logging.Bool("upload", rc.plan.req.Upload),
		logging.Any("languages", rc.plan.languages),
	)

	switch rc.kind {
	case artifacts.RunUploadExisting:
		state, runErr = m.uploadExisting(ctx, rc)
	default:
		state, runErr = m.process(ctx, rc)
	}
}

func (m *Manager) finish(rc *runContext, state State, runErr error) {
	finished := m.now()
	m.mu.Lock()
	m.status.FinishedAt = finished
	m.status.Stage = ""
	m.progress = nil
	if runErr != nil {
		m.status.LastError = runErr.Error()
		m.status.ErrorClass = services.Classify(runErr)
	}
	summary := m.status
	summary.State = state
	m.mu.Unlock()

	ctx := services.WithRunID(context.Background(), rc.id)
	logger := logging.WithContext(ctx, m.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_"+string(state)),
		logging.String("outcome", string(state)),
		logging.Int("produced", summary.Produced),
		logging.Int("uploaded", summary.Uploaded),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", finished.Sub(rc.started)),
	}
	switch state {
	case StateFaulted:
		attrs = append(attrs,
			logging.Error(runErr),
			logging.String(logging.FieldErrorClass, services.Classify(runErr)),
			logging.String(logging.FieldImpact, "run stopped; remaining languages not processed"),
		)
		logging.ErrorWithContext(logger, "run faulted", "run_faulted", attrs...)
	case StateCancelled:
		logger.Info("run cancelled", logging.Args(attrs...)...)
	default:
		logger.Info("run completed", logging.Args(attrs...)...)
	}

	m.finishRunRecord(rc, state, runErr)
	rc.token.release()
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("failed to release run lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "run_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no sermonmux process is running"),
		)
	}

	// The lock is released before the state leaves Running so a new run
	// cannot acquire it first.
	m.mu.Lock()
	m.status.State = state
	if m.pending != nil {
		m.applyConfigLocked(m.pending)
	}
	m.mu.Unlock()

	m.publish(ctx, eventFinished(rc, state, summary, runErr, finished.Sub(rc.started)))
}

func (m *Manager) beginRunRecord(rc *runContext) {
	if m.store == nil {
		return
	}
	err := m.store.BeginRun(rc.token.Context(), artifacts.Run{
		ID:          rc.id,
		Kind:        rc.kind,
		State:       string(StateRunning),
		Stamp:       artifacts.Stamp(rc.plan.stamp),
		MeetingType: string(rc.plan.meeting),
		StartedAt:   rc.started,
	})
	if err != nil {
		logging.WarnWithContext(m.logger, "failed to record run", "registry_write_failed",
			logging.String(logging.FieldRunID, rc.id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will not appear in the artifact registry"),
		)
	}
}

func (m *Manager) finishRunRecord(rc *runContext, state State, runErr error) {
	if m.store == nil {
		return
	}
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	if err := m.store.FinishRun(context.Background(), rc.id, string(state), message); err != nil {
		logging.WarnWithContext(m.logger, "failed to record run result", "registry_write_failed",
			logging.String(logging.FieldRunID, rc.id),
			logging.Error(err),
		)
	}
}
