package orchestrator

import (
	"context"
	"time"

	"sermonmux/internal/logging"
	"sermonmux/internal/notifications"
)

type notice struct {
	event   notifications.Event
	payload notifications.Payload
}

func (m *Manager) publish(ctx context.Context, n notice) {
	m.mu.RLock()
	notifier := m.notifier
	m.mu.RUnlock()
	if notifier == nil || n.event == "" {
		return
	}
	if err := notifier.Publish(context.WithoutCancel(ctx), n.event, n.payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "notification failed", "notification_failed",
			logging.String("event", string(n.event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "push notification not delivered"),
			logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
		)
	}
}

func eventStarted(rc *runContext) notice {
	return notice{
		event: notifications.EventRunStarted,
		payload: notifications.Payload{
			"runID":     rc.id,
			"kind":      string(rc.kind),
			"languages": rc.plan.languages,
		},
	}
}

func eventFinished(rc *runContext, state State, summary Status, runErr error, elapsed time.Duration) notice {
	switch state {
	case StateCancelled:
		return notice{
			event:   notifications.EventRunCancelled,
			payload: notifications.Payload{"runID": rc.id, "language": summary.CurrentLanguage},
		}
	case StateFaulted:
		return notice{
			event:   notifications.EventRunFaulted,
			payload: notifications.Payload{"runID": rc.id, "error": runErr},
		}
	default:
		return notice{
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"runID":    rc.id,
				"kind":     string(rc.kind),
				"produced": summary.Produced,
				"uploaded": summary.Uploaded,
				"failed":   summary.Failed,
				"elapsed":  elapsed,
			},
		}
	}
}

func eventTranscodeFailed(lang string, err error) notice {
	return notice{
		event:   notifications.EventTranscodeFailed,
		payload: notifications.Payload{"language": lang, "error": err},
	}
}

func eventUploadCompleted(lang, title, remoteID string) notice {
	return notice{
		event:   notifications.EventUploadCompleted,
		payload: notifications.Payload{"language": lang, "title": title, "remoteID": remoteID},
	}
}

func eventUploadFailed(lang string, err error) notice {
	return notice{
		event:   notifications.EventUploadFailed,
		payload: notifications.Payload{"language": lang, "error": err},
	}
}

func eventNothingUploaded() notice {
	return notice{event: notifications.EventNothingUploaded}
}
