package logging

import (
	"context"
	"log/slog"
	"strings"
)

// streamHandler publishes every record it passes on to the hub.
type streamHandler struct {
	next   slog.Handler
	hub    *StreamHub
	scoped []slog.Attr // attrs bound through WithAttrs
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(buildEvent(record, h.scoped))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &streamHandler{
		next:   h.next.WithAttrs(attrs),
		hub:    h.hub,
		scoped: append(append([]slog.Attr(nil), h.scoped...), attrs...),
	}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, scoped: h.scoped}
}

// buildEvent folds scoped attrs, then record attrs, into a LogEvent. The
// subject keys (run, language, stage, component, correlation) get their own
// fields; the rest land in Fields. Details only reflect call-site attrs.
func buildEvent(record slog.Record, scoped []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    map[string]string{},
	}
	subject := map[string]*string{
		FieldRunID:         &event.RunID,
		FieldLanguage:      &event.Language,
		FieldStage:         &event.Stage,
		FieldComponent:     &event.Component,
		FieldCorrelationID: &event.CorrelationID,
	}
	apply := func(attr slog.Attr) {
		key := strings.TrimSpace(attr.Key)
		if key == "" {
			return
		}
		if dst, ok := subject[key]; ok {
			*dst = attrString(attr.Value)
			return
		}
		event.Fields[key] = attrString(attr.Value)
	}

	for _, attr := range scoped {
		apply(attr)
	}
	var callSite []kv
	record.Attrs(func(attr slog.Attr) bool {
		apply(attr)
		if key := strings.TrimSpace(attr.Key); key != "" {
			callSite = append(callSite, kv{key: key, value: attr.Value})
		}
		return true
	})

	if info, _ := selectInfoFields(callSite, infoAttrLimit, false); len(info) > 0 {
		event.Details = make([]DetailField, 0, len(info))
		for _, field := range info {
			event.Details = append(event.Details, DetailField{Label: field.label, Value: field.value})
		}
	}
	return event
}
