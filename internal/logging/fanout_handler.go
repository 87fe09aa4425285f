package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// teeHandler writes each record to every sink whose level admits it. The
// console sink and the JSON log file share one logger this way.
type teeHandler []slog.Handler

func newFanoutHandler(sinks ...slog.Handler) slog.Handler {
	sinks = slices.DeleteFunc(slices.Clone(sinks), func(h slog.Handler) bool { return h == nil })
	switch len(sinks) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return sinks[0]
	}
	return teeHandler(sinks)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(t, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range t {
		if sink.Enabled(ctx, record.Level) {
			errs = append(errs, sink.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) derive(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, sink := range t {
		next[i] = fn(sink)
	}
	return next
}
