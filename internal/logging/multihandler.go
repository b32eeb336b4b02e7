package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler duplicates each record to a set of sinks. A scrubbing
// session typically logs to the session file, optionally GELF, and
// optionally the OTel pipeline; each sink applies its own level filter.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler builds a handler over the given sinks. Nil entries are
// dropped so callers can pass optional sinks unconditionally.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiHandler{sinks: kept}
}

// Enabled reports whether at least one sink wants records at this level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every sink that accepts its level. A
// failing sink does not stop delivery to the others; the errors are joined
// and returned once all sinks have seen the record.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies the attributes to every sink.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.fanOut(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

// WithGroup applies the group to every sink.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.fanOut(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (m *MultiHandler) fanOut(derive func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, s := range m.sinks {
		sinks[i] = derive(s)
	}
	return &MultiHandler{sinks: sinks}
}
