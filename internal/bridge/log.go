package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LogHandler is an slog.Handler that forwards records at or above Level to
// the host as consoleLog(message) and then passes them to an inner handler.
type LogHandler struct {
	sink  Sink
	inner slog.Handler
	level slog.Leveler
	attrs string // preformatted attrs from WithAttrs
	group string
}

// NewLogHandler returns a handler forwarding Info and above to sink. inner
// may be nil.
func NewLogHandler(sink Sink, inner slog.Handler) *LogHandler {
	return &LogHandler{sink: sink, inner: inner, level: slog.LevelInfo}
}

func (h *LogHandler) Enabled(ctx context.Context, l slog.Level) bool {
	if l >= h.level.Level() {
		return true
	}
	return h.inner != nil && h.inner.Enabled(ctx, l)
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		var b strings.Builder
		b.WriteString(r.Message)
		b.WriteString(h.attrs)
		r.Attrs(func(a slog.Attr) bool {
			writeAttr(&b, h.group, a)
			return true
		})
		h.sink.Report(Report{Event: EventConsoleLog, Args: []any{b.String()}})
	}
	if h.inner != nil && h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&b, h.group, a)
	}
	h2.attrs = b.String()
	if h.inner != nil {
		h2.inner = h.inner.WithAttrs(attrs)
	}
	return &h2
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	if h.inner != nil {
		h2.inner = h.inner.WithGroup(name)
	}
	return &h2
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", prefix, a.Key, a.Value.Any())
}
