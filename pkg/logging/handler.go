package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Handler is an slog.Handler that stores records in a Buffer in addition to
// a wrapped base handler (typically stderr).
type Handler struct {
	base   slog.Handler
	buf    *Buffer
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps a base slog.Handler with buffering.
func NewHandler(base slog.Handler, buf *Buffer) *Handler {
	return &Handler{base: base, buf: buf}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.base.Handle(ctx, r)
	h.buf.Add(Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: formatRecord(r, h.attrs, h.groups),
	})
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		base:   h.base.WithAttrs(attrs),
		buf:    h.buf,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		base:   h.base.WithGroup(name),
		buf:    h.buf,
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}

// formatRecord produces a compact text representation of a log record.
func formatRecord(r slog.Record, preAttrs []slog.Attr, groups []string) string {
	var b strings.Builder
	b.WriteString(r.Message)

	for _, a := range preAttrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		fmt.Fprintf(&b, " %s=%s", key, a.Value.String())
		return true
	})

	return b.String()
}

// Setup installs the default slog logger writing text to w, at debug level
// when debug is set. A non-nil buf also receives every record.
func Setup(w io.Writer, debug bool, buf *Buffer) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if buf != nil {
		h = NewHandler(h, buf)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
