package testenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// TestLogHandler is a slog.Handler that prints a running message index, the level and
// the message with its attributes, but no timestamp, so example output stays
// deterministic.
//
// Handlers derived through WithAttrs and WithGroup share the index and the writer.
type TestLogHandler struct {
	out    *output
	attrs  []slog.Attr
	groups []string

	ignorePrefixes []string
	ignoreDebug    bool
}

type output struct {
	mu    sync.Mutex
	w     io.Writer
	index int
}

// TestLogHandlerOption configures a TestLogHandler.
type TestLogHandlerOption func(*TestLogHandler)

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.out.w = w
	}
}

// WithIgnorePrefixes drops warnings and errors whose message starts with one of prefixes.
func WithIgnorePrefixes(prefixes ...string) TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.ignorePrefixes = append(h.ignorePrefixes, prefixes...)
	}
}

func WithIgnoreDebug() TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.ignoreDebug = true
	}
}

func NewTestLogHandler(opts ...TestLogHandlerOption) *TestLogHandler {
	h := &TestLogHandler{out: &output{w: os.Stdout}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TestLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level > slog.LevelDebug || !h.ignoreDebug
}

//nolint:gocritic
func (h *TestLogHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.Enabled(context.Background(), r.Level) {
		return nil
	}
	if r.Level >= slog.LevelWarn {
		for _, prefix := range h.ignorePrefixes {
			if strings.HasPrefix(r.Message, prefix) {
				return nil
			}
		}
	}

	parts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		parts = appendAttr(parts, "", a)
	}
	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		parts = appendAttr(parts, prefix, a)
		return true
	})

	line := fmt.Sprintf("%s: %s", r.Level, r.Message)
	if len(parts) > 0 {
		line += " " + strings.Join(parts, " ")
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := fmt.Fprintf(h.out.w, "[%d] %s\n", h.out.index, line)
	h.out.index++
	return err
}

func (h *TestLogHandler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// appendAttr flattens groups into dotted keys.
func appendAttr(parts []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			parts = appendAttr(parts, prefix, ga)
		}
		return parts
	}
	if a.Equal(slog.Attr{}) {
		return parts
	}
	return append(parts, fmt.Sprintf("%s%s=%v", prefix, a.Key, a.Value))
}

func (h *TestLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	prefix := h.groupPrefix()
	for _, a := range attrs {
		if prefix != "" {
			a = slog.Attr{Key: prefix + a.Key, Value: a.Value}
		}
		c.attrs = append(c.attrs, a)
	}
	return c
}

func (h *TestLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

func (h *TestLogHandler) clone() *TestLogHandler {
	return &TestLogHandler{
		out:            h.out,
		attrs:          h.attrs[:len(h.attrs):len(h.attrs)],
		groups:         h.groups[:len(h.groups):len(h.groups)],
		ignorePrefixes: h.ignorePrefixes,
		ignoreDebug:    h.ignoreDebug,
	}
}
