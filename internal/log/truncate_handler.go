package log

import (
	"context"
	"io"
	"log/slog"
)

// MaxValueLength is the longest string attribute value that reaches the
// log untouched. Longer values are cut and suffixed with an ellipsis.
const MaxValueLength = 256

// truncationSuffix marks values that were cut.
const truncationSuffix = "...(truncated)"

// TruncateHandler wraps an slog.Handler to cap oversized attribute
// values. Selectors and display strings come straight off the wire from
// untrusted servers, so a single menu line can otherwise flood a log
// record.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Call sites stay free of length checks
type TruncateHandler struct {
	// handler is the underlying slog handler that receives capped records.
	handler slog.Handler
}

// NewTruncateHandler creates a new TruncateHandler wrapping the given handler.
// All string attributes will be capped before being passed to the underlying
// handler. If handler is nil, the returned TruncateHandler will use
// slog.Default().Handler().
func NewTruncateHandler(handler slog.Handler) *TruncateHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &TruncateHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TruncateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle caps the record's attributes and passes it to the underlying handler.
func (h *TruncateHandler) Handle(ctx context.Context, r slog.Record) error {
	capped := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		capped.AddAttrs(h.truncateAttr(a))
		return true
	})

	return h.handler.Handle(ctx, capped)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are capped before being added.
func (h *TruncateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cappedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cappedAttrs[i] = h.truncateAttr(a)
	}
	return &TruncateHandler{handler: h.handler.WithAttrs(cappedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *TruncateHandler) WithGroup(name string) slog.Handler {
	return &TruncateHandler{handler: h.handler.WithGroup(name)}
}

// truncateAttr caps a single attribute, recursively handling groups.
func (h *TruncateHandler) truncateAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		cappedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cappedAttrs[i] = h.truncateAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cappedAttrs...)}
	}

	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if len(strVal) > MaxValueLength {
			return slog.String(a.Key, strVal[:MaxValueLength]+truncationSuffix)
		}
	}

	return a
}

// NewLogger creates a new slog.Logger with value truncation.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	truncateHandler := NewTruncateHandler(textHandler)

	return slog.New(truncateHandler)
}

// NewJSONLogger creates a new slog.Logger with value truncation that
// outputs JSON format. Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger configured for JSON output with truncation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	truncateHandler := NewTruncateHandler(jsonHandler)

	return slog.New(truncateHandler)
}
