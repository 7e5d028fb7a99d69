package logger

import (
	"context"
	"log/slog"
	"runtime"
)

// conditionalSourceHandler decorates a handler so source location is
// attached only for selected levels. Routine info logs stay compact while
// warnings and errors keep a file:line for debugging.
type conditionalSourceHandler struct {
	handler     slog.Handler
	sourceAtLvl map[slog.Level]bool
}

// NewConditionalSourceHandler wraps handler so that source location is added
// only for the given levels. The wrapped handler must be built with
// AddSource disabled; this wrapper injects the attribute itself.
func NewConditionalSourceHandler(handler slog.Handler, showSourceForLevels ...slog.Level) slog.Handler {
	levels := make(map[slog.Level]bool, len(showSourceForLevels))
	for _, level := range showSourceForLevels {
		levels[level] = true
	}
	return &conditionalSourceHandler{
		handler:     handler,
		sourceAtLvl: levels,
	}
}

func (h *conditionalSourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.sourceAtLvl[r.Level] {
		// Skip this frame plus the slog internal frame to land on the caller.
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:])
		frames := runtime.CallersFrames(pcs[:])
		frame, _ := frames.Next()

		r.AddAttrs(slog.Attr{
			Key: slog.SourceKey,
			Value: slog.AnyValue(&slog.Source{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			}),
		})
	}

	return h.handler.Handle(ctx, r)
}

func (h *conditionalSourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &conditionalSourceHandler{
		handler:     h.handler.WithAttrs(attrs),
		sourceAtLvl: h.sourceAtLvl,
	}
}

func (h *conditionalSourceHandler) WithGroup(name string) slog.Handler {
	return &conditionalSourceHandler{
		handler:     h.handler.WithGroup(name),
		sourceAtLvl: h.sourceAtLvl,
	}
}

func (h *conditionalSourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}
