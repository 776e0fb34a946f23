package instrument

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// initLogging installs the process logger: JSON on stdout, mirrored to the
// OTLP log pipeline when lp is set.
func initLogging(serviceName string, lp *sdklog.LoggerProvider, masker *Masker) {
	sinks := []slog.Handler{slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		AddSource:   true,
		ReplaceAttr: renameAttr,
	})}
	if lp != nil {
		sinks = append(sinks, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)))
	}

	slog.SetDefault(newLogger(serviceName, masker, sinks...))
}

// newLogger stacks the context and mask handlers over one or more sinks.
func newLogger(serviceName string, masker *Masker, sinks ...slog.Handler) *slog.Logger {
	next := sinks[0]
	if len(sinks) > 1 {
		next = fanoutHandler(sinks)
	}

	return slog.New(&contextHandler{
		next:    &maskHandler{next: next, masker: masker},
		service: serviceName,
	})
}

func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", "internal/"+rel+":"+strconv.Itoa(src.Line))
	}
	return a
}

// contextHandler stamps request scoped values: correlation id, service and,
// once a usecase has tagged it, the entry being worked on.
type contextHandler struct {
	next    slog.Handler
	service string
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" {
		r.AddAttrs(slog.String("_cID", cID))
	}
	if t := tagsFrom(ctx); t != nil {
		if id := t.EntryID(); id > 0 {
			r.AddAttrs(slog.Int64("_entry_id", id))
		}
	}
	r.AddAttrs(slog.String("service", h.service))

	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), service: h.service}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), service: h.service}
}

type maskHandler struct {
	next   slog.Handler
	masker *Masker
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.masker == nil {
		return h.next.Handle(ctx, r)
	}

	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.masker.Attr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.masker.Attr(a)
	}
	return &maskHandler{next: h.next.WithAttrs(out), masker: h.masker}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{next: h.next.WithGroup(name), masker: h.masker}
}

// fanoutHandler writes each record to every enabled sink.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
