package router

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBody = 16 * 1024

var defaultContactFields = []string{"phone", "whatsapp", "email", "recipient", "name"}

// bodyLog decides what of a request or response body reaches the access log.
// Bodies on omitted routes (presigned links, bulk exports) are never logged;
// everything else is decoded as JSON and masked. Contact details in OTP and
// admin payloads are shortened, secrets replaced.
type bodyLog struct {
	masker *instrument.Masker
	omit   map[string]struct{}
}

func newBodyLog(cfg config.Config) *bodyLog {
	secret, contact, omit := []string(nil), defaultContactFields, []string(nil)
	if cfg != nil {
		secret = cfg.GetArray("instrument.log_mask_fields")
		if v := cfg.GetArray("instrument.log_contact_fields"); len(v) > 0 {
			contact = v
		}
		omit = cfg.GetArray("instrument.log_body_omit_routes")
	}

	b := &bodyLog{masker: instrument.NewMasker(secret, contact), omit: make(map[string]struct{}, len(omit))}
	for _, route := range omit {
		b.omit[route] = struct{}{}
	}
	return b
}

func (b *bodyLog) render(route string, body []byte, capped bool) any {
	if len(body) == 0 {
		return nil
	}
	if _, skip := b.omit[route]; skip {
		return "<omitted>"
	}
	if capped {
		return "<truncated>"
	}
	if v, ok := b.masker.JSON(body); ok {
		return v
	}
	if !utf8.Valid(body) {
		return "<binary>"
	}
	return "<non-json>"
}

// captureWriter records status and a bounded copy of the response body.
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	capped bool
	err    error
}

func (w *captureWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if room := maxLoggedBody - w.body.Len(); room >= len(p) {
		w.body.Write(p)
	} else {
		w.capped = true
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// SetError lets the endpoint hand its error to the span.
func (w *captureWriter) SetError(err error) { w.err = err }

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *captureWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *captureWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of the
// remaining stream. capped reports a body larger than the limit.
func peekBody(r *http.Request) (body []byte, capped bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}

	//nolint:errcheck // best effort for logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	if len(head) > maxLoggedBody {
		return head[:maxLoggedBody], true
	}
	return head, false
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	bodies := newBodyLog(cfg)
	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requests, err := meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	duration, err := meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)

			ctx, tags := instrument.WithTags(r.Context())
			ctx, span := tracer.Start(ctx, r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.ClientAddress(clientIP(r)),
					semconv.UserAgentOriginal(r.UserAgent()),
				),
			)
			defer span.End()

			reqBody, reqCapped := peekBody(r)
			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"query", r.URL.RawQuery,
				"ip", clientIP(r),
				"body", bodies.render(route, reqBody, reqCapped),
			)

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r.WithContext(ctx))

			status := cw.statusCode()
			metricAttrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}
			if outcome := tags.Outcome(); outcome != "" {
				metricAttrs = append(metricAttrs, instrument.AttrOutcome.String(outcome))
			}

			span.SetAttributes(metricAttrs...)
			span.SetAttributes(tags.Attributes()...)
			span.SetAttributes(semconv.HTTPResponseBodySize(cw.bytes))
			switch {
			case status >= http.StatusInternalServerError && cw.err != nil:
				span.RecordError(cw.err)
				span.SetStatus(codes.Error, cw.err.Error())
			case status >= http.StatusInternalServerError:
				span.SetStatus(codes.Error, http.StatusText(status))
			case cw.err != nil:
				span.AddEvent("request rejected", trace.WithAttributes(attribute.String("reason", cw.err.Error())))
			}

			elapsed := time.Since(start)
			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(metricAttrs...))
			}
			if duration != nil {
				duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(metricAttrs...))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", cw.bytes,
				"latency_ms", elapsed.Milliseconds(),
				"outcome", tags.Outcome(),
				"body", bodies.render(route, cw.body.Bytes(), cw.capped),
			)
		})
	}
}
