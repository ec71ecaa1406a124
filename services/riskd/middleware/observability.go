package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"riskgate/observability"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the identifier assigned by Observability.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Observability traces, measures and logs every request.
type Observability struct {
	service string
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewObservability(service string, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observability{
		service: service,
		logger:  logger.With("component", "http"),
		tracer:  otel.Tracer(service),
	}
}

// Middleware labels metrics and spans with module.
func (o *Observability) Middleware(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			done := observability.HTTP().Begin(module)
			defer done()
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			ctx, span := o.tracer.Start(ctx, module+" "+r.Method, trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("request.id", requestID),
			))
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			route := routePattern(r)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", recorder.status),
			)
			span.End()

			duration := time.Since(start)
			observability.HTTP().Observe(module, route, r.Method, recorder.status, duration)
			o.logger.Debug("request served",
				slog.String("route", route),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.status),
				slog.String("request_id", requestID),
				slog.Duration("duration", duration))
		})
	}
}

// routePattern reads the matched chi pattern. It is only complete once the
// router has dispatched the request.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
