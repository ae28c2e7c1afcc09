package telemetry

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Middleware создаёт HTTP middleware для трейсинга.
// Trace context извлекается из заголовков входящего запроса, поэтому
// span встраивается в распределённый trace вызывающей стороны.
func Middleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем parent span из заголовков
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := StartSpan(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("service.name", serviceName),
			)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Выполняем handler
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			span.SetAttributes(attribute.Int("http.status_code", status))

			// Шаблон маршрута известен только после роутинга
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					span.SetAttributes(attribute.String("http.route", pattern))
					span.SetName(r.Method + " " + pattern)
				}
			}

			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, strconv.Itoa(status)+" "+http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
