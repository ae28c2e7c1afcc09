package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"heatgrid/pkg/metrics"
)

// Metrics записывает метрики HTTP запросов.
// В качестве пути используется шаблон маршрута chi, чтобы не
// раздувать кардинальность лейблов значениями из URL.
func Metrics() Middleware {
	m := metrics.Get()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.RecordHTTPRequest(r.Method, routePattern(r), strconv.Itoa(status), duration)
		})
	}
}

// routePattern возвращает шаблон маршрута после роутинга.
// Для незнакомых роутеру путей остаётся сырой путь.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
