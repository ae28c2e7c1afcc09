package middleware

import "net/http"

// Middleware стандартный HTTP middleware
type Middleware func(http.Handler) http.Handler

// Chain объединяет middleware в одну цепочку.
// Первый middleware в списке оказывается внешним.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		chain := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			chain = middlewares[i](chain)
		}
		return chain
	}
}
