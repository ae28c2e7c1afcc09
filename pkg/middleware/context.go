package middleware

import (
	"context"

	"heatgrid/pkg/token"
)

// Context keys
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	claimsKey    contextKey = "claims"
)

// GetRequestID извлекает request_id из контекста
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID добавляет request_id в контекст
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetClaims извлекает claims аутентифицированного клиента
func GetClaims(ctx context.Context) *token.Claims {
	if v, ok := ctx.Value(claimsKey).(*token.Claims); ok {
		return v
	}
	return nil
}

// WithClaims добавляет claims в контекст
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClientID извлекает идентификатор клиента из контекста
func GetClientID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.ClientID
	}
	return ""
}
