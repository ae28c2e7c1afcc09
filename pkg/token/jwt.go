package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"heatgrid/pkg/config"
)

// JWTConfig конфигурация JWT
type JWTConfig struct {
	SecretKey string
	TokenTTL  time.Duration
	Issuer    string
}

// DefaultJWTConfig возвращает конфигурацию по умолчанию
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey: "change-me-in-production",
		TokenTTL:  1 * time.Hour,
		Issuer:    "heatgrid",
	}
}

// FromAuthConfig строит конфигурацию JWT из настроек приложения
func FromAuthConfig(cfg *config.AuthConfig) *JWTConfig {
	jc := DefaultJWTConfig()
	if cfg == nil {
		return jc
	}
	if cfg.JWTSecret != "" {
		jc.SecretKey = cfg.JWTSecret
	}
	if cfg.TokenTTL > 0 {
		jc.TokenTTL = cfg.TokenTTL
	}
	if cfg.Issuer != "" {
		jc.Issuer = cfg.Issuer
	}
	return jc
}

// Claims кастомные claims для JWT
type Claims struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager управляет JWT токенами
type JWTManager struct {
	config *JWTConfig
}

// NewJWTManager создаёт новый менеджер JWT
func NewJWTManager(config *JWTConfig) *JWTManager {
	if config == nil {
		config = DefaultJWTConfig()
	}
	return &JWTManager{config: config}
}

// Generate генерирует токен для API-клиента
func (m *JWTManager) Generate(clientID, name, role string) (string, error) {
	now := time.Now()

	claims := &Claims{
		ClientID: clientID,
		Name:     name,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate валидирует токен и возвращает claims
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.SecretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// TTLSeconds возвращает время жизни токена в секундах
func (m *JWTManager) TTLSeconds() int64 {
	return int64(m.config.TokenTTL.Seconds())
}
