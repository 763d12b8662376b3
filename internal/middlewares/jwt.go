package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/services"
)

// principalFieldType определяет тип для ключа, используемого для хранения владельца токена в контексте.
type principalFieldType string

// principalField является ключом для хранения владельца токена в контексте запроса.
const principalField principalFieldType = "principalField"

// AuthMiddlewareConfig представляет конфигурацию middleware для аутентификации.
type AuthMiddlewareConfig struct {
	excludePaths []string // Пути, которые будут исключены из проверки аутентификации.
}

// AuthMiddleware создает новую конфигурацию middleware для аутентификации.
func AuthMiddleware() *AuthMiddlewareConfig {
	return &AuthMiddlewareConfig{}
}

// WithExcludedPaths устанавливает пути, которые будут исключены из проверки аутентификации.
func (a *AuthMiddlewareConfig) WithExcludedPaths(paths ...string) *AuthMiddlewareConfig {
	a.excludePaths = paths
	return a
}

// Middleware проверяет Bearer-токен и кладёт его владельца в контекст запроса.
func (a *AuthMiddlewareConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, path := range a.excludePaths {
			if strings.HasPrefix(r.URL.Path, path) {
				next.ServeHTTP(w, r)
				return
			}
		}

		jwtService := GetServiceFromContext[models.JWTService](w, r, JwtServiceKey)
		if jwtService == nil {
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Требуется заголовок Authorization", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" || tokenString == authHeader {
			http.Error(w, "Токен Bearer пуст", http.StatusUnauthorized)
			return
		}

		token, err := (*jwtService).ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, services.ErrTokenIsExpired) {
				http.Error(w, "Токен истёк", http.StatusUnauthorized)
				return
			}

			http.Error(w, "Неверный токен", http.StatusUnauthorized)
			return
		}

		principal, err := services.PrincipalFromToken(token)
		if err != nil {
			http.Error(w, "Неверный токен", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalField, principal)))
	})
}

// RequireRole пропускает только запросы владельцев токена с ролью role.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := r.Context().Value(principalField).(models.Principal)
			if !ok {
				http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
				return
			}

			if principal.Role != role {
				http.Error(w, "Недостаточно прав", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipalFromContext извлекает владельца токена из контекста запроса.
// В случае ошибки возвращает HTTP 500 и nil.
func GetPrincipalFromContext(w http.ResponseWriter, r *http.Request) *models.Principal {
	principal, ok := r.Context().Value(principalField).(models.Principal)

	if !ok {
		http.Error(w, "Не удалось получить владельца токена из контекста", http.StatusInternalServerError)
		return nil
	}

	return &principal
}
