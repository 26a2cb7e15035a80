// Package middlewarectx содержит HTTP middleware для проверки JWT токенов
// и ролевого доступа.
//
// JWTMiddleware проверяет наличие и валидность токена в заголовке
// Authorization, в том числе по списку отозванных токенов, и в случае успеха
// добавляет участника и сам токен в контекст запроса для дальнейшего
// использования в обработчиках.
//
// В случае ошибки проверки возвращает HTTP 401 Unauthorized с сообщением об ошибке.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/services/auth"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// MemberKey — ключ для аутентифицированного участника в контексте.
	MemberKey Key = "member"
	// TokenKey — ключ для строки токена в контексте (нужен для logout и refresh).
	TokenKey Key = "token"
)

// Service описывает интерфейс сервиса для проверки токена.
type Service interface {
	Authenticate(ctx context.Context, token string) (*models.Member, error)
}

// MemberFromContext возвращает аутентифицированного участника из контекста.
func MemberFromContext(ctx context.Context) (*models.Member, bool) {
	m, ok := ctx.Value(MemberKey).(*models.Member)
	return m, ok
}

// TokenFromContext возвращает строку токена из контекста.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(TokenKey).(string)
	return t, ok
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Отозванный токен отклоняется до криптографической проверки. Если токен
// валиден, участник и токен добавляются в контекст запроса, иначе возвращается
// HTTP 401 Unauthorized.
func JWTMiddleware(authService Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			member, err := authService.Authenticate(r.Context(), tokenStr)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenRevoked):
					log.Warn("revoked token used")
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.Error("token has been revoked"))
				case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNotFound):
					log.Warn("invalid or expired token", sl.Err(err))
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.Error("invalid or expired token"))
				default:
					log.Error("failed to authenticate token", sl.Err(err))
					w.WriteHeader(http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal service error"))
				}
				return
			}

			ctx := context.WithValue(r.Context(), MemberKey, member)
			ctx = context.WithValue(ctx, TokenKey, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
