// Package refresh реализует HTTP-обработчик продления сессии: по еще
// действующему токену выпускается новый с полным сроком жизни.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики продления токена.
type Service interface {
	Refresh(ctx context.Context, token string) (string, error)
}

// Handler обрабатывает HTTP-запросы продления токена.
type Handler struct {
	log         *slog.Logger
	authService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{log: log, authService: authService}
}

// ServeHTTP godoc
// @Summary Продление сессии
// @Description Выпускает новый токен по еще действующему. Отозванный токен продлить нельзя.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Новый токен"
// @Failure 401 {object} response.ErrorResponse "Токен невалиден или отозван"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token, ok := middlewarectx.TokenFromContext(r.Context())
	if !ok {
		log.Error("token missing in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("missing token"))
		return
	}

	newToken, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenRevoked) {
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid or revoked token"))
			return
		}
		log.Error("failed to refresh token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("token refreshed")
	render.JSON(w, r, response.OKWithData(map[string]any{"token": newToken}))
}
