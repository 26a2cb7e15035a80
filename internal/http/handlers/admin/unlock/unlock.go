// Package unlock реализует HTTP-обработчик разблокировки учетной записи
// администратором: снимает блокировку и сбрасывает счетчик неудачных попыток
// независимо от прошедшего времени.
package unlock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики разблокировки.
type Service interface {
	UnlockAccount(ctx context.Context, memberID int64) error
}

// Handler обрабатывает HTTP-запросы разблокировки.
type Handler struct {
	log         *slog.Logger
	authService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{log: log, authService: authService}
}

// ServeHTTP godoc
// @Summary Разблокировка учетной записи
// @Description Снимает блокировку и сбрасывает счетчик неудачных попыток входа.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID участника"
// @Success 200 {object} response.Response "Учетная запись разблокирована"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/members/{id}/unlock [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.unlock"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid member id"))
		return
	}

	if err := h.authService.UnlockAccount(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
			return
		}
		log.Error("failed to unlock account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("account unlocked", slog.Int64("member_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"message": "account unlocked"}))
}
