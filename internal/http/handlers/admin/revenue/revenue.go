// Package revenue реализует HTTP-обработчик отчета по выручке:
// суммы завершенных платежей за сегодня, неделю, месяц и все время,
// с разбивкой по способам оплаты.
package revenue

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/services/payment"
)

// Service описывает интерфейс бизнес-логики отчета по выручке.
type Service interface {
	Revenue(ctx context.Context) (*payment.RevenueStats, error)
}

// Handler обрабатывает HTTP-запросы отчета по выручке.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отчет по выручке
// @Description Возвращает выручку по периодам и способам оплаты.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} payment.RevenueStats "Выручка"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/revenue [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.revenue"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	stats, err := h.service.Revenue(r.Context())
	if err != nil {
		log.Error("failed to compute revenue", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}
