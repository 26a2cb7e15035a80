// Package list реализует HTTP-обработчик списка платежей.
//
// Участник видит только свои платежи; администратор — все, с фильтрами
// по участнику, статусу и способу оплаты.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики списка платежей.
type Service interface {
	List(ctx context.Context, filter repository.PaymentFilter) ([]*models.Payment, error)
}

// Handler обрабатывает HTTP-запросы списка платежей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Description Возвращает платежи текущего участника. Администратору доступны фильтры member_id, status, method.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param member_id query int false "ID участника (только для администратора)"
// @Param status query string false "Фильтр по статусу"
// @Param method query string false "Фильтр по способу оплаты"
// @Success 200 {object} map[string]any "Список платежей"
// @Failure 403 {object} response.ErrorResponse "Фильтр member_id без прав администратора"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.MemberFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("member identification missing"))
		return
	}

	filter := repository.PaymentFilter{
		Status: r.URL.Query().Get("status"),
		Method: r.URL.Query().Get("method"),
	}

	if caller.HasRole(models.RoleAdmin) {
		if raw := r.URL.Query().Get("member_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid member_id"))
				return
			}
			filter.MemberID = &id
		}
	} else {
		// Не-администратор всегда ограничен собственными платежами.
		filter.MemberID = &caller.ID
	}

	payments, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	items := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		items = append(items, map[string]any{
			"payment_id":    p.ID,
			"member_id":     p.MemberID,
			"membership_id": p.MembershipID,
			"amount":        p.Amount,
			"currency":      p.Currency,
			"method":        p.Method,
			"status":        p.Status,
			"description":   p.Description,
			"created_at":    p.CreatedAt,
		})
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payments": items,
		"count":    len(items),
	}))
}
