// Package read реализует HTTP-обработчик чтения одного абонемента.
// Абонемент доступен владельцу и администратору.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/services/membership"
)

// Service описывает интерфейс бизнес-логики чтения абонемента.
type Service interface {
	Get(ctx context.Context, membershipID int64) (*models.Membership, error)
}

// Handler обрабатывает HTTP-запросы чтения абонемента.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Чтение абонемента
// @Description Возвращает абонемент по ID. Доступен владельцу и администратору.
// @Tags Memberships
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID абонемента"
// @Success 200 {object} map[string]any "Абонемент"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Чужой абонемент"
// @Failure 404 {object} response.ErrorResponse "Абонемент не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /memberships/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.read"

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

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid membership id"))
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, membership.ErrMembershipNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership not found"))
			return
		}
		log.Error("failed to get membership", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	if m.MemberID != caller.ID && !caller.HasRole(models.RoleAdmin) {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("insufficient permissions"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"membership_id":  m.ID,
		"member_id":      m.MemberID,
		"plan_id":        m.PlanID,
		"start_date":     m.StartDate,
		"end_date":       m.EndDate,
		"is_active":      m.IsActive(),
		"days_remaining": m.DaysRemaining(),
	}))
}
