// Package list реализует HTTP-обработчик списка абонементов участника.
// Администратор может запросить историю другого участника через query-параметр
// member_id.
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
)

// Service описывает интерфейс бизнес-логики списка абонементов.
type Service interface {
	List(ctx context.Context, memberID int64) ([]*models.Membership, error)
}

// Handler обрабатывает HTTP-запросы списка абонементов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список абонементов
// @Description Возвращает абонементы текущего участника. Администратор может указать ?member_id=.
// @Tags Memberships
// @Produce  json
// @Security BearerAuth
// @Param member_id query int false "ID участника (только для администратора)"
// @Success 200 {object} map[string]any "Список абонементов"
// @Failure 403 {object} response.ErrorResponse "member_id без прав администратора"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /memberships [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.list"

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

	targetID := caller.ID
	if raw := r.URL.Query().Get("member_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid member_id"))
			return
		}
		if id != caller.ID && !caller.HasRole(models.RoleAdmin) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("insufficient permissions"))
			return
		}
		targetID = id
	}

	memberships, err := h.service.List(r.Context(), targetID)
	if err != nil {
		log.Error("failed to list memberships", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	items := make([]map[string]any, 0, len(memberships))
	for _, m := range memberships {
		items = append(items, map[string]any{
			"membership_id":  m.ID,
			"member_id":      m.MemberID,
			"plan_id":        m.PlanID,
			"start_date":     m.StartDate,
			"end_date":       m.EndDate,
			"is_active":      m.IsActive(),
			"days_remaining": m.DaysRemaining(),
		})
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"memberships": items,
		"count":       len(items),
	}))
}
