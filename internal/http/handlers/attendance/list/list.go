// Package list реализует HTTP-обработчик истории посещений.
// Администратор может запросить историю другого участника через
// query-параметр member_id.
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

// Service описывает интерфейс бизнес-логики истории посещений.
type Service interface {
	List(ctx context.Context, memberID int64) ([]*models.Attendance, error)
}

// Handler обрабатывает HTTP-запросы истории посещений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История посещений
// @Description Возвращает посещения текущего участника, свежие первыми. Администратор может указать ?member_id=.
// @Tags Attendance
// @Produce  json
// @Security BearerAuth
// @Param member_id query int false "ID участника (только для администратора)"
// @Success 200 {object} map[string]any "Список посещений"
// @Failure 403 {object} response.ErrorResponse "member_id без прав администратора"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /attendance [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.attendance.list"

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

	visits, err := h.service.List(r.Context(), targetID)
	if err != nil {
		log.Error("failed to list attendance", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	items := make([]map[string]any, 0, len(visits))
	for _, a := range visits {
		items = append(items, map[string]any{
			"attendance_id":    a.ID,
			"check_in_time":    a.CheckInTime,
			"check_out_time":   a.CheckOutTime,
			"duration_minutes": a.DurationMinutes(),
			"notes":            a.Notes,
		})
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"attendance": items,
		"count":      len(items),
	}))
}
