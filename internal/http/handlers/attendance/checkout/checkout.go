// Package checkout реализует HTTP-обработчик отметки об уходе из зала.
package checkout

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
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/services/attendance"
)

// Service описывает интерфейс бизнес-логики отметки об уходе.
type Service interface {
	CheckOut(ctx context.Context, memberID int64) (*models.Attendance, error)
}

// Handler обрабатывает HTTP-запросы отметки об уходе.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметка об уходе
// @Description Закрывает открытое посещение текущего участника.
// @Tags Attendance
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Посещение закрыто"
// @Failure 409 {object} response.ErrorResponse "Нет открытого посещения"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /attendance/check-out [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.attendance.checkout"

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

	a, err := h.service.CheckOut(r.Context(), caller.ID)
	if err != nil {
		if errors.Is(err, attendance.ErrNotCheckedIn) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("not checked in"))
			return
		}
		log.Error("failed to check out", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("member checked out", slog.Int64("member_id", caller.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"attendance_id":    a.ID,
		"check_in_time":    a.CheckInTime,
		"check_out_time":   a.CheckOutTime,
		"duration_minutes": a.DurationMinutes(),
	}))
}
