// Package checkin реализует HTTP-обработчик отметки о приходе в зал.
// Отметиться может только участник с действующим абонементом и без
// открытого посещения.
package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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

// Request — структура входных данных отметки о приходе. Тело опционально.
type Request struct {
	Notes string `json:"notes,omitempty"`
}

// Service описывает интерфейс бизнес-логики отметки о приходе.
type Service interface {
	CheckIn(ctx context.Context, memberID int64, notes string) (*models.Attendance, error)
}

// Handler обрабатывает HTTP-запросы отметки о приходе.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметка о приходе
// @Description Создает отметку о приходе. Требует действующий абонемент.
// @Tags Attendance
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request false "Опциональные заметки"
// @Success 201 {object} map[string]any "Посещение открыто"
// @Failure 402 {object} response.ErrorResponse "Нет действующего абонемента"
// @Failure 409 {object} response.ErrorResponse "Уже в зале"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /attendance/check-in [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.attendance.checkin"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	a, err := h.service.CheckIn(r.Context(), caller.ID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrNoActiveMembership):
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("no active membership"))
		case errors.Is(err, attendance.ErrAlreadyCheckedIn):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("already checked in"))
		default:
			log.Error("failed to check in", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
		}
		return
	}

	log.Info("member checked in", slog.Int64("member_id", caller.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"attendance_id": a.ID,
		"check_in_time": a.CheckInTime,
	}))
}
