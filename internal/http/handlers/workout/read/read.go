// Package read реализует HTTP-обработчик чтения одной тренировки.
// Тренировка доступна только владельцу.
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
	"github.com/kenshar/gymflow/internal/services/workout"
)

// Service описывает интерфейс бизнес-логики чтения тренировки.
type Service interface {
	Get(ctx context.Context, workoutID int64) (*models.WorkoutLog, error)
}

// Handler обрабатывает HTTP-запросы чтения тренировки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Чтение тренировки
// @Description Возвращает тренировку по ID вместе с упражнениями. Доступна только владельцу.
// @Tags Workouts
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID тренировки"
// @Success 200 {object} map[string]any "Тренировка"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Чужая тренировка"
// @Failure 404 {object} response.ErrorResponse "Тренировка не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /workouts/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workout.read"

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
		render.JSON(w, r, response.Error("invalid workout id"))
		return
	}

	wl, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, workout.ErrWorkoutNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("workout not found"))
			return
		}
		log.Error("failed to get workout", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	if wl.MemberID != caller.ID {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("insufficient permissions"))
		return
	}

	exercises := make([]map[string]any, 0, len(wl.Exercises))
	for _, e := range wl.Exercises {
		exercises = append(exercises, map[string]any{
			"exercise_id":   e.ID,
			"exercise_name": e.ExerciseName,
			"sets":          e.Sets,
			"reps":          e.Reps,
			"weight":        e.Weight,
			"notes":         e.Notes,
		})
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"workout_id":   wl.ID,
		"member_id":    wl.MemberID,
		"workout_date": wl.WorkoutDate,
		"notes":        wl.Notes,
		"exercises":    exercises,
	}))
}
