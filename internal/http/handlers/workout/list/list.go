// Package list реализует HTTP-обработчик списка тренировок
// текущего участника.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
)

// Service описывает интерфейс бизнес-логики списка тренировок.
type Service interface {
	List(ctx context.Context, memberID int64) ([]*models.WorkoutLog, error)
}

// Handler обрабатывает HTTP-запросы списка тренировок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тренировок
// @Description Возвращает тренировки текущего участника, свежие первыми.
// @Tags Workouts
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список тренировок"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /workouts [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workout.list"

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

	workouts, err := h.service.List(r.Context(), caller.ID)
	if err != nil {
		log.Error("failed to list workouts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	items := make([]map[string]any, 0, len(workouts))
	for _, wl := range workouts {
		items = append(items, workoutPayload(wl))
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"workouts": items,
		"count":    len(items),
	}))
}

func workoutPayload(w *models.WorkoutLog) map[string]any {
	exercises := make([]map[string]any, 0, len(w.Exercises))
	for _, e := range w.Exercises {
		exercises = append(exercises, map[string]any{
			"exercise_id":   e.ID,
			"exercise_name": e.ExerciseName,
			"sets":          e.Sets,
			"reps":          e.Reps,
			"weight":        e.Weight,
			"notes":         e.Notes,
		})
	}
	return map[string]any{
		"workout_id":   w.ID,
		"member_id":    w.MemberID,
		"workout_date": w.WorkoutDate,
		"notes":        w.Notes,
		"exercises":    exercises,
	}
}
