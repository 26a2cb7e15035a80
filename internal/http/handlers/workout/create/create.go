// Package create реализует HTTP-обработчик записи тренировки.
//
// Участник записывает тренировку себе; администратор может указать member_id
// и записать тренировку другому участнику. Тренировка должна содержать
// хотя бы одно упражнение.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/services/workout"
)

// Exercise — одно упражнение в теле запроса.
type Exercise struct {
	ExerciseName string   `json:"exercise_name" validate:"required,max=100"`
	Sets         int      `json:"sets" validate:"required,gt=0"`
	Reps         int      `json:"reps" validate:"required,gt=0"`
	Weight       *float64 `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Notes        string   `json:"notes,omitempty"`
}

// Request — структура входных данных записи тренировки.
type Request struct {
	MemberID    *int64     `json:"member_id,omitempty" validate:"omitempty,gt=0"`
	WorkoutDate *time.Time `json:"workout_date,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Exercises   []Exercise `json:"exercises" validate:"required,min=1,dive"`
}

// Service описывает интерфейс бизнес-логики записи тренировки.
type Service interface {
	Log(ctx context.Context, memberID int64, workoutDate *time.Time, notes string, exercises []models.WorkoutExercise) (*models.WorkoutLog, error)
}

// Handler обрабатывает HTTP-запросы записи тренировки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запись тренировки
// @Description Сохраняет тренировку с упражнениями. Администратор может указать member_id.
// @Tags Workouts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Дата, заметки и список упражнений"
// @Success 201 {object} map[string]any "Тренировка записана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "member_id без прав администратора"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /workouts [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workout.create"

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
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	targetID := caller.ID
	if req.MemberID != nil && *req.MemberID != caller.ID {
		if !caller.HasRole(models.RoleAdmin) {
			log.Warn("non-admin tried to log workout for another member",
				slog.Int64("caller_id", caller.ID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("insufficient permissions"))
			return
		}
		targetID = *req.MemberID
	}

	exercises := make([]models.WorkoutExercise, 0, len(req.Exercises))
	for _, e := range req.Exercises {
		exercises = append(exercises, models.WorkoutExercise{
			ExerciseName: e.ExerciseName,
			Sets:         e.Sets,
			Reps:         e.Reps,
			Weight:       e.Weight,
			Notes:        e.Notes,
		})
	}

	created, err := h.service.Log(r.Context(), targetID, req.WorkoutDate, req.Notes, exercises)
	if err != nil {
		switch {
		case errors.Is(err, workout.ErrMemberNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
		case errors.Is(err, workout.ErrNoExercises):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("workout must contain at least one exercise"))
		default:
			log.Error("failed to log workout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
		}
		return
	}

	log.Info("workout logged", slog.Int64("workout_id", created.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(workoutPayload(created)))
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
