// Package update реализует HTTP-обработчик правки тренировки.
//
// Править тренировку может только владелец. Если в теле запроса передан
// ключ exercises, старый список упражнений целиком заменяется новым.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
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

// Request — структура входных данных правки тренировки. Все поля опциональны;
// nil-поле оставляет текущее значение без изменений.
type Request struct {
	WorkoutDate *time.Time  `json:"workout_date,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
	Exercises   *[]Exercise `json:"exercises,omitempty" validate:"omitempty,min=1,dive"`
}

// Service описывает интерфейс бизнес-логики правки тренировки.
type Service interface {
	Get(ctx context.Context, workoutID int64) (*models.WorkoutLog, error)
	Update(ctx context.Context, workoutID int64, workoutDate *time.Time, notes *string, exercises []models.WorkoutExercise) (*models.WorkoutLog, error)
}

// Handler обрабатывает HTTP-запросы правки тренировки.
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
// @Summary Правка тренировки
// @Description Обновляет дату, заметки и, при передаче ключа exercises, список упражнений.
// @Tags Workouts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID тренировки"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} map[string]any "Обновленная тренировка"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Чужая тренировка"
// @Failure 404 {object} response.ErrorResponse "Тренировка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /workouts/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workout.update"

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

	var req Request
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err = h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	existing, err := h.service.Get(r.Context(), id)
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
	if existing.MemberID != caller.ID {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("insufficient permissions"))
		return
	}

	var exercises []models.WorkoutExercise
	if req.Exercises != nil {
		exercises = make([]models.WorkoutExercise, 0, len(*req.Exercises))
		for _, e := range *req.Exercises {
			exercises = append(exercises, models.WorkoutExercise{
				ExerciseName: e.ExerciseName,
				Sets:         e.Sets,
				Reps:         e.Reps,
				Weight:       e.Weight,
				Notes:        e.Notes,
			})
		}
	}

	updated, err := h.service.Update(r.Context(), id, req.WorkoutDate, req.Notes, exercises)
	if err != nil {
		switch {
		case errors.Is(err, workout.ErrWorkoutNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("workout not found"))
		case errors.Is(err, workout.ErrNoExercises):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("workout must contain at least one exercise"))
		default:
			log.Error("failed to update workout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
		}
		return
	}

	log.Info("workout updated", slog.Int64("workout_id", updated.ID))
	exerciseItems := make([]map[string]any, 0, len(updated.Exercises))
	for _, e := range updated.Exercises {
		exerciseItems = append(exerciseItems, map[string]any{
			"exercise_id":   e.ID,
			"exercise_name": e.ExerciseName,
			"sets":          e.Sets,
			"reps":          e.Reps,
			"weight":        e.Weight,
			"notes":         e.Notes,
		})
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"workout_id":   updated.ID,
		"member_id":    updated.MemberID,
		"workout_date": updated.WorkoutDate,
		"notes":        updated.Notes,
		"exercises":    exerciseItems,
	}))
}
