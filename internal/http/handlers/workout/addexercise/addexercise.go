// Package addexercise реализует HTTP-обработчик добавления упражнения
// к существующей тренировке. Доступно только владельцу тренировки.
package addexercise

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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

// Request — структура входных данных добавления упражнения.
type Request struct {
	ExerciseName string   `json:"exercise_name" validate:"required,max=100"`
	Sets         int      `json:"sets" validate:"required,gt=0"`
	Reps         int      `json:"reps" validate:"required,gt=0"`
	Weight       *float64 `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Notes        string   `json:"notes,omitempty"`
}

// Service описывает интерфейс бизнес-логики добавления упражнения.
type Service interface {
	Get(ctx context.Context, workoutID int64) (*models.WorkoutLog, error)
	AddExercise(ctx context.Context, workoutID int64, e models.WorkoutExercise) (*models.WorkoutExercise, error)
}

// Handler обрабатывает HTTP-запросы добавления упражнения.
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
// @Summary Добавление упражнения
// @Description Добавляет одно упражнение к тренировке. Доступно только владельцу.
// @Tags Workouts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID тренировки"
// @Param request body Request true "Упражнение"
// @Success 201 {object} map[string]any "Упражнение добавлено"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Чужая тренировка"
// @Failure 404 {object} response.ErrorResponse "Тренировка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /workouts/{id}/exercises [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workout.addexercise"

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

	added, err := h.service.AddExercise(r.Context(), id, models.WorkoutExercise{
		ExerciseName: req.ExerciseName,
		Sets:         req.Sets,
		Reps:         req.Reps,
		Weight:       req.Weight,
		Notes:        req.Notes,
	})
	if err != nil {
		log.Error("failed to add exercise", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("exercise added",
		slog.Int64("workout_id", id),
		slog.Int64("exercise_id", added.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"exercise_id":   added.ID,
		"workout_id":    added.WorkoutLogID,
		"exercise_name": added.ExerciseName,
		"sets":          added.Sets,
		"reps":          added.Reps,
		"weight":        added.Weight,
		"notes":         added.Notes,
	}))
}
