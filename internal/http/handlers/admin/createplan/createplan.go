// Package createplan реализует HTTP-обработчик создания тарифного плана
// администратором.
package createplan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Request — структура входных данных для создания плана.
type Request struct {
	Name         string  `json:"name" validate:"required,min=2,max=100"`
	DurationDays int     `json:"duration_days" validate:"required,gt=0"`
	Price        float64 `json:"price" validate:"gte=0"`
	Description  string  `json:"description,omitempty" validate:"omitempty,max=500"`
}

// PlanCreator описывает интерфейс создания тарифного плана в хранилище.
type PlanCreator interface {
	CreatePlan(ctx context.Context, plan models.MembershipPlan) (int64, error)
}

// Handler обрабатывает HTTP-запросы создания плана.
type Handler struct {
	log      *slog.Logger
	plans    PlanCreator
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, plans PlanCreator) *Handler {
	return &Handler{
		log:      log,
		plans:    plans,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создание тарифного плана
// @Description Создает тарифный план с уникальным названием.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные плана"
// @Success 201 {object} map[string]any "План создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "План с таким названием уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/plans [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.createplan"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.plans.CreatePlan(r.Context(), models.MembershipPlan{
		Name:         req.Name,
		DurationDays: req.DurationDays,
		Price:        req.Price,
		Description:  req.Description,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("plan with this name already exists"))
			return
		}
		log.Error("failed to create plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("plan created", slog.Int64("plan_id", id), slog.String("name", req.Name))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"plan_id":       id,
		"name":          req.Name,
		"duration_days": req.DurationDays,
		"price":         req.Price,
	}))
}
