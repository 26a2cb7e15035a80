// Package create реализует HTTP-обработчик активации абонемента.
//
// Участник активирует абонемент себе; администратор может указать member_id
// и активировать абонемент другому участнику, в том числе с заданной датой
// начала.
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
	"github.com/kenshar/gymflow/internal/services/membership"
)

// Request — структура входных данных для активации абонемента.
type Request struct {
	PlanID    int64      `json:"plan_id" validate:"required,gt=0"`
	MemberID  *int64     `json:"member_id,omitempty" validate:"omitempty,gt=0"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// Service описывает интерфейс бизнес-логики активации абонемента.
type Service interface {
	Activate(ctx context.Context, memberID, planID int64, start *time.Time) (*models.Membership, error)
}

// Handler обрабатывает HTTP-запросы активации абонемента.
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
// @Summary Активация абонемента
// @Description Создает абонемент по тарифному плану. Администратор может указать member_id.
// @Tags Memberships
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "План и опциональные member_id, start_date"
// @Success 201 {object} map[string]any "Абонемент создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "member_id без прав администратора"
// @Failure 404 {object} response.ErrorResponse "План или участник не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /memberships [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.create"

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
			log.Warn("non-admin tried to activate membership for another member",
				slog.Int64("caller_id", caller.ID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("insufficient permissions"))
			return
		}
		targetID = *req.MemberID
	}

	m, err := h.service.Activate(r.Context(), targetID, req.PlanID, req.StartDate)
	if err != nil {
		switch {
		case errors.Is(err, membership.ErrPlanNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership plan not found"))
		case errors.Is(err, membership.ErrMemberNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
		default:
			log.Error("failed to activate membership", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
		}
		return
	}

	log.Info("membership activated", slog.Int64("membership_id", m.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"membership_id":  m.ID,
		"member_id":      m.MemberID,
		"plan_id":        m.PlanID,
		"start_date":     m.StartDate,
		"end_date":       m.EndDate,
		"is_active":      m.IsActive(),
		"days_remaining": m.DaysRemaining(),
	}))
}
