// Package renew реализует HTTP-обработчик продления абонемента.
//
// У истекшего абонемента новый срок отсчитывается от текущего момента,
// у действующего — добавляется к старой дате окончания. План можно сменить,
// передав plan_id.
package renew

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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
	"github.com/kenshar/gymflow/internal/services/membership"
)

// Request — структура входных данных для продления. Тело может быть пустым:
// тогда продление идет по текущему плану абонемента.
type Request struct {
	PlanID *int64 `json:"plan_id,omitempty" validate:"omitempty,gt=0"`
}

// Service описывает интерфейс бизнес-логики продления.
type Service interface {
	Get(ctx context.Context, membershipID int64) (*models.Membership, error)
	Renew(ctx context.Context, membershipID int64, planID *int64) (*models.Membership, error)
}

// Handler обрабатывает HTTP-запросы продления абонемента.
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
// @Summary Продление абонемента
// @Description Продлевает абонемент. Истекший продлевается от текущего момента, действующий — аддитивно.
// @Tags Memberships
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID абонемента"
// @Param request body Request false "Опциональный новый plan_id"
// @Success 200 {object} map[string]any "Продленный абонемент"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Чужой абонемент"
// @Failure 404 {object} response.ErrorResponse "Абонемент или план не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /memberships/{id}/renew [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.renew"

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
		render.JSON(w, r, response.Error("invalid membership id"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
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

	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, membership.ErrMembershipNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership not found"))
			return
		}
		log.Error("failed to get membership", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	if current.MemberID != caller.ID && !caller.HasRole(models.RoleAdmin) {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("insufficient permissions"))
		return
	}

	m, err := h.service.Renew(r.Context(), id, req.PlanID)
	if err != nil {
		if errors.Is(err, membership.ErrPlanNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership plan not found"))
			return
		}
		log.Error("failed to renew membership", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("membership renewed", slog.Int64("membership_id", m.ID))
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
