// Package checkout реализует HTTP-обработчик создания checkout-сессии
// во внешнем платежном шлюзе. Абонемент активируется позже, по событию
// вебхука об успешной оплате.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/services/payment"
)

// Request — структура входных данных для создания checkout-сессии.
type Request struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// Service описывает интерфейс бизнес-логики checkout.
type Service interface {
	CreateCheckout(ctx context.Context, memberID, planID int64) (string, string, error)
}

// Handler обрабатывает HTTP-запросы создания checkout-сессии.
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
// @Summary Создание checkout-сессии
// @Description Создает pending-платеж и сессию оплаты в шлюзе, возвращает URL для редиректа.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Тарифный план"
// @Success 201 {object} map[string]any "Сессия создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или план без цены"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка платежного шлюза"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkout"

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
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	redirectURL, sessionID, err := h.service.CreateCheckout(r.Context(), caller.ID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPlanNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership plan not found"))
		case errors.Is(err, payment.ErrPlanHasNoPrice):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("plan has no valid price"))
		case errors.Is(err, payment.ErrGateway):
			log.Error("gateway error", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway unavailable"))
		default:
			log.Error("failed to create checkout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
		}
		return
	}

	log.Info("checkout session created", slog.String("session_id", sessionID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"redirect_url": redirectURL,
		"session_id":   sessionID,
	}))
}
