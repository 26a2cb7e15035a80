// Package cash реализует HTTP-обработчик оформления платежа наличными.
//
// Операция доступна только администратору: платеж, активированный абонемент
// и квитанция создаются одной транзакцией.
package cash

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
	"github.com/kenshar/gymflow/internal/services/payment"
)

// Request — структура входных данных для оформления платежа наличными.
type Request struct {
	MemberID  int64      `json:"member_id" validate:"required,gt=0"`
	PlanID    int64      `json:"plan_id" validate:"required,gt=0"`
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	Currency  string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes     string     `json:"notes,omitempty" validate:"omitempty,max=500"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// Service описывает интерфейс бизнес-логики платежа наличными.
type Service interface {
	RecordCashPayment(ctx context.Context, adminID, memberID, planID int64, amount float64, currency, notes string, start *time.Time) (*models.Payment, *models.Membership, *models.Receipt, error)
}

// Handler обрабатывает HTTP-запросы оформления платежа наличными.
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
// @Summary Платеж наличными
// @Description Оформляет платеж наличными: создает завершенный платеж, абонемент и квитанцию атомарно.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные платежа"
// @Success 201 {object} map[string]any "Платеж оформлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Участник или план не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/cash [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.cash"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	admin, ok := middlewarectx.MemberFromContext(r.Context())
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

	p, m, receipt, err := h.service.RecordCashPayment(r.Context(),
		admin.ID, req.MemberID, req.PlanID, req.Amount, req.Currency, req.Notes, req.StartDate)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrMemberNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
		case errors.Is(err, payment.ErrPlanNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("membership plan not found"))
		default:
			log.Error("failed to record cash payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
		}
		return
	}

	log.Info("cash payment recorded", slog.Int64("payment_id", p.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment_id":     p.ID,
		"status":         p.Status,
		"amount":         p.Amount,
		"currency":       p.Currency,
		"membership_id":  m.ID,
		"end_date":       m.EndDate,
		"receipt_number": receipt.ReceiptNumber,
		"issued_at":      receipt.IssuedAt,
	}))
}
