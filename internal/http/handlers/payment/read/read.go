// Package read реализует HTTP-обработчик чтения одного платежа.
// Платеж доступен владельцу и администратору, вместе с квитанцией,
// если она уже выдана.
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
	"github.com/kenshar/gymflow/internal/services/payment"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики чтения платежа.
type Service interface {
	Get(ctx context.Context, paymentID int64) (*models.Payment, error)
}

// ReceiptReader возвращает квитанцию по платежу.
type ReceiptReader interface {
	GetReceiptByPayment(ctx context.Context, paymentID int64) (*models.Receipt, error)
}

// Handler обрабатывает HTTP-запросы чтения платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	receipts ReceiptReader
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, receipts ReceiptReader) *Handler {
	return &Handler{log: log, service: service, receipts: receipts}
}

// ServeHTTP godoc
// @Summary Чтение платежа
// @Description Возвращает платеж по ID вместе с квитанцией, если она выдана.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID платежа"
// @Success 200 {object} map[string]any "Платеж"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Чужой платеж"
// @Failure 404 {object} response.ErrorResponse "Платеж не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.read"

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
		render.JSON(w, r, response.Error("invalid payment id"))
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
			return
		}
		log.Error("failed to get payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	if p.MemberID != caller.ID && !caller.HasRole(models.RoleAdmin) {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("insufficient permissions"))
		return
	}

	data := map[string]any{
		"payment_id":    p.ID,
		"member_id":     p.MemberID,
		"membership_id": p.MembershipID,
		"amount":        p.Amount,
		"currency":      p.Currency,
		"method":        p.Method,
		"status":        p.Status,
		"description":   p.Description,
		"notes":         p.Notes,
		"created_at":    p.CreatedAt,
	}

	receipt, err := h.receipts.GetReceiptByPayment(r.Context(), p.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error("failed to get receipt", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	if receipt != nil {
		data["receipt"] = map[string]any{
			"receipt_number": receipt.ReceiptNumber,
			"issued_at":      receipt.IssuedAt,
		}
	}

	render.JSON(w, r, response.OKWithData(data))
}
