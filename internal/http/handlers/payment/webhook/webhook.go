// Package webhook реализует HTTP-обработчик событий платежного шлюза.
//
// Эндпоинт открыт, но каждый запрос проверяется по HMAC-подписи из заголовка
// X-Api-Signature. Обработка событий идемпотентна: повтор доставки и события
// по чужим сессиям отвечают 200 без побочных эффектов, чтобы шлюз не
// пересылал их снова.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/paymentgateway"
)

// Service описывает интерфейс бизнес-логики обработки событий шлюза.
type Service interface {
	HandleGatewayEvent(ctx context.Context, event *paymentgateway.WebhookEvent) error
}

// Handler обрабатывает HTTP-запросы вебхуков шлюза.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платежного шлюза
// @Description Принимает события checkout.session.completed и checkout.session.expired с HMAC-подписью.
// @Tags Payments
// @Accept  json
// @Success 200 "Событие обработано"
// @Failure 400 "Некорректное тело запроса"
// @Failure 401 "Подпись отсутствует или неверна"
// @Failure 500 "Внутренняя ошибка сервера"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !paymentgateway.VerifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var event paymentgateway.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.service.HandleGatewayEvent(r.Context(), &event); err != nil {
		log.Error("failed to process gateway event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed",
		slog.String("event", event.Event),
		slog.String("session_id", event.Object.SessionID))
	w.WriteHeader(http.StatusOK)
}
