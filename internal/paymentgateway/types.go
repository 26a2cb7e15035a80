package paymentgateway

import "time"

// Событийные типы вебхуков шлюза.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// Amount представляет денежную сумму.
type Amount struct {
	Value    string `json:"value"`    // сумма, например "1500.00"
	Currency string `json:"currency"` // валюта, например "KES"
}

// CreateSessionRequest представляет запрос на создание checkout-сессии.
type CreateSessionRequest struct {
	Amount      Amount            `json:"amount"`
	Description string            `json:"description"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"` // payment_id, member_id, plan_id
}

// CreateSessionResponse представляет ответ на создание checkout-сессии.
type CreateSessionResponse struct {
	ID          string    `json:"id"`           // идентификатор сессии в шлюзе
	RedirectURL string    `json:"redirect_url"` // URL для редиректа участника
	CreatedAt   time.Time `json:"created_at"`
}

// WebhookEvent представляет входящее событие вебхука.
type WebhookEvent struct {
	Event  string `json:"event"`
	Object struct {
		SessionID string            `json:"session_id"` // идентификатор checkout-сессии
		PaymentID string            `json:"payment_id"` // идентификатор транзакции в шлюзе
		Metadata  map[string]string `json:"metadata"`   // исходные payment_id, member_id, plan_id
	} `json:"object"`
}
