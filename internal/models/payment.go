// Package models содержит доменные структуры платежей и квитанций.
package models

import "time"

// Способы оплаты.
const (
	PaymentMethodCash    = "cash"
	PaymentMethodGateway = "gateway"
	PaymentMethodMpesa   = "mpesa"
)

// Статусы платежа. Платеж создается pending (шлюз) или completed (наличные)
// и переходит в completed, failed или refunded.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment представляет платеж участника за абонемент.
type Payment struct {
	ID                int64   // Уникальный идентификатор платежа
	MemberID          int64   // Участник, совершивший платеж
	MembershipID      *int64  // Абонемент, созданный по платежу (после завершения)
	Amount            float64 // Сумма
	Currency          string  // Валюта, например "KES"
	Method            string  // Способ оплаты: cash, gateway, mpesa
	Status            string  // Статус: pending, completed, failed, refunded
	CheckoutSessionID *string // Идентификатор checkout-сессии шлюза
	GatewayPaymentID  *string // Идентификатор транзакции в шлюзе
	Description       string  // Описание платежа
	Notes             string  // Произвольные заметки
	RecordedBy        *int64  // Администратор, оформивший платеж наличными
	CreatedAt         time.Time
}

// Receipt представляет квитанцию по завершенному платежу: ровно одна на платеж,
// с уникальным в пределах календарного дня последовательным номером
// вида PREFIX-YYYYMMDD-NNNN.
type Receipt struct {
	ID            int64     // Уникальный идентификатор квитанции
	PaymentID     int64     // Платеж, к которому относится квитанция
	ReceiptNumber string    // Номер квитанции, например GF-20240101-0001
	IssuedAt      time.Time // Момент выдачи
}
