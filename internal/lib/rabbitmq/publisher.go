// Package rabbitmq содержит публикацию событий в RabbitMQ.
// Сервис платежей публикует событие receipt.issued после выдачи квитанции:
// его забирает внешний воркер рендеринга PDF. Номер квитанции и момент выдачи
// к этому моменту уже зафиксированы в базе.
package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// ReceiptQueue имя очереди событий выдачи квитанций.
const ReceiptQueue = "receipt.issued"

// ReceiptIssuedEvent тело события о выданной квитанции.
type ReceiptIssuedEvent struct {
	ReceiptID     int64     `json:"receipt_id"`
	PaymentID     int64     `json:"payment_id"`
	ReceiptNumber string    `json:"receipt_number"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Connect открывает соединение и канал, объявляет очередь квитанций.
func Connect(url string) (*amqp.Connection, *amqp.Channel, error) {
	const op = "rabbitmq.Connect"
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = ch.QueueDeclare(ReceiptQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, ch, nil
}

// EventPublisher публикует доменные события в объявленные очереди.
type EventPublisher struct {
	ch *amqp.Channel
}

// NewEventPublisher создает публикатора поверх открытого канала.
func NewEventPublisher(ch *amqp.Channel) *EventPublisher {
	return &EventPublisher{ch: ch}
}

// PublishReceiptIssued отправляет событие о выданной квитанции
// воркеру рендеринга.
func (p *EventPublisher) PublishReceiptIssued(event ReceiptIssuedEvent) error {
	return PublishMessage(p.ch, "", ReceiptQueue, event)
}

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
