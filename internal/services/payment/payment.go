// Package payment содержит бизнес-логику платежей: оформление наличных
// платежей, создание checkout-сессий во внешнем шлюзе и активацию абонемента
// по подтвержденному платежу с выдачей квитанции.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kenshar/gymflow/internal/config"
	"github.com/kenshar/gymflow/internal/lib/rabbitmq"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/paymentgateway"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Ошибки уровня сервиса платежей.
var (
	// ErrMemberNotFound участник не найден.
	ErrMemberNotFound = errors.New("member not found")
	// ErrPlanNotFound тарифный план не найден.
	ErrPlanNotFound = errors.New("membership plan not found")
	// ErrPaymentNotFound платеж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPlanHasNoPrice у плана нет цены, checkout создать нельзя.
	ErrPlanHasNoPrice = errors.New("plan has no valid price")
	// ErrGateway ошибка внешнего платежного шлюза. Платеж остается
	// pending или failed, но никогда не считается завершенным молча.
	ErrGateway = errors.New("payment gateway error")
)

// Repository определяет методы хранилища, нужные сервису платежей.
type Repository interface {
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
	GetPlan(ctx context.Context, planID int64) (*models.MembershipPlan, error)
	RecordCashPayment(ctx context.Context, payment models.Payment, membership models.Membership, receiptPrefix string) (*models.Payment, *models.Membership, *models.Receipt, error)
	CreatePendingPayment(ctx context.Context, payment models.Payment) (int64, error)
	SetCheckoutSessionID(ctx context.Context, paymentID int64, sessionID string) error
	FailPayment(ctx context.Context, paymentID int64) error
	CompleteCheckoutPayment(ctx context.Context, sessionID, gatewayPaymentID string, planID int64, durationDays int, receiptPrefix string) (*models.Payment, *models.Membership, *models.Receipt, error)
	FailCheckoutPayment(ctx context.Context, sessionID string) error
	GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error)
	ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*models.Payment, error)
	SumCompletedPayments(ctx context.Context, since *time.Time, method string) (float64, int64, error)
}

// GatewayClient описывает клиент внешнего платежного шлюза.
type GatewayClient interface {
	CreateCheckoutSession(ctx context.Context, reqParams paymentgateway.CreateSessionRequest) (*paymentgateway.CreateSessionResponse, error)
}

// ReceiptPublisher публикует события о выданных квитанциях.
type ReceiptPublisher interface {
	PublishReceiptIssued(event rabbitmq.ReceiptIssuedEvent) error
}

// ActiveStatusInvalidator сбрасывает кешированный статус активности участника.
type ActiveStatusInvalidator interface {
	InvalidateActiveStatus(memberID int64)
}

// Service реализует операции платежей и активацию абонементов по платежам.
type Service struct {
	repo        Repository
	gateway     GatewayClient
	publisher   ReceiptPublisher
	invalidator ActiveStatusInvalidator
	cfg         config.PaymentGateway
	prefix      string
	log         *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, gateway GatewayClient, publisher ReceiptPublisher,
	invalidator ActiveStatusInvalidator, cfg config.PaymentGateway, receiptPrefix string, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		gateway:     gateway,
		publisher:   publisher,
		invalidator: invalidator,
		cfg:         cfg,
		prefix:      receiptPrefix,
		log:         log,
	}
}

// notifyReceipt публикует событие о квитанции для воркера рендеринга.
// Неудача публикации не откатывает платеж: квитанция уже зафиксирована в базе.
func (s *Service) notifyReceipt(receipt *models.Receipt) {
	err := s.publisher.PublishReceiptIssued(rabbitmq.ReceiptIssuedEvent{
		ReceiptID:     receipt.ID,
		PaymentID:     receipt.PaymentID,
		ReceiptNumber: receipt.ReceiptNumber,
		IssuedAt:      receipt.IssuedAt,
	})
	if err != nil {
		s.log.Error("failed to publish receipt event", sl.Err(err),
			slog.String("receipt_number", receipt.ReceiptNumber))
	}
}

// RecordCashPayment оформляет платеж наличными: завершенный платеж,
// активированный абонемент и квитанция создаются одной транзакцией —
// завершенного платежа без абонемента и квитанции в базе не бывает.
func (s *Service) RecordCashPayment(ctx context.Context, adminID, memberID, planID int64, amount float64, currency, notes string, start *time.Time) (*models.Payment, *models.Membership, *models.Receipt, error) {
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, ErrMemberNotFound
		}
		return nil, nil, nil, err
	}
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, ErrPlanNotFound
		}
		return nil, nil, nil, err
	}

	if currency == "" {
		currency = s.cfg.Currency
	}
	startDate := time.Now().UTC()
	if start != nil {
		startDate = start.UTC()
	}

	payment := models.Payment{
		MemberID:    memberID,
		Amount:      amount,
		Currency:    currency,
		Method:      models.PaymentMethodCash,
		Description: "Cash payment for " + plan.Name,
		Notes:       notes,
		RecordedBy:  &adminID,
	}
	membership := models.Membership{
		MemberID:  memberID,
		PlanID:    planID,
		StartDate: startDate,
		EndDate:   startDate.AddDate(0, 0, plan.DurationDays),
	}

	p, m, receipt, err := s.repo.RecordCashPayment(ctx, payment, membership, s.prefix)
	if err != nil {
		return nil, nil, nil, err
	}

	s.invalidator.InvalidateActiveStatus(memberID)
	s.notifyReceipt(receipt)
	s.log.Info("cash payment recorded",
		slog.Int64("payment_id", p.ID),
		slog.Int64("membership_id", m.ID),
		slog.String("receipt_number", receipt.ReceiptNumber))
	return p, m, receipt, nil
}

// CreateCheckout создает pending-платеж и checkout-сессию в шлюзе.
// Абонемент на этом шаге не создается: он появится только после события
// об успешной оплате. Возвращает URL для редиректа и идентификатор сессии.
func (s *Service) CreateCheckout(ctx context.Context, memberID, planID int64) (string, string, error) {
	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrMemberNotFound
		}
		return "", "", err
	}
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrPlanNotFound
		}
		return "", "", err
	}
	if plan.Price <= 0 {
		return "", "", ErrPlanHasNoPrice
	}

	payment := models.Payment{
		MemberID:    memberID,
		Amount:      plan.Price,
		Currency:    s.cfg.Currency,
		Method:      models.PaymentMethodGateway,
		Description: "Gateway payment for " + plan.Name,
	}
	paymentID, err := s.repo.CreatePendingPayment(ctx, payment)
	if err != nil {
		return "", "", err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, paymentgateway.CreateSessionRequest{
		Amount: paymentgateway.Amount{
			Value:    fmt.Sprintf("%.2f", plan.Price),
			Currency: s.cfg.Currency,
		},
		Description: plan.Name,
		SuccessURL:  s.cfg.FrontendURL + "/payments?success=true",
		CancelURL:   s.cfg.FrontendURL + "/payments?canceled=true",
		Metadata: map[string]string{
			"payment_id": strconv.FormatInt(paymentID, 10),
			"member_id":  strconv.FormatInt(member.ID, 10),
			"plan_id":    strconv.FormatInt(planID, 10),
		},
	})
	if err != nil {
		s.log.Error("failed to create checkout session", sl.Err(err))
		if ferr := s.repo.FailPayment(ctx, paymentID); ferr != nil {
			s.log.Error("failed to mark payment as failed", sl.Err(ferr))
		}
		return "", "", fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if err = s.repo.SetCheckoutSessionID(ctx, paymentID, session.ID); err != nil {
		return "", "", err
	}

	s.log.Info("checkout session created",
		slog.Int64("payment_id", paymentID),
		slog.String("session_id", session.ID))
	return session.RedirectURL, session.ID, nil
}

// HandleGatewayEvent обрабатывает событие вебхука шлюза.
//
// Обработка идемпотентна и терпима к at-least-once доставке: повтор события
// о завершении уже завершенного платежа и события по неизвестной сессии —
// обычный трафик, а не ошибка. Подпись события проверяет HTTP-обработчик
// до вызова этого метода.
func (s *Service) HandleGatewayEvent(ctx context.Context, event *paymentgateway.WebhookEvent) error {
	switch event.Event {
	case paymentgateway.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case paymentgateway.EventCheckoutExpired:
		err := s.repo.FailCheckoutPayment(ctx, event.Object.SessionID)
		if err != nil {
			return err
		}
		s.log.Info("checkout session expired", slog.String("session_id", event.Object.SessionID))
		return nil
	default:
		s.log.Info("ignored gateway event", slog.String("event", event.Event))
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *paymentgateway.WebhookEvent) error {
	planID, err := strconv.ParseInt(event.Object.Metadata["plan_id"], 10, 64)
	if err != nil {
		// Событие не из этой системы: checkout-сессия создана не нами.
		s.log.Info("gateway event without plan metadata, skipped",
			slog.String("session_id", event.Object.SessionID))
		return nil
	}
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("gateway event references unknown plan", slog.Int64("plan_id", planID))
			return nil
		}
		return err
	}

	payment, membership, receipt, err := s.repo.CompleteCheckoutPayment(ctx,
		event.Object.SessionID, event.Object.PaymentID, plan.ID, plan.DurationDays, s.prefix)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Сессия не наша или платеж уже удален: игнорируем.
			s.log.Info("gateway event for unknown session, skipped",
				slog.String("session_id", event.Object.SessionID))
			return nil
		}
		return err
	}
	if payment == nil {
		// Повторная доставка: платеж уже завершен, абонемент и квитанция есть.
		s.log.Info("duplicate completion event, skipped",
			slog.String("session_id", event.Object.SessionID))
		return nil
	}

	s.invalidator.InvalidateActiveStatus(payment.MemberID)
	s.notifyReceipt(receipt)
	s.log.Info("checkout payment completed",
		slog.Int64("payment_id", payment.ID),
		slog.Int64("membership_id", membership.ID),
		slog.String("receipt_number", receipt.ReceiptNumber))
	return nil
}

// Get возвращает платеж по ID.
func (s *Service) Get(ctx context.Context, paymentID int64) (*models.Payment, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// List возвращает платежи по фильтру.
func (s *Service) List(ctx context.Context, filter repository.PaymentFilter) ([]*models.Payment, error) {
	return s.repo.ListPayments(ctx, filter)
}

// RevenueStats сводная статистика выручки по завершенным платежам.
type RevenueStats struct {
	Revenue         map[string]float64 `json:"revenue"`
	RevenueByMethod map[string]float64 `json:"revenue_by_method"`
	PaymentCounts   map[string]int64   `json:"payment_counts"`
}

// Revenue считает выручку за сегодня, неделю, месяц и все время,
// а также разбивку по способам оплаты.
func (s *Service) Revenue(ctx context.Context) (*RevenueStats, error) {
	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := todayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := &RevenueStats{
		Revenue:         make(map[string]float64),
		RevenueByMethod: make(map[string]float64),
		PaymentCounts:   make(map[string]int64),
	}

	periods := map[string]*time.Time{
		"today":    &todayStart,
		"week":     &weekStart,
		"month":    &monthStart,
		"all_time": nil,
	}
	for name, since := range periods {
		total, count, err := s.repo.SumCompletedPayments(ctx, since, "")
		if err != nil {
			return nil, err
		}
		stats.Revenue[name] = total
		stats.PaymentCounts[name] = count
	}

	for _, method := range []string{models.PaymentMethodCash, models.PaymentMethodGateway, models.PaymentMethodMpesa} {
		total, _, err := s.repo.SumCompletedPayments(ctx, nil, method)
		if err != nil {
			return nil, err
		}
		stats.RevenueByMethod[method] = total
	}
	return stats, nil
}
