package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kenshar/gymflow/internal/models"
)

// nextReceiptNumber выдает следующий номер квитанции формата PREFIX-YYYYMMDD-NNNN.
// Последовательность счетчика ограничена календарным днем. Перед подсчетом
// берется advisory-блокировка на ключ дня, поэтому два платежа, завершающиеся
// одновременно, не получат одинаковый номер даже при нескольких экземплярах
// сервиса: блокировка живет в базе, а не в процессе.
func nextReceiptNumber(ctx context.Context, tx *sql.Tx, prefix string, now time.Time) (string, error) {
	const op = "storage.nextReceiptNumber"

	day := now.UTC().Format("20060102")
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('receipts:' || $1))`, day); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM receipts WHERE issued_at >= $1`, dayStart).Scan(&count); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, count+1), nil
}

func insertReceipt(ctx context.Context, tx *sql.Tx, paymentID int64, prefix string, now time.Time) (*models.Receipt, error) {
	const op = "storage.insertReceipt"

	number, err := nextReceiptNumber(ctx, tx, prefix, now)
	if err != nil {
		return nil, err
	}
	receipt := &models.Receipt{
		PaymentID:     paymentID,
		ReceiptNumber: number,
		IssuedAt:      now.UTC(),
	}
	if err = tx.QueryRowContext(ctx,
		`INSERT INTO receipts (payment_id, receipt_number, issued_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		receipt.PaymentID, receipt.ReceiptNumber, receipt.IssuedAt).Scan(&receipt.ID); err != nil {
		return nil, translateError(op, err)
	}
	return receipt, nil
}

// RecordCashPayment одной транзакцией сохраняет завершенный платеж наличными,
// создает абонемент и выдает квитанцию. Либо фиксируются все три записи,
// либо ни одной.
func (s *Storage) RecordCashPayment(ctx context.Context, payment models.Payment, membership models.Membership, receiptPrefix string) (*models.Payment, *models.Membership, *models.Receipt, error) {
	const op = "storage.RecordCashPayment"
	select {
	case <-ctx.Done():
		return nil, nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	payment.Status = models.PaymentStatusCompleted
	if err = tx.QueryRowContext(ctx,
		`INSERT INTO payments (member_id, amount, currency, method, status, description, notes, recorded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		payment.MemberID, payment.Amount, payment.Currency, payment.Method,
		payment.Status, payment.Description, payment.Notes, payment.RecordedBy).
		Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return nil, nil, nil, translateError(op, err)
	}

	if err = tx.QueryRowContext(ctx,
		`INSERT INTO memberships (member_id, plan_id, start_date, end_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		membership.MemberID, membership.PlanID, membership.StartDate, membership.EndDate).
		Scan(&membership.ID, &membership.CreatedAt); err != nil {
		return nil, nil, nil, translateError(op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE payments SET membership_id = $1 WHERE id = $2`,
		membership.ID, payment.ID); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	payment.MembershipID = &membership.ID

	receipt, err := insertReceipt(ctx, tx, payment.ID, receiptPrefix, time.Now())
	if err != nil {
		return nil, nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return &payment, &membership, receipt, nil
}

// CreatePendingPayment сохраняет платеж в статусе pending, привязанный
// к checkout-сессии шлюза. Абонемент на этом этапе не создается.
func (s *Storage) CreatePendingPayment(ctx context.Context, payment models.Payment) (int64, error) {
	const op = "storage.CreatePendingPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO payments (member_id, amount, currency, method, status, checkout_session_id, description)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		payment.MemberID, payment.Amount, payment.Currency, payment.Method,
		models.PaymentStatusPending, payment.CheckoutSessionID, payment.Description).Scan(&newID); err != nil {
		return 0, translateError(op, err)
	}
	return newID, nil
}

// SetCheckoutSessionID дописывает идентификатор сессии к pending-платежу.
func (s *Storage) SetCheckoutSessionID(ctx context.Context, paymentID int64, sessionID string) error {
	const op = "storage.SetCheckoutSessionID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`UPDATE payments SET checkout_session_id = $1 WHERE id = $2`, sessionID, paymentID)
	if err != nil {
		return translateError(op, err)
	}
	return nil
}

// CompleteCheckoutPayment завершает pending-платеж по идентификатору
// checkout-сессии: помечает его completed, сохраняет идентификатор транзакции
// шлюза, создает абонемент и выдает квитанцию — одной транзакцией.
//
// Обработка идемпотентна по текущему статусу платежа: строка блокируется
// FOR UPDATE, и если платеж уже не pending, транзакция завершается без
// изменений (nil, nil, nil) — повторная доставка события не создаст
// второй абонемент и вторую квитанцию. Неизвестная сессия — ErrNotFound.
func (s *Storage) CompleteCheckoutPayment(ctx context.Context, sessionID, gatewayPaymentID string, planID int64, durationDays int, receiptPrefix string) (*models.Payment, *models.Membership, *models.Receipt, error) {
	const op = "storage.CompleteCheckoutPayment"
	select {
	case <-ctx.Done():
		return nil, nil, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	payment := models.Payment{}
	var membershipID sql.NullInt64
	if err = tx.QueryRowContext(ctx,
		`SELECT id, member_id, membership_id, amount, currency, method, status, description, created_at
		 FROM payments
		 WHERE checkout_session_id = $1
		 FOR UPDATE`, sessionID).
		Scan(&payment.ID, &payment.MemberID, &membershipID, &payment.Amount,
			&payment.Currency, &payment.Method, &payment.Status,
			&payment.Description, &payment.CreatedAt); err != nil {
		return nil, nil, nil, translateError(op, err)
	}
	if payment.Status != models.PaymentStatusPending {
		// Уже обработан: повтор вебхука.
		return nil, nil, nil, nil
	}

	now := time.Now().UTC()
	membership := models.Membership{
		MemberID:  payment.MemberID,
		PlanID:    planID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, durationDays),
	}
	if err = tx.QueryRowContext(ctx,
		`INSERT INTO memberships (member_id, plan_id, start_date, end_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		membership.MemberID, membership.PlanID, membership.StartDate, membership.EndDate).
		Scan(&membership.ID, &membership.CreatedAt); err != nil {
		return nil, nil, nil, translateError(op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE payments
		 SET status = $1, gateway_payment_id = $2, membership_id = $3
		 WHERE id = $4`,
		models.PaymentStatusCompleted, gatewayPaymentID, membership.ID, payment.ID); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	payment.Status = models.PaymentStatusCompleted
	payment.GatewayPaymentID = &gatewayPaymentID
	payment.MembershipID = &membership.ID

	receipt, err := insertReceipt(ctx, tx, payment.ID, receiptPrefix, now)
	if err != nil {
		return nil, nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return &payment, &membership, receipt, nil
}

// FailPayment помечает pending-платеж как failed по его ID.
// Используется, когда создать checkout-сессию в шлюзе не удалось.
func (s *Storage) FailPayment(ctx context.Context, paymentID int64) error {
	const op = "storage.FailPayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`UPDATE payments
		 SET status = $1
		 WHERE id = $2 AND status = $3`,
		models.PaymentStatusFailed, paymentID, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FailCheckoutPayment помечает pending-платеж по checkout-сессии как failed.
// Уже завершенный или неизвестный платеж не трогается.
func (s *Storage) FailCheckoutPayment(ctx context.Context, sessionID string) error {
	const op = "storage.FailCheckoutPayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`UPDATE payments
		 SET status = $1
		 WHERE checkout_session_id = $2 AND status = $3`,
		models.PaymentStatusFailed, sessionID, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanPayment(scan func(dest ...any) error) (*models.Payment, error) {
	p := &models.Payment{}
	var membershipID, recordedBy sql.NullInt64
	var sessionID, gatewayPaymentID, description, notes sql.NullString
	if err := scan(&p.ID, &p.MemberID, &membershipID, &p.Amount, &p.Currency,
		&p.Method, &p.Status, &sessionID, &gatewayPaymentID,
		&description, &notes, &recordedBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	if membershipID.Valid {
		p.MembershipID = &membershipID.Int64
	}
	if recordedBy.Valid {
		p.RecordedBy = &recordedBy.Int64
	}
	if sessionID.Valid {
		p.CheckoutSessionID = &sessionID.String
	}
	if gatewayPaymentID.Valid {
		p.GatewayPaymentID = &gatewayPaymentID.String
	}
	p.Description = description.String
	p.Notes = notes.String
	return p, nil
}

const paymentColumns = `id, member_id, membership_id, amount, currency, method, status,
			  checkout_session_id, gateway_payment_id, description, notes, recorded_by, created_at`

// GetPayment возвращает платеж по ID.
func (s *Storage) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, paymentID).Scan)
	if err != nil {
		return nil, translateError(op, err)
	}
	return p, nil
}

// PaymentFilter параметры фильтрации списка платежей.
type PaymentFilter struct {
	MemberID *int64 // nil — платежи всех участников
	Status   string // пустая строка — любой статус
	Method   string // пустая строка — любой способ
}

// ListPayments возвращает платежи по фильтру, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, filter PaymentFilter) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE ($1::bigint IS NULL OR member_id = $1)
			    AND ($2 = '' OR status = $2)
			    AND ($3 = '' OR method = $3)
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, filter.MemberID, filter.Status, filter.Method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetReceiptByPayment возвращает квитанцию по платежу.
func (s *Storage) GetReceiptByPayment(ctx context.Context, paymentID int64) (*models.Receipt, error) {
	const op = "storage.GetReceiptByPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, payment_id, receipt_number, issued_at
			  FROM receipts
			  WHERE payment_id = $1`
	r := &models.Receipt{}
	if err := s.DB.QueryRowContext(ctx, query, paymentID).
		Scan(&r.ID, &r.PaymentID, &r.ReceiptNumber, &r.IssuedAt); err != nil {
		return nil, translateError(op, err)
	}
	return r, nil
}
