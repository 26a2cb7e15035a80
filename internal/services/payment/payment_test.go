package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/config"
	"github.com/kenshar/gymflow/internal/lib/rabbitmq"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/paymentgateway"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

type RepositoryMock struct {
	mock.Mock
}

func (m *RepositoryMock) GetMember(ctx context.Context, memberID int64) (*models.Member, error) {
	args := m.Called(ctx, memberID)
	member, _ := args.Get(0).(*models.Member)
	return member, args.Error(1)
}

func (m *RepositoryMock) GetPlan(ctx context.Context, planID int64) (*models.MembershipPlan, error) {
	args := m.Called(ctx, planID)
	plan, _ := args.Get(0).(*models.MembershipPlan)
	return plan, args.Error(1)
}

func (m *RepositoryMock) RecordCashPayment(ctx context.Context, payment models.Payment, membership models.Membership, receiptPrefix string) (*models.Payment, *models.Membership, *models.Receipt, error) {
	args := m.Called(ctx, payment, membership, receiptPrefix)
	p, _ := args.Get(0).(*models.Payment)
	ms, _ := args.Get(1).(*models.Membership)
	r, _ := args.Get(2).(*models.Receipt)
	return p, ms, r, args.Error(3)
}

func (m *RepositoryMock) CreatePendingPayment(ctx context.Context, payment models.Payment) (int64, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepositoryMock) SetCheckoutSessionID(ctx context.Context, paymentID int64, sessionID string) error {
	args := m.Called(ctx, paymentID, sessionID)
	return args.Error(0)
}

func (m *RepositoryMock) FailPayment(ctx context.Context, paymentID int64) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func (m *RepositoryMock) CompleteCheckoutPayment(ctx context.Context, sessionID, gatewayPaymentID string, planID int64, durationDays int, receiptPrefix string) (*models.Payment, *models.Membership, *models.Receipt, error) {
	args := m.Called(ctx, sessionID, gatewayPaymentID, planID, durationDays, receiptPrefix)
	p, _ := args.Get(0).(*models.Payment)
	ms, _ := args.Get(1).(*models.Membership)
	r, _ := args.Get(2).(*models.Receipt)
	return p, ms, r, args.Error(3)
}

func (m *RepositoryMock) FailCheckoutPayment(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *RepositoryMock) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *RepositoryMock) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*models.Payment, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*models.Payment)
	return list, args.Error(1)
}

func (m *RepositoryMock) SumCompletedPayments(ctx context.Context, since *time.Time, method string) (float64, int64, error) {
	args := m.Called(ctx, since, method)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

type GatewayClientMock struct {
	mock.Mock
}

func (m *GatewayClientMock) CreateCheckoutSession(ctx context.Context, reqParams paymentgateway.CreateSessionRequest) (*paymentgateway.CreateSessionResponse, error) {
	args := m.Called(ctx, reqParams)
	resp, _ := args.Get(0).(*paymentgateway.CreateSessionResponse)
	return resp, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishReceiptIssued(event rabbitmq.ReceiptIssuedEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type InvalidatorMock struct {
	mock.Mock
}

func (m *InvalidatorMock) InvalidateActiveStatus(memberID int64) {
	m.Called(memberID)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService(repo *RepositoryMock, gw *GatewayClientMock, pub *PublisherMock, inv *InvalidatorMock) *Service {
	cfg := config.PaymentGateway{
		APIKey:        "key",
		WebhookSecret: "secret",
		FrontendURL:   "http://localhost:5173",
		Currency:      "KES",
	}
	return New(repo, gw, pub, inv, cfg, "GF", newNoopLogger())
}

func monthlyPlan() *models.MembershipPlan {
	return &models.MembershipPlan{ID: 1, Name: "Monthly", DurationDays: 30, Price: 3000}
}

func TestRecordCashPayment_Success(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetMember", mock.Anything, int64(5)).Return(&models.Member{ID: 5}, nil).Once()
	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	repo.On("RecordCashPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
		return p.Method == models.PaymentMethodCash && p.Currency == "KES" && p.RecordedBy != nil && *p.RecordedBy == 2
	}), mock.MatchedBy(func(m models.Membership) bool {
		return m.EndDate.Equal(m.StartDate.AddDate(0, 0, 30))
	}), "GF").Return(
		&models.Payment{ID: 10, MemberID: 5, Status: models.PaymentStatusCompleted},
		&models.Membership{ID: 20, MemberID: 5},
		&models.Receipt{ID: 30, PaymentID: 10, ReceiptNumber: "GF-20240101-0001", IssuedAt: time.Now()},
		nil,
	).Once()
	inv.On("InvalidateActiveStatus", int64(5)).Once()
	pub.On("PublishReceiptIssued", mock.MatchedBy(func(e rabbitmq.ReceiptIssuedEvent) bool {
		return e.ReceiptNumber == "GF-20240101-0001" && e.PaymentID == 10
	})).Return(nil).Once()

	p, m, receipt, err := svc.RecordCashPayment(context.Background(), 2, 5, 1, 3000, "", "paid at desk", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID)
	assert.Equal(t, int64(20), m.ID)
	assert.Equal(t, "GF-20240101-0001", receipt.ReceiptNumber)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
	inv.AssertExpectations(t)
}

func TestRecordCashPayment_PublishFailureDoesNotFailPayment(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetMember", mock.Anything, int64(5)).Return(&models.Member{ID: 5}, nil).Once()
	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	repo.On("RecordCashPayment", mock.Anything, mock.Anything, mock.Anything, "GF").Return(
		&models.Payment{ID: 10, MemberID: 5},
		&models.Membership{ID: 20},
		&models.Receipt{ID: 30, PaymentID: 10, ReceiptNumber: "GF-20240101-0001"},
		nil,
	).Once()
	inv.On("InvalidateActiveStatus", int64(5)).Once()
	pub.On("PublishReceiptIssued", mock.Anything).Return(errors.New("broker down")).Once()

	_, _, _, err := svc.RecordCashPayment(context.Background(), 2, 5, 1, 3000, "", "", nil)
	assert.NoError(t, err)
}

func TestCreateCheckout_Success(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetMember", mock.Anything, int64(5)).Return(&models.Member{ID: 5}, nil).Once()
	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	repo.On("CreatePendingPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
		return p.Method == models.PaymentMethodGateway && p.Amount == 3000
	})).Return(int64(10), nil).Once()
	gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r paymentgateway.CreateSessionRequest) bool {
		return r.Metadata["payment_id"] == "10" && r.Metadata["plan_id"] == "1" && r.Amount.Currency == "KES"
	})).Return(&paymentgateway.CreateSessionResponse{
		ID:          "cs_123",
		RedirectURL: "https://gateway.example/pay/cs_123",
	}, nil).Once()
	repo.On("SetCheckoutSessionID", mock.Anything, int64(10), "cs_123").Return(nil).Once()

	redirectURL, sessionID, err := svc.CreateCheckout(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example/pay/cs_123", redirectURL)
	assert.Equal(t, "cs_123", sessionID)
	repo.AssertExpectations(t)
}

func TestCreateCheckout_GatewayFailureMarksPaymentFailed(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetMember", mock.Anything, int64(5)).Return(&models.Member{ID: 5}, nil).Once()
	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	repo.On("CreatePendingPayment", mock.Anything, mock.Anything).Return(int64(10), nil).Once()
	gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("gateway timeout")).Once()
	repo.On("FailPayment", mock.Anything, int64(10)).Return(nil).Once()

	_, _, err := svc.CreateCheckout(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrGateway)
	repo.AssertExpectations(t)
}

func TestCreateCheckout_PlanWithoutPrice(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	free := &models.MembershipPlan{ID: 3, Name: "Trial", DurationDays: 7, Price: 0}
	repo.On("GetMember", mock.Anything, int64(5)).Return(&models.Member{ID: 5}, nil).Once()
	repo.On("GetPlan", mock.Anything, int64(3)).Return(free, nil).Once()

	_, _, err := svc.CreateCheckout(context.Background(), 5, 3)
	assert.ErrorIs(t, err, ErrPlanHasNoPrice)
	repo.AssertNotCalled(t, "CreatePendingPayment", mock.Anything, mock.Anything)
}

func completedEvent(sessionID string) *paymentgateway.WebhookEvent {
	e := &paymentgateway.WebhookEvent{Event: paymentgateway.EventCheckoutCompleted}
	e.Object.SessionID = sessionID
	e.Object.PaymentID = "gw_pay_1"
	e.Object.Metadata = map[string]string{
		"payment_id": "10",
		"member_id":  "5",
		"plan_id":    "1",
	}
	return e
}

func TestHandleGatewayEvent_CompletedActivatesMembership(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	repo.On("CompleteCheckoutPayment", mock.Anything, "cs_123", "gw_pay_1", int64(1), 30, "GF").Return(
		&models.Payment{ID: 10, MemberID: 5, Status: models.PaymentStatusCompleted},
		&models.Membership{ID: 20, MemberID: 5},
		&models.Receipt{ID: 30, PaymentID: 10, ReceiptNumber: "GF-20240101-0002"},
		nil,
	).Once()
	inv.On("InvalidateActiveStatus", int64(5)).Once()
	pub.On("PublishReceiptIssued", mock.Anything).Return(nil).Once()

	err := svc.HandleGatewayEvent(context.Background(), completedEvent("cs_123"))
	require.NoError(t, err)
	repo.AssertExpectations(t)
	inv.AssertExpectations(t)
}

func TestHandleGatewayEvent_DuplicateDeliveryIsNoop(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	// Платеж уже не pending: хранилище сообщает об этом нулевым результатом.
	repo.On("CompleteCheckoutPayment", mock.Anything, "cs_123", "gw_pay_1", int64(1), 30, "GF").
		Return(nil, nil, nil, nil).Once()

	err := svc.HandleGatewayEvent(context.Background(), completedEvent("cs_123"))
	require.NoError(t, err)
	pub.AssertNotCalled(t, "PublishReceiptIssued", mock.Anything)
	inv.AssertNotCalled(t, "InvalidateActiveStatus", mock.Anything)
}

func TestHandleGatewayEvent_UnknownSessionIgnored(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("GetPlan", mock.Anything, int64(1)).Return(monthlyPlan(), nil).Once()
	repo.On("CompleteCheckoutPayment", mock.Anything, "cs_alien", "gw_pay_1", int64(1), 30, "GF").
		Return(nil, nil, nil, repository.ErrNotFound).Once()

	err := svc.HandleGatewayEvent(context.Background(), completedEvent("cs_alien"))
	assert.NoError(t, err)
}

func TestHandleGatewayEvent_EventWithoutMetadataIgnored(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	e := &paymentgateway.WebhookEvent{Event: paymentgateway.EventCheckoutCompleted}
	e.Object.SessionID = "cs_foreign"

	err := svc.HandleGatewayEvent(context.Background(), e)
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "CompleteCheckoutPayment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleGatewayEvent_ExpiredFailsPendingPayment(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("FailCheckoutPayment", mock.Anything, "cs_123").Return(nil).Once()

	e := &paymentgateway.WebhookEvent{Event: paymentgateway.EventCheckoutExpired}
	e.Object.SessionID = "cs_123"

	err := svc.HandleGatewayEvent(context.Background(), e)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestHandleGatewayEvent_UnknownEventIgnored(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	e := &paymentgateway.WebhookEvent{Event: "payment.refund.created"}
	err := svc.HandleGatewayEvent(context.Background(), e)
	assert.NoError(t, err)
}

func TestRevenue_AggregatesPeriodsAndMethods(t *testing.T) {
	repo := new(RepositoryMock)
	gw := new(GatewayClientMock)
	pub := new(PublisherMock)
	inv := new(InvalidatorMock)
	svc := newTestService(repo, gw, pub, inv)

	repo.On("SumCompletedPayments", mock.Anything, mock.MatchedBy(func(since *time.Time) bool {
		return since != nil
	}), "").Return(1000.0, int64(4), nil).Times(3)
	repo.On("SumCompletedPayments", mock.Anything, (*time.Time)(nil), "").
		Return(5000.0, int64(12), nil).Once()
	repo.On("SumCompletedPayments", mock.Anything, (*time.Time)(nil), models.PaymentMethodCash).
		Return(2000.0, int64(5), nil).Once()
	repo.On("SumCompletedPayments", mock.Anything, (*time.Time)(nil), models.PaymentMethodGateway).
		Return(2500.0, int64(6), nil).Once()
	repo.On("SumCompletedPayments", mock.Anything, (*time.Time)(nil), models.PaymentMethodMpesa).
		Return(500.0, int64(1), nil).Once()

	stats, err := svc.Revenue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000.0, stats.Revenue["all_time"])
	assert.Equal(t, int64(12), stats.PaymentCounts["all_time"])
	assert.Equal(t, 2000.0, stats.RevenueByMethod[models.PaymentMethodCash])
	assert.Equal(t, 500.0, stats.RevenueByMethod[models.PaymentMethodMpesa])
}
