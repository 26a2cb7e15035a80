package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/paymentgateway"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) HandleGatewayEvent(ctx context.Context, event *paymentgateway.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const testSecret = "webhook-secret"

func sign(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func eventBody(t *testing.T, event string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"object": map[string]any{
			"session_id": "cs_123",
			"payment_id": "gw_pay_1",
			"metadata":   map[string]string{"payment_id": "10", "plan_id": "1"},
		},
	})
	require.NoError(t, err)
	return body
}

func TestWebhookHandler_ValidSignature(t *testing.T) {
	svcMock := new(ServiceMock)
	handler := New(newNoopLogger(), svcMock, testSecret)

	body := eventBody(t, paymentgateway.EventCheckoutCompleted)
	svcMock.On("HandleGatewayEvent", mock.Anything, mock.MatchedBy(func(e *paymentgateway.WebhookEvent) bool {
		return e.Event == paymentgateway.EventCheckoutCompleted && e.Object.SessionID == "cs_123"
	})).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("X-Api-Signature", sign(t, body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svcMock.AssertExpectations(t)
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	svcMock := new(ServiceMock)
	handler := New(newNoopLogger(), svcMock, testSecret)

	body := eventBody(t, paymentgateway.EventCheckoutCompleted)
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svcMock.AssertNotCalled(t, "HandleGatewayEvent", mock.Anything, mock.Anything)
}

func TestWebhookHandler_TamperedBody(t *testing.T) {
	svcMock := new(ServiceMock)
	handler := New(newNoopLogger(), svcMock, testSecret)

	body := eventBody(t, paymentgateway.EventCheckoutCompleted)
	signature := sign(t, body)
	tampered := bytes.Replace(body, []byte("cs_123"), []byte("cs_999"), 1)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(tampered))
	req.Header.Set("X-Api-Signature", signature)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svcMock.AssertNotCalled(t, "HandleGatewayEvent", mock.Anything, mock.Anything)
}

func TestWebhookHandler_InvalidJSON(t *testing.T) {
	svcMock := new(ServiceMock)
	handler := New(newNoopLogger(), svcMock, testSecret)

	body := []byte("{not json")
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("X-Api-Signature", sign(t, body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandler_ServiceError(t *testing.T) {
	svcMock := new(ServiceMock)
	handler := New(newNoopLogger(), svcMock, testSecret)

	body := eventBody(t, paymentgateway.EventCheckoutExpired)
	svcMock.On("HandleGatewayEvent", mock.Anything, mock.Anything).
		Return(errors.New("db down")).Once()

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("X-Api-Signature", sign(t, body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	// Шлюз получает 500 и перепошлет событие позже.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
