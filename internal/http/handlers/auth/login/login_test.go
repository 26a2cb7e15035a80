package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, username, rawPassword string) (string, *models.Member, error) {
	args := m.Called(ctx, username, rawPassword)
	member, _ := args.Get(1).(*models.Member)
	return args.String(0), member, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	member := &models.Member{ID: 7, Username: "jdoe", Role: models.RoleMember}

	tests := []struct {
		name           string
		requestBody    any
		mockToken      string
		mockMember     *models.Member
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:           "valid login",
			requestBody:    Request{Username: "jdoe", Password: "secret123"},
			mockToken:      "tok",
			mockMember:     member,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name:           "validation error - missing password",
			requestBody:    Request{Username: "jdoe"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
			wantError:      "field Password is a required field",
		},
		{
			name:           "invalid credentials",
			requestBody:    Request{Username: "jdoe", Password: "wrongpass"},
			mockErr:        auth.ErrInvalidCredentials,
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
			wantError:      "invalid credentials",
		},
		{
			name:           "locked account",
			requestBody:    Request{Username: "jdoe", Password: "secret123"},
			mockErr:        auth.ErrAccountLocked,
			wantStatusCode: http.StatusLocked,
			wantStatus:     "Error",
			wantError:      "account is temporarily locked, try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := new(AuthServiceMock)
			handler := New(newNoopLogger(), svcMock)

			if tt.mockToken != "" || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				svcMock.On("Login", mock.Anything, req.Username, req.Password).
					Return(tt.mockToken, tt.mockMember, tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
			}
			if tt.wantStatus == "OK" {
				data := resp["data"].(map[string]any)
				assert.Equal(t, "tok", data["token"])
				assert.Equal(t, "jdoe", data["username"])
				assert.Equal(t, models.RoleMember, data["role"])
			}
			svcMock.AssertExpectations(t)
		})
	}
}
