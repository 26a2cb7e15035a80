package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/services/workout"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Log(ctx context.Context, memberID int64, workoutDate *time.Time, notes string, exercises []models.WorkoutExercise) (*models.WorkoutLog, error) {
	args := m.Called(ctx, memberID, workoutDate, notes, exercises)
	w, _ := args.Get(0).(*models.WorkoutLog)
	return w, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreateWorkout(t *testing.T) {
	member := &models.Member{ID: 5, Username: "jdoe", Role: models.RoleMember}
	admin := &models.Member{ID: 1, Username: "boss", Role: models.RoleAdmin}

	validBody := `{"notes":"push day","exercises":[{"exercise_name":"Bench Press","sets":4,"reps":8,"weight":80}]}`

	tests := []struct {
		name           string
		caller         *models.Member
		body           string
		mockMemberID   int64
		mockWorkout    *models.WorkoutLog
		mockErr        error
		wantStatusCode int
	}{
		{
			name:           "member logs own workout",
			caller:         member,
			body:           validBody,
			mockMemberID:   5,
			mockWorkout:    &models.WorkoutLog{ID: 1, MemberID: 5},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "admin logs workout for another member",
			caller:         admin,
			body:           `{"member_id":5,"exercises":[{"exercise_name":"Squat","sets":5,"reps":5}]}`,
			mockMemberID:   5,
			mockWorkout:    &models.WorkoutLog{ID: 2, MemberID: 5},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "non-admin cannot log for another member",
			caller:         member,
			body:           `{"member_id":9,"exercises":[{"exercise_name":"Squat","sets":5,"reps":5}]}`,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "exercises are required",
			caller:         member,
			body:           `{"notes":"push day"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "empty exercises rejected",
			caller:         member,
			body:           `{"exercises":[]}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "exercise without sets rejected",
			caller:         member,
			body:           `{"exercises":[{"exercise_name":"Bench Press","reps":8}]}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "unknown target member",
			caller:         admin,
			body:           `{"member_id":99,"exercises":[{"exercise_name":"Squat","sets":5,"reps":5}]}`,
			mockMemberID:   99,
			mockErr:        workout.ErrMemberNotFound,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "malformed json",
			caller:         member,
			body:           `{not json`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := new(ServiceMock)
			if tt.mockWorkout != nil || tt.mockErr != nil {
				svcMock.On("Log", mock.Anything, tt.mockMemberID,
					mock.Anything, mock.Anything, mock.Anything).
					Return(tt.mockWorkout, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts",
				bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.MemberKey, tt.caller))
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svcMock).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svcMock.AssertExpectations(t)
		})
	}
}

func TestCreateWorkout_ResponseBody(t *testing.T) {
	weight := 80.0
	svcMock := new(ServiceMock)
	svcMock.On("Log", mock.Anything, int64(5), mock.Anything, "push day", mock.Anything).
		Return(&models.WorkoutLog{
			ID:       1,
			MemberID: 5,
			Notes:    "push day",
			Exercises: []models.WorkoutExercise{
				{ID: 10, WorkoutLogID: 1, ExerciseName: "Bench Press", Sets: 4, Reps: 8, Weight: &weight},
			},
		}, nil).Once()

	body := `{"notes":"push day","exercises":[{"exercise_name":"Bench Press","sets":4,"reps":8,"weight":80}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", bytes.NewBufferString(body))
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.MemberKey,
		&models.Member{ID: 5, Role: models.RoleMember}))
	rec := httptest.NewRecorder()

	New(newNoopLogger(), svcMock).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			WorkoutID int64 `json:"workout_id"`
			Exercises []struct {
				ExerciseName string `json:"exercise_name"`
			} `json:"exercises"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, int64(1), resp.Data.WorkoutID)
	require.Len(t, resp.Data.Exercises, 1)
	assert.Equal(t, "Bench Press", resp.Data.Exercises[0].ExerciseName)
}
