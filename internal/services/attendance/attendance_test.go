package attendance

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/models"
)

type RepositoryMock struct {
	mock.Mock
}

func (m *RepositoryMock) GetOpenAttendance(ctx context.Context, memberID int64) (*models.Attendance, error) {
	args := m.Called(ctx, memberID)
	a, _ := args.Get(0).(*models.Attendance)
	return a, args.Error(1)
}

func (m *RepositoryMock) CreateCheckIn(ctx context.Context, memberID int64, notes string) (*models.Attendance, error) {
	args := m.Called(ctx, memberID, notes)
	a, _ := args.Get(0).(*models.Attendance)
	return a, args.Error(1)
}

func (m *RepositoryMock) CloseAttendance(ctx context.Context, attendanceID int64, checkOut time.Time) error {
	args := m.Called(ctx, attendanceID, checkOut)
	return args.Error(0)
}

func (m *RepositoryMock) ListAttendanceByMember(ctx context.Context, memberID int64) ([]*models.Attendance, error) {
	args := m.Called(ctx, memberID)
	list, _ := args.Get(0).([]*models.Attendance)
	return list, args.Error(1)
}

type ActiveCheckerMock struct {
	mock.Mock
}

func (m *ActiveCheckerMock) IsMemberActive(ctx context.Context, memberID int64) (bool, error) {
	args := m.Called(ctx, memberID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCheckIn_Success(t *testing.T) {
	repo := new(RepositoryMock)
	checker := new(ActiveCheckerMock)
	svc := New(repo, checker, newNoopLogger())

	checker.On("IsMemberActive", mock.Anything, int64(5)).Return(true, nil).Once()
	repo.On("GetOpenAttendance", mock.Anything, int64(5)).Return(nil, nil).Once()
	repo.On("CreateCheckIn", mock.Anything, int64(5), "morning session").
		Return(&models.Attendance{ID: 1, MemberID: 5, CheckInTime: time.Now().UTC()}, nil).Once()

	a, err := svc.CheckIn(context.Background(), 5, "morning session")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	repo.AssertExpectations(t)
}

func TestCheckIn_NoActiveMembership(t *testing.T) {
	repo := new(RepositoryMock)
	checker := new(ActiveCheckerMock)
	svc := New(repo, checker, newNoopLogger())

	checker.On("IsMemberActive", mock.Anything, int64(5)).Return(false, nil).Once()

	_, err := svc.CheckIn(context.Background(), 5, "")
	assert.ErrorIs(t, err, ErrNoActiveMembership)
	repo.AssertNotCalled(t, "CreateCheckIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckIn_AlreadyCheckedIn(t *testing.T) {
	repo := new(RepositoryMock)
	checker := new(ActiveCheckerMock)
	svc := New(repo, checker, newNoopLogger())

	checker.On("IsMemberActive", mock.Anything, int64(5)).Return(true, nil).Once()
	repo.On("GetOpenAttendance", mock.Anything, int64(5)).
		Return(&models.Attendance{ID: 1, MemberID: 5}, nil).Once()

	_, err := svc.CheckIn(context.Background(), 5, "")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCheckOut_Success(t *testing.T) {
	repo := new(RepositoryMock)
	checker := new(ActiveCheckerMock)
	svc := New(repo, checker, newNoopLogger())

	open := &models.Attendance{
		ID:          1,
		MemberID:    5,
		CheckInTime: time.Now().UTC().Add(-time.Hour),
	}
	repo.On("GetOpenAttendance", mock.Anything, int64(5)).Return(open, nil).Once()
	repo.On("CloseAttendance", mock.Anything, int64(1), mock.Anything).Return(nil).Once()

	a, err := svc.CheckOut(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, a.CheckOutTime)
	assert.InDelta(t, 60, a.DurationMinutes(), 1)
}

func TestCheckOut_NotCheckedIn(t *testing.T) {
	repo := new(RepositoryMock)
	checker := new(ActiveCheckerMock)
	svc := New(repo, checker, newNoopLogger())

	repo.On("GetOpenAttendance", mock.Anything, int64(5)).Return(nil, nil).Once()

	_, err := svc.CheckOut(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotCheckedIn)
}
