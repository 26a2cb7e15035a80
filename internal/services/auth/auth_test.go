package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/config"
	"github.com/kenshar/gymflow/internal/lib/jwt"
	"github.com/kenshar/gymflow/internal/lib/password"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

type MemberRepositoryMock struct {
	mock.Mock
}

func (m *MemberRepositoryMock) CreateMember(ctx context.Context, member models.Member) (int64, error) {
	args := m.Called(ctx, member)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MemberRepositoryMock) GetMemberByUsername(ctx context.Context, username string) (*models.Member, error) {
	args := m.Called(ctx, username)
	member, _ := args.Get(0).(*models.Member)
	return member, args.Error(1)
}

func (m *MemberRepositoryMock) GetMember(ctx context.Context, memberID int64) (*models.Member, error) {
	args := m.Called(ctx, memberID)
	member, _ := args.Get(0).(*models.Member)
	return member, args.Error(1)
}

func (m *MemberRepositoryMock) RegisterFailedLogin(ctx context.Context, memberID int64, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
	args := m.Called(ctx, memberID, threshold, lockDuration)
	lockedUntil, _ := args.Get(1).(*time.Time)
	return args.Int(0), lockedUntil, args.Error(2)
}

func (m *MemberRepositoryMock) ResetFailedLogins(ctx context.Context, memberID int64) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *MemberRepositoryMock) UpdateMemberRole(ctx context.Context, memberID int64, role string) error {
	args := m.Called(ctx, memberID, role)
	return args.Error(0)
}

func (m *MemberRepositoryMock) RevokeToken(ctx context.Context, token string, memberID int64, expiresAt time.Time) error {
	args := m.Called(ctx, token, memberID, expiresAt)
	return args.Error(0)
}

func (m *MemberRepositoryMock) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService(repo *MemberRepositoryMock) *AuthService {
	maker := jwt.NewJWTMaker("test-secret", 30*time.Minute)
	lockout := config.Lockout{MaxFailedAttempts: 5, LockoutDuration: 30 * time.Minute}
	return New(repo, maker, lockout, newNoopLogger())
}

func testMember(t *testing.T, rawPassword string) *models.Member {
	t.Helper()
	hash, err := password.GetHash(rawPassword)
	require.NoError(t, err)
	return &models.Member{
		ID:           7,
		Username:     "jdoe",
		PasswordHash: hash,
		Role:         models.RoleMember,
	}
}

func TestLogin_Success(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)
	member := testMember(t, "secret123")

	repo.On("GetMemberByUsername", mock.Anything, "jdoe").Return(member, nil).Once()

	token, got, err := svc.Login(context.Background(), "jdoe", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, member.ID, got.ID)
	// Счетчик нулевой, сброс не нужен
	repo.AssertNotCalled(t, "ResetFailedLogins", mock.Anything, mock.Anything)
}

func TestLogin_SuccessResetsFailedAttempts(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)
	member := testMember(t, "secret123")
	member.FailedLoginAttempts = 3

	repo.On("GetMemberByUsername", mock.Anything, "jdoe").Return(member, nil).Once()
	repo.On("ResetFailedLogins", mock.Anything, member.ID).Return(nil).Once()

	_, got, err := svc.Login(context.Background(), "jdoe", "secret123")
	require.NoError(t, err)
	assert.Equal(t, 0, got.FailedLoginAttempts)
	repo.AssertExpectations(t)
}

func TestLogin_WrongPasswordRegistersFailure(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)
	member := testMember(t, "secret123")

	repo.On("GetMemberByUsername", mock.Anything, "jdoe").Return(member, nil).Once()
	repo.On("RegisterFailedLogin", mock.Anything, member.ID, 5, 30*time.Minute).
		Return(1, nil, nil).Once()

	_, _, err := svc.Login(context.Background(), "jdoe", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	repo.AssertExpectations(t)
}

func TestLogin_LockedAccountRefusedWithoutCounting(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)
	member := testMember(t, "secret123")
	lockedUntil := time.Now().Add(10 * time.Minute)
	member.LockedUntil = &lockedUntil
	member.FailedLoginAttempts = 5

	repo.On("GetMemberByUsername", mock.Anything, "jdoe").Return(member, nil).Once()

	// Даже правильный пароль не проходит и не трогает счетчик.
	_, _, err := svc.Login(context.Background(), "jdoe", "secret123")
	assert.ErrorIs(t, err, ErrAccountLocked)
	repo.AssertNotCalled(t, "RegisterFailedLogin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_ExpiredLockAllowsLogin(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)
	member := testMember(t, "secret123")
	lockedUntil := time.Now().Add(-time.Minute)
	member.LockedUntil = &lockedUntil
	member.FailedLoginAttempts = 5

	repo.On("GetMemberByUsername", mock.Anything, "jdoe").Return(member, nil).Once()
	repo.On("ResetFailedLogins", mock.Anything, member.ID).Return(nil).Once()

	token, _, err := svc.Login(context.Background(), "jdoe", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	repo.AssertExpectations(t)
}

func TestLogin_UnknownUsername(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	repo.On("GetMemberByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound).Once()

	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	repo.On("CreateMember", mock.Anything, mock.Anything).
		Return(int64(0), repository.ErrAlreadyExists).Once()

	_, _, err := svc.Register(context.Background(), "jdoe", "j@d.oe", "secret123", "John", "Doe")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)
	member := testMember(t, "secret123")

	maker := jwt.NewJWTMaker("test-secret", 30*time.Minute)
	token, err := maker.GenerateToken(member.ID, member.Role)
	require.NoError(t, err)

	repo.On("IsTokenRevoked", mock.Anything, token).Return(false, nil).Once()
	repo.On("GetMember", mock.Anything, member.ID).Return(member, nil).Once()

	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, member.ID, got.ID)
}

func TestAuthenticate_RevokedTokenRejectedBeforeParsing(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	// Проверка отзыва идет до разбора подписи: даже некорректная строка
	// с пометкой revoked отклоняется именно как отозванная.
	repo.On("IsTokenRevoked", mock.Anything, "revoked-token").Return(true, nil).Once()

	_, err := svc.Authenticate(context.Background(), "revoked-token")
	assert.ErrorIs(t, err, ErrTokenRevoked)
	repo.AssertNotCalled(t, "GetMember", mock.Anything, mock.Anything)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	repo.On("IsTokenRevoked", mock.Anything, "garbage").Return(false, nil).Once()

	_, err := svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesTokenWithClaimExpiry(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	maker := jwt.NewJWTMaker("test-secret", 30*time.Minute)
	token, err := maker.GenerateToken(7, models.RoleMember)
	require.NoError(t, err)

	repo.On("RevokeToken", mock.Anything, token, int64(7), mock.MatchedBy(func(expiresAt time.Time) bool {
		return time.Until(expiresAt) > 29*time.Minute
	})).Return(nil).Once()

	require.NoError(t, svc.Logout(context.Background(), token))
	repo.AssertExpectations(t)
}

func TestRefresh_RevokedTokenNotRefreshed(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	maker := jwt.NewJWTMaker("test-secret", 30*time.Minute)
	token, err := maker.GenerateToken(7, models.RoleMember)
	require.NoError(t, err)

	repo.On("IsTokenRevoked", mock.Anything, token).Return(true, nil).Once()

	_, err = svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestUpdateRole_SelfChangeForbidden(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	err := svc.UpdateRole(context.Background(), 7, 7, models.RoleTrainer)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateMemberRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateRole_UnknownRole(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	err := svc.UpdateRole(context.Background(), 1, 7, "superuser")
	assert.Error(t, err)
}

func TestUnlockAccount_NotFound(t *testing.T) {
	repo := new(MemberRepositoryMock)
	svc := newTestService(repo)

	repo.On("ResetFailedLogins", mock.Anything, int64(99)).Return(repository.ErrNotFound).Once()

	err := svc.UnlockAccount(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
