// Package auth содержит логику бизнес-уровня для регистрации, аутентификации
// и управления сессионными токенами, включая учет неудачных попыток входа
// и временную блокировку учетной записи.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kenshar/gymflow/internal/config"
	"github.com/kenshar/gymflow/internal/lib/jwt"
	"github.com/kenshar/gymflow/internal/lib/password"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Ошибки аутентификации. Обработчики сопоставляют их с HTTP-статусами.
var (
	// ErrInvalidCredentials неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked учетная запись временно заблокирована.
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrTokenRevoked токен был отозван (logout).
	ErrTokenRevoked = errors.New("token has been revoked")
	// ErrInvalidToken токен не прошел проверку подписи или истек.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrAlreadyExists участник с таким username или email уже есть.
	ErrAlreadyExists = errors.New("member already exists")
	// ErrNotFound участник не найден.
	ErrNotFound = errors.New("member not found")
)

// MemberRepository описывает контракт для работы с участниками и токенами в базе данных.
type MemberRepository interface {
	// CreateMember сохраняет нового участника и возвращает его ID.
	CreateMember(ctx context.Context, member models.Member) (int64, error)
	// GetMemberByUsername возвращает участника по имени или ошибку, если не найден.
	GetMemberByUsername(ctx context.Context, username string) (*models.Member, error)
	// GetMember возвращает участника по ID.
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
	// RegisterFailedLogin атомарно учитывает неудачную попытку входа.
	RegisterFailedLogin(ctx context.Context, memberID int64, threshold int, lockDuration time.Duration) (int, *time.Time, error)
	// ResetFailedLogins сбрасывает счетчик попыток и блокировку.
	ResetFailedLogins(ctx context.Context, memberID int64) error
	// UpdateMemberRole обновляет роль участника.
	UpdateMemberRole(ctx context.Context, memberID int64, role string) error
	// RevokeToken помещает токен в список отозванных.
	RevokeToken(ctx context.Context, token string, memberID int64, expiresAt time.Time) error
	// IsTokenRevoked проверяет токен по списку отозванных.
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
}

// AuthService отвечает за регистрацию, вход, выход и проверку JWT.
type AuthService struct {
	members  MemberRepository
	jwtMaker jwt.Maker
	lockout  config.Lockout
	log      *slog.Logger
}

// New создает новый экземпляр AuthService.
func New(members MemberRepository, jwtMaker jwt.Maker, lockout config.Lockout, log *slog.Logger) *AuthService {
	return &AuthService{
		members:  members,
		jwtMaker: jwtMaker,
		lockout:  lockout,
		log:      log,
	}
}

// Register создает нового участника с хэшированием пароля и дефолтной ролью "member".
// Возвращает ID участника и свежий токен доступа.
func (s *AuthService) Register(ctx context.Context, username, email, rawPassword, firstName, lastName string) (int64, string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return 0, "", err
	}
	member := models.Member{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleMember, // дефолтная роль при регистрации
	}
	id, err := s.members.CreateMember(ctx, member)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, "", ErrAlreadyExists
		}
		return 0, "", err
	}
	token, err := s.jwtMaker.GenerateToken(id, member.Role)
	if err != nil {
		return 0, "", err
	}
	return id, token, nil
}

// Login проверяет пароль участника и генерирует JWT.
//
// Порядок проверок фиксированный: сначала состояние блокировки, потом пароль.
// Попытка входа в заблокированную учетную запись отклоняется независимо от
// правильности пароля и не увеличивает счетчик — повторные попытки не
// отодвигают момент разблокировки. Неудачная попытка фиксируется в базе,
// даже если сам запрос завершается ошибкой.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, *models.Member, error) {
	member, err := s.members.GetMemberByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if member.IsLocked(time.Now()) {
		return "", nil, ErrAccountLocked
	}

	if !password.CompareHash(member.PasswordHash, rawPassword) {
		attempts, lockedUntil, ferr := s.members.RegisterFailedLogin(ctx,
			member.ID, s.lockout.MaxFailedAttempts, s.lockout.LockoutDuration)
		if ferr != nil {
			s.log.Error("failed to register failed login", sl.Err(ferr))
		} else if lockedUntil != nil {
			s.log.Warn("account locked after repeated failures",
				slog.Int64("member_id", member.ID),
				slog.Int("attempts", attempts),
				slog.Time("locked_until", *lockedUntil))
		}
		return "", nil, ErrInvalidCredentials
	}

	if member.FailedLoginAttempts > 0 || member.LockedUntil != nil {
		if err = s.members.ResetFailedLogins(ctx, member.ID); err != nil {
			return "", nil, err
		}
		member.FailedLoginAttempts = 0
		member.LockedUntil = nil
	}

	token, err := s.jwtMaker.GenerateToken(member.ID, member.Role)
	if err != nil {
		return "", nil, err
	}
	return token, member, nil
}

// Authenticate проверяет токен и возвращает участника.
//
// Порядок проверки: сначала список отозванных, потом подпись и срок
// действия, потом сам участник. Отозванный, но криптографически валидный
// токен отклоняется до разбора подписи.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Member, error) {
	revoked, err := s.members.IsTokenRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	memberID, err := claims.MemberID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return member, nil
}

// Logout отзывает токен до его естественного истечения.
// Срок хранения записи копируется из exp claim самого токена.
// Повторный logout с тем же токеном — no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return ErrInvalidToken
	}
	memberID, err := claims.MemberID()
	if err != nil {
		return ErrInvalidToken
	}
	return s.members.RevokeToken(ctx, token, memberID, claims.ExpiresAt.Time)
}

// Refresh выпускает новый токен по еще действующему.
// Отозванный или истекший токен продлить нельзя.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	member, err := s.Authenticate(ctx, token)
	if err != nil {
		return "", err
	}
	return s.jwtMaker.GenerateToken(member.ID, member.Role)
}

// UnlockAccount явная разблокировка учетной записи администратором:
// снимает блокировку и сбрасывает счетчик независимо от прошедшего времени.
func (s *AuthService) UnlockAccount(ctx context.Context, memberID int64) error {
	err := s.members.ResetFailedLogins(ctx, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// UpdateRole меняет роль участника. Администратор не может изменить свою роль.
func (s *AuthService) UpdateRole(ctx context.Context, adminID, memberID int64, role string) error {
	if adminID == memberID {
		return errors.New("cannot change your own role")
	}
	if role != models.RoleAdmin && role != models.RoleTrainer && role != models.RoleMember {
		return errors.New("unknown role: " + role)
	}
	err := s.members.UpdateMemberRole(ctx, memberID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
