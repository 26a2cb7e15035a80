package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kenshar/gymflow/internal/models"
)

// CreateMember сохраняет нового участника и возвращает его ID.
// Дубликат username или email превращается в ErrAlreadyExists.
func (s *Storage) CreateMember(ctx context.Context, member models.Member) (int64, error) {
	const op = "storage.CreateMember"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO members (username, email, password_hash, first_name, last_name, phone, role)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		member.Username, member.Email, member.PasswordHash, member.FirstName,
		member.LastName, member.Phone, member.Role).Scan(&newID); err != nil {
		return 0, translateError(op, err)
	}
	return newID, nil
}

func scanMember(row *sql.Row) (*models.Member, error) {
	m := &models.Member{}
	var firstName, lastName, phone, resetToken sql.NullString
	var lockedUntil, resetTokenExpiry sql.NullTime
	if err := row.Scan(&m.ID, &m.Username, &m.Email, &m.PasswordHash,
		&firstName, &lastName, &phone, &m.Role,
		&m.FailedLoginAttempts, &lockedUntil,
		&resetToken, &resetTokenExpiry, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.FirstName = firstName.String
	m.LastName = lastName.String
	m.Phone = phone.String
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		m.LockedUntil = &t
	}
	if resetToken.Valid {
		m.ResetToken = &resetToken.String
	}
	if resetTokenExpiry.Valid {
		t := resetTokenExpiry.Time.UTC()
		m.ResetTokenExpiry = &t
	}
	return m, nil
}

const memberColumns = `id, username, email, password_hash, first_name, last_name, phone, role,
			  failed_login_attempts, locked_until, reset_token, reset_token_expiry, created_at`

// GetMemberByUsername возвращает участника по его username.
func (s *Storage) GetMemberByUsername(ctx context.Context, username string) (*models.Member, error) {
	const op = "storage.GetMemberByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + memberColumns + `
			  FROM members
			  WHERE username = $1`
	m, err := scanMember(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, translateError(op, err)
	}
	return m, nil
}

// GetMember возвращает участника по его ID.
func (s *Storage) GetMember(ctx context.Context, memberID int64) (*models.Member, error) {
	const op = "storage.GetMember"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + memberColumns + `
			  FROM members
			  WHERE id = $1`
	m, err := scanMember(s.DB.QueryRowContext(ctx, query, memberID))
	if err != nil {
		return nil, translateError(op, err)
	}
	return m, nil
}

// RegisterFailedLogin атомарно увеличивает счетчик неудачных попыток входа
// и, если достигнут порог, выставляет момент окончания блокировки.
// Инкремент и проверка порога выполняются одним UPDATE, поэтому гонка
// двух параллельных неудачных попыток не теряет ни одной из них.
func (s *Storage) RegisterFailedLogin(ctx context.Context, memberID int64, threshold int, lockDuration time.Duration) (int, *time.Time, error) {
	const op = "storage.RegisterFailedLogin"
	select {
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE members
			  SET failed_login_attempts = failed_login_attempts + 1,
			      locked_until = CASE
			          WHEN failed_login_attempts + 1 >= $2 THEN NOW() + $3::interval
			          ELSE locked_until
			      END
			  WHERE id = $1
			  RETURNING failed_login_attempts, locked_until`
	var attempts int
	var lockedUntil sql.NullTime
	interval := fmt.Sprintf("%d seconds", int(lockDuration.Seconds()))
	if err := s.DB.QueryRowContext(ctx, query, memberID, threshold, interval).
		Scan(&attempts, &lockedUntil); err != nil {
		return 0, nil, translateError(op, err)
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		return attempts, &t, nil
	}
	return attempts, nil, nil
}

// ResetFailedLogins сбрасывает счетчик неудачных попыток и снимает блокировку.
// Используется при успешном входе и при явной разблокировке администратором.
func (s *Storage) ResetFailedLogins(ctx context.Context, memberID int64) error {
	const op = "storage.ResetFailedLogins"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE members
			  SET failed_login_attempts = 0,
			      locked_until = NULL
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, memberID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// UpdateMemberRole обновляет роль участника.
func (s *Storage) UpdateMemberRole(ctx context.Context, memberID int64, role string) error {
	const op = "storage.UpdateMemberRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE members
			  SET role = $1
			  WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, role, memberID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
