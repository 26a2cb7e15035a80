package repository

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken добавляет токен в список отозванных. Вставка идемпотентна:
// повторный отзыв того же токена — no-op за счет ON CONFLICT DO NOTHING.
func (s *Storage) RevokeToken(ctx context.Context, token string, memberID int64, expiresAt time.Time) error {
	const op = "storage.RevokeToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO revoked_tokens (token, member_id, expires_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (token) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, token, memberID, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsTokenRevoked проверяет, отозван ли токен. Поиск по уникальному
// индексу на строке токена. Записи с истекшим expires_at остаются в
// таблице: такой токен и так отвергнет проверка срока действия,
// поэтому активной чистки для корректности не требуется.
func (s *Storage) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	const op = "storage.IsTokenRevoked"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`
	var revoked bool
	if err := s.DB.QueryRowContext(ctx, query, token).Scan(&revoked); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return revoked, nil
}
