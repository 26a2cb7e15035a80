// Package models содержит доменную модель участника зала,
// включающую данные учётной записи, хэш пароля, роль и состояние
// блокировки после неудачных попыток входа.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Роли участников. Администратор неявно проходит любую проверку роли.
const (
	RoleAdmin   = "admin"
	RoleTrainer = "trainer"
	RoleMember  = "member"
)

// Member представляет зарегистрированного участника зала.
type Member struct {
	ID                  int64      // Уникальный идентификатор участника
	Username            string     // Имя пользователя (уникальное)
	Email               string     // Электронная почта (уникальная)
	PasswordHash        string     // Хэш пароля участника
	FirstName           string     // Имя
	LastName            string     // Фамилия
	Phone               string     // Телефон
	Role                string     // Роль: admin, trainer или member
	FailedLoginAttempts int        // Счетчик неудачных попыток входа подряд
	LockedUntil         *time.Time // Момент окончания блокировки, nil — не заблокирован
	ResetToken          *string    // Токен сброса пароля
	ResetTokenExpiry    *time.Time // Срок действия токена сброса
	CreatedAt           time.Time
}

// HasRole проверяет, удовлетворяет ли участник требуемой роли.
// Администратор проходит любую проверку.
func (m *Member) HasRole(required string) bool {
	if m.Role == RoleAdmin {
		return true
	}
	return m.Role == required
}

// IsLocked сообщает, заблокирована ли учетная запись на момент now.
// Истечение блокировки оценивается лениво, фонового снятия нет.
func (m *Member) IsLocked(now time.Time) bool {
	if m.LockedUntil == nil {
		return false
	}
	return now.UTC().Before(m.LockedUntil.UTC())
}
