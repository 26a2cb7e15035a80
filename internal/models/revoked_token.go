package models

import "time"

// RevokedToken представляет отозванный JWT токен (logout или бан).
// Запись после ExpiresAt логически инертна: токен и так отвергнет
// проверка срока действия, поэтому чистка таблицы — вопрос гигиены
// хранилища, а не корректности.
type RevokedToken struct {
	Token     string    // Строка токена (уникальная)
	MemberID  int64     // Владелец токена
	ExpiresAt time.Time // Срок действия, скопированный из exp claim токена
	RevokedAt time.Time
}
