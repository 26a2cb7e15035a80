// Package models содержит доменные структуры абонементов и тарифных планов.
package models

import "time"

// MembershipPlan представляет тарифный план абонемента.
// Справочные данные: создаются администратором и не изменяются.
type MembershipPlan struct {
	ID           int64   // Уникальный идентификатор плана
	Name         string  // Название плана (уникальное)
	DurationDays int     // Длительность в днях
	Price        float64 // Цена, 0 — план без цены
	Description  string  // Описание
}

// Membership представляет абонемент участника: период действия,
// привязанный к одному участнику и одному тарифному плану.
// У участника может быть несколько абонементов (история).
type Membership struct {
	ID        int64     // Уникальный идентификатор абонемента
	MemberID  int64     // Идентификатор участника
	PlanID    int64     // Идентификатор тарифного плана
	StartDate time.Time // Начало действия
	EndDate   time.Time // Окончание действия: StartDate + DurationDays плана
	CreatedAt time.Time
}

// utcNow возвращает текущее время в UTC. Все сравнения дат в моделях
// идут через эту функцию, чтобы не смешивать часовые пояса.
func utcNow() time.Time {
	return time.Now().UTC()
}

// IsActive сообщает, действует ли абонемент сейчас.
// Значение из хранилища без зоны трактуется как UTC.
func (m *Membership) IsActive() bool {
	return utcNow().Before(m.EndDate.UTC())
}

// IsExpired сообщает, истек ли абонемент.
func (m *Membership) IsExpired() bool {
	return utcNow().After(m.EndDate.UTC())
}

// DaysRemaining возвращает количество полных дней до окончания абонемента.
// Для истекшего абонемента всегда 0, отрицательных значений не бывает.
func (m *Membership) DaysRemaining() int {
	if m.IsExpired() {
		return 0
	}
	return int(m.EndDate.UTC().Sub(utcNow()).Hours() / 24)
}
