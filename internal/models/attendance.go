package models

import "time"

// Attendance представляет посещение зала: отметку о приходе и,
// после завершения, отметку об уходе.
type Attendance struct {
	ID           int64      // Уникальный идентификатор посещения
	MemberID     int64      // Участник
	CheckInTime  time.Time  // Время прихода
	CheckOutTime *time.Time // Время ухода, nil — участник еще в зале
	Notes        string     // Заметки
}

// DurationMinutes возвращает длительность посещения в минутах.
// Для незавершенного посещения возвращает 0.
func (a *Attendance) DurationMinutes() int {
	if a.CheckOutTime == nil {
		return 0
	}
	return int(a.CheckOutTime.Sub(a.CheckInTime).Minutes())
}
