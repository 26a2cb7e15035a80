package models

import "time"

// WorkoutLog представляет тренировку участника: дату, заметки
// и список выполненных упражнений.
type WorkoutLog struct {
	ID          int64             // Уникальный идентификатор тренировки
	MemberID    int64             // Участник
	WorkoutDate time.Time         // Дата тренировки
	Notes       string            // Заметки
	Exercises   []WorkoutExercise // Упражнения тренировки
	CreatedAt   time.Time         // Время создания записи
}

// WorkoutExercise представляет одно упражнение в тренировке.
type WorkoutExercise struct {
	ID           int64    // Уникальный идентификатор упражнения
	WorkoutLogID int64    // Тренировка
	ExerciseName string   // Название упражнения
	Sets         int      // Количество подходов
	Reps         int      // Количество повторений
	Weight       *float64 // Рабочий вес в кг, nil — без веса
	Notes        string   // Заметки
}
