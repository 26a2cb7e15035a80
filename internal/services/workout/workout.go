// Package workout содержит логику дневника тренировок: запись тренировки
// с упражнениями, чтение, правку и удаление.
package workout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Ошибки уровня сервиса тренировок.
var (
	// ErrWorkoutNotFound тренировка не найдена.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrMemberNotFound участник не найден.
	ErrMemberNotFound = errors.New("member not found")
	// ErrNoExercises тренировка должна содержать хотя бы одно упражнение.
	ErrNoExercises = errors.New("workout must contain at least one exercise")
)

// Repository определяет методы хранилища для дневника тренировок.
type Repository interface {
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
	CreateWorkout(ctx context.Context, w models.WorkoutLog) (*models.WorkoutLog, error)
	GetWorkout(ctx context.Context, workoutID int64) (*models.WorkoutLog, error)
	ListWorkoutsByMember(ctx context.Context, memberID int64) ([]*models.WorkoutLog, error)
	UpdateWorkout(ctx context.Context, w models.WorkoutLog, replaceExercises bool) error
	DeleteWorkout(ctx context.Context, workoutID int64) error
	AddWorkoutExercise(ctx context.Context, workoutID int64, e models.WorkoutExercise) (*models.WorkoutExercise, error)
}

// Service реализует дневник тренировок.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Log записывает тренировку участника. Упражнений должно быть хотя бы одно;
// дата тренировки по умолчанию — текущий момент UTC.
func (s *Service) Log(ctx context.Context, memberID int64, workoutDate *time.Time, notes string, exercises []models.WorkoutExercise) (*models.WorkoutLog, error) {
	if len(exercises) == 0 {
		return nil, ErrNoExercises
	}
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	date := time.Now().UTC()
	if workoutDate != nil {
		date = workoutDate.UTC()
	}
	w, err := s.repo.CreateWorkout(ctx, models.WorkoutLog{
		MemberID:    memberID,
		WorkoutDate: date,
		Notes:       notes,
		Exercises:   exercises,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("workout logged",
		slog.Int64("member_id", memberID),
		slog.Int64("workout_id", w.ID),
		slog.Int("exercises", len(w.Exercises)))
	return w, nil
}

// Get возвращает тренировку по ID вместе с упражнениями.
func (s *Service) Get(ctx context.Context, workoutID int64) (*models.WorkoutLog, error) {
	w, err := s.repo.GetWorkout(ctx, workoutID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkoutNotFound
	}
	return w, err
}

// List возвращает тренировки участника, свежие первыми.
func (s *Service) List(ctx context.Context, memberID int64) ([]*models.WorkoutLog, error) {
	return s.repo.ListWorkoutsByMember(ctx, memberID)
}

// Update правит дату и заметки тренировки. Если exercises не nil,
// старый список упражнений целиком заменяется новым.
func (s *Service) Update(ctx context.Context, workoutID int64, workoutDate *time.Time, notes *string, exercises []models.WorkoutExercise) (*models.WorkoutLog, error) {
	w, err := s.repo.GetWorkout(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}

	if workoutDate != nil {
		w.WorkoutDate = workoutDate.UTC()
	}
	if notes != nil {
		w.Notes = *notes
	}
	replace := exercises != nil
	if replace {
		if len(exercises) == 0 {
			return nil, ErrNoExercises
		}
		w.Exercises = exercises
	}

	if err = s.repo.UpdateWorkout(ctx, *w, replace); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}

	s.log.Info("workout updated", slog.Int64("workout_id", workoutID))
	return s.repo.GetWorkout(ctx, workoutID)
}

// Delete удаляет тренировку вместе с упражнениями.
func (s *Service) Delete(ctx context.Context, workoutID int64) error {
	err := s.repo.DeleteWorkout(ctx, workoutID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	if err == nil {
		s.log.Info("workout deleted", slog.Int64("workout_id", workoutID))
	}
	return err
}

// AddExercise добавляет одно упражнение к существующей тренировке.
func (s *Service) AddExercise(ctx context.Context, workoutID int64, e models.WorkoutExercise) (*models.WorkoutExercise, error) {
	added, err := s.repo.AddWorkoutExercise(ctx, workoutID, e)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	s.log.Info("exercise added",
		slog.Int64("workout_id", workoutID),
		slog.String("exercise", added.ExerciseName))
	return added, nil
}
