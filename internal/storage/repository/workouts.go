package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kenshar/gymflow/internal/models"
)

// CreateWorkout сохраняет тренировку вместе с упражнениями в одной транзакции.
func (s *Storage) CreateWorkout(ctx context.Context, w models.WorkoutLog) (*models.WorkoutLog, error) {
	const op = "storage.CreateWorkout"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO workout_logs (member_id, workout_date, notes)
			  VALUES ($1, $2, $3)
			  RETURNING id, workout_date, created_at`
	if err = tx.QueryRowContext(ctx, query, w.MemberID, w.WorkoutDate, w.Notes).
		Scan(&w.ID, &w.WorkoutDate, &w.CreatedAt); err != nil {
		return nil, translateError(op, err)
	}

	for i := range w.Exercises {
		e := &w.Exercises[i]
		e.WorkoutLogID = w.ID
		if err = insertExercise(ctx, tx, e); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	w.WorkoutDate = w.WorkoutDate.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}

// GetWorkout возвращает тренировку по ID вместе с упражнениями.
func (s *Storage) GetWorkout(ctx context.Context, workoutID int64) (*models.WorkoutLog, error) {
	const op = "storage.GetWorkout"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, member_id, workout_date, notes, created_at
			  FROM workout_logs
			  WHERE id = $1`
	w, err := scanWorkoutLog(s.DB.QueryRowContext(ctx, query, workoutID).Scan)
	if err != nil {
		return nil, translateError(op, err)
	}
	if w.Exercises, err = s.listExercises(ctx, workoutID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// ListWorkoutsByMember возвращает тренировки участника, свежие первыми,
// каждая с полным списком упражнений.
func (s *Storage) ListWorkoutsByMember(ctx context.Context, memberID int64) ([]*models.WorkoutLog, error) {
	const op = "storage.ListWorkoutsByMember"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, member_id, workout_date, notes, created_at
			  FROM workout_logs
			  WHERE member_id = $1
			  ORDER BY workout_date DESC`
	rows, err := s.DB.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.WorkoutLog
	for rows.Next() {
		w, err := scanWorkoutLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, w := range result {
		if w.Exercises, err = s.listExercises(ctx, w.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return result, nil
}

// UpdateWorkout обновляет дату и заметки тренировки. При replaceExercises
// старый список упражнений целиком заменяется новым в той же транзакции.
func (s *Storage) UpdateWorkout(ctx context.Context, w models.WorkoutLog, replaceExercises bool) error {
	const op = "storage.UpdateWorkout"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE workout_logs
			  SET workout_date = $1, notes = $2
			  WHERE id = $3`
	res, err := tx.ExecContext(ctx, query, w.WorkoutDate, w.Notes, w.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if replaceExercises {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM workout_exercises WHERE workout_log_id = $1`, w.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		for i := range w.Exercises {
			e := &w.Exercises[i]
			e.WorkoutLogID = w.ID
			if err = insertExercise(ctx, tx, e); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteWorkout удаляет тренировку; упражнения удаляются каскадно.
func (s *Storage) DeleteWorkout(ctx context.Context, workoutID int64) error {
	const op = "storage.DeleteWorkout"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM workout_logs WHERE id = $1`, workoutID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// AddWorkoutExercise добавляет одно упражнение к существующей тренировке.
func (s *Storage) AddWorkoutExercise(ctx context.Context, workoutID int64, e models.WorkoutExercise) (*models.WorkoutExercise, error) {
	const op = "storage.AddWorkoutExercise"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	e.WorkoutLogID = workoutID
	query := `INSERT INTO workout_exercises (workout_log_id, exercise_name, sets, reps, weight, notes)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		workoutID, e.ExerciseName, e.Sets, e.Reps, e.Weight, e.Notes).Scan(&e.ID); err != nil {
		return nil, translateError(op, err)
	}
	return &e, nil
}

func insertExercise(ctx context.Context, tx *sql.Tx, e *models.WorkoutExercise) error {
	query := `INSERT INTO workout_exercises (workout_log_id, exercise_name, sets, reps, weight, notes)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	return tx.QueryRowContext(ctx, query,
		e.WorkoutLogID, e.ExerciseName, e.Sets, e.Reps, e.Weight, e.Notes).Scan(&e.ID)
}

func (s *Storage) listExercises(ctx context.Context, workoutID int64) ([]models.WorkoutExercise, error) {
	query := `SELECT id, workout_log_id, exercise_name, sets, reps, weight, notes
			  FROM workout_exercises
			  WHERE workout_log_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, workoutID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []models.WorkoutExercise
	for rows.Next() {
		var e models.WorkoutExercise
		var weight sql.NullFloat64
		var notes sql.NullString
		if err = rows.Scan(&e.ID, &e.WorkoutLogID, &e.ExerciseName,
			&e.Sets, &e.Reps, &weight, &notes); err != nil {
			return nil, err
		}
		if weight.Valid {
			v := weight.Float64
			e.Weight = &v
		}
		e.Notes = notes.String
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanWorkoutLog(scan func(dest ...any) error) (*models.WorkoutLog, error) {
	w := &models.WorkoutLog{}
	var notes sql.NullString
	if err := scan(&w.ID, &w.MemberID, &w.WorkoutDate, &notes, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.WorkoutDate = w.WorkoutDate.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	w.Notes = notes.String
	return w, nil
}
