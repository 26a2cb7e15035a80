package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kenshar/gymflow/internal/models"
)

// GetOpenAttendance возвращает незавершенное посещение участника,
// либо nil, если участник не в зале.
func (s *Storage) GetOpenAttendance(ctx context.Context, memberID int64) (*models.Attendance, error) {
	const op = "storage.GetOpenAttendance"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, member_id, check_in_time, check_out_time, notes
			  FROM attendances
			  WHERE member_id = $1 AND check_out_time IS NULL`
	a, err := scanAttendance(s.DB.QueryRowContext(ctx, query, memberID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// CreateCheckIn сохраняет отметку о приходе участника.
func (s *Storage) CreateCheckIn(ctx context.Context, memberID int64, notes string) (*models.Attendance, error) {
	const op = "storage.CreateCheckIn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	a := &models.Attendance{MemberID: memberID, Notes: notes}
	query := `INSERT INTO attendances (member_id, check_in_time, notes)
			  VALUES ($1, NOW(), $2)
			  RETURNING id, check_in_time`
	if err := s.DB.QueryRowContext(ctx, query, memberID, notes).
		Scan(&a.ID, &a.CheckInTime); err != nil {
		return nil, translateError(op, err)
	}
	a.CheckInTime = a.CheckInTime.UTC()
	return a, nil
}

// CloseAttendance проставляет время ухода для незавершенного посещения.
func (s *Storage) CloseAttendance(ctx context.Context, attendanceID int64, checkOut time.Time) error {
	const op = "storage.CloseAttendance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE attendances
			  SET check_out_time = $1
			  WHERE id = $2 AND check_out_time IS NULL`
	res, err := s.DB.ExecContext(ctx, query, checkOut, attendanceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListAttendanceByMember возвращает посещения участника, свежие первыми.
func (s *Storage) ListAttendanceByMember(ctx context.Context, memberID int64) ([]*models.Attendance, error) {
	const op = "storage.ListAttendanceByMember"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, member_id, check_in_time, check_out_time, notes
			  FROM attendances
			  WHERE member_id = $1
			  ORDER BY check_in_time DESC`
	rows, err := s.DB.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanAttendance(scan func(dest ...any) error) (*models.Attendance, error) {
	a := &models.Attendance{}
	var checkOut sql.NullTime
	var notes sql.NullString
	if err := scan(&a.ID, &a.MemberID, &a.CheckInTime, &checkOut, &notes); err != nil {
		return nil, err
	}
	a.CheckInTime = a.CheckInTime.UTC()
	if checkOut.Valid {
		t := checkOut.Time.UTC()
		a.CheckOutTime = &t
	}
	a.Notes = notes.String
	return a, nil
}
