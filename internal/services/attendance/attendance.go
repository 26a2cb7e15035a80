// Package attendance содержит логику учета посещений зала:
// отметки о приходе и уходе с проверкой действующего абонемента.
package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kenshar/gymflow/internal/models"
)

// Ошибки уровня сервиса посещений.
var (
	// ErrNoActiveMembership у участника нет действующего абонемента.
	ErrNoActiveMembership = errors.New("no active membership")
	// ErrAlreadyCheckedIn участник уже отмечен как присутствующий.
	ErrAlreadyCheckedIn = errors.New("already checked in")
	// ErrNotCheckedIn у участника нет открытого посещения.
	ErrNotCheckedIn = errors.New("not checked in")
)

// Repository определяет методы хранилища для посещений.
type Repository interface {
	GetOpenAttendance(ctx context.Context, memberID int64) (*models.Attendance, error)
	CreateCheckIn(ctx context.Context, memberID int64, notes string) (*models.Attendance, error)
	CloseAttendance(ctx context.Context, attendanceID int64, checkOut time.Time) error
	ListAttendanceByMember(ctx context.Context, memberID int64) ([]*models.Attendance, error)
}

// ActiveChecker сообщает, есть ли у участника действующий абонемент.
type ActiveChecker interface {
	IsMemberActive(ctx context.Context, memberID int64) (bool, error)
}

// Service реализует учет посещений.
type Service struct {
	repo    Repository
	checker ActiveChecker
	log     *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, checker ActiveChecker, log *slog.Logger) *Service {
	return &Service{repo: repo, checker: checker, log: log}
}

// CheckIn отмечает приход участника. Требует действующий абонемент
// и отсутствие открытого посещения.
func (s *Service) CheckIn(ctx context.Context, memberID int64, notes string) (*models.Attendance, error) {
	active, err := s.checker.IsMemberActive(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrNoActiveMembership
	}

	open, err := s.repo.GetOpenAttendance(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrAlreadyCheckedIn
	}

	a, err := s.repo.CreateCheckIn(ctx, memberID, notes)
	if err != nil {
		return nil, err
	}
	s.log.Info("member checked in", slog.Int64("member_id", memberID))
	return a, nil
}

// CheckOut закрывает открытое посещение участника.
func (s *Service) CheckOut(ctx context.Context, memberID int64) (*models.Attendance, error) {
	open, err := s.repo.GetOpenAttendance(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, ErrNotCheckedIn
	}

	now := time.Now().UTC()
	if err = s.repo.CloseAttendance(ctx, open.ID, now); err != nil {
		return nil, err
	}
	open.CheckOutTime = &now

	s.log.Info("member checked out",
		slog.Int64("member_id", memberID),
		slog.Int("duration_minutes", open.DurationMinutes()))
	return open, nil
}

// List возвращает историю посещений участника.
func (s *Service) List(ctx context.Context, memberID int64) ([]*models.Attendance, error) {
	return s.repo.ListAttendanceByMember(ctx, memberID)
}
