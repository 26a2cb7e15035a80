// Package membership содержит бизнес-логику жизненного цикла абонементов:
// активацию, продление и вычисление статуса, с кешированием статуса
// активности участника.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kenshar/gymflow/internal/models"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// Ошибки уровня сервиса абонементов.
var (
	// ErrPlanNotFound тарифный план не найден.
	ErrPlanNotFound = errors.New("membership plan not found")
	// ErrMembershipNotFound абонемент не найден.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMemberNotFound участник не найден.
	ErrMemberNotFound = errors.New("member not found")
)

// activeCacheTTL время жизни кешированного статуса активности.
const activeCacheTTL = 5 * time.Minute

// Repository определяет методы для работы с абонементами в хранилище.
type Repository interface {
	// GetPlan возвращает тарифный план по ID.
	GetPlan(ctx context.Context, planID int64) (*models.MembershipPlan, error)
	// GetMember возвращает участника по ID.
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
	// CreateMembership сохраняет новый абонемент.
	CreateMembership(ctx context.Context, m models.Membership) (int64, error)
	// GetMembership возвращает абонемент по ID.
	GetMembership(ctx context.Context, membershipID int64) (*models.Membership, error)
	// ListMembershipsByMember возвращает абонементы участника.
	ListMembershipsByMember(ctx context.Context, memberID int64) ([]*models.Membership, error)
	// UpdateMembershipTerm обновляет план и дату окончания при продлении.
	UpdateMembershipTerm(ctx context.Context, membershipID, planID int64, endDate time.Time) error
	// HasActiveMembership сообщает, есть ли действующий абонемент.
	HasActiveMembership(ctx context.Context, memberID int64) (bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует жизненный цикл абонементов.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func activeCacheKey(memberID int64) string {
	return fmt.Sprintf("member_active:%d", memberID)
}

// Activate создает абонемент участнику по тарифному плану.
// Дата окончания всегда start + duration_days плана. Дата начала может быть
// задана явно (в том числе в прошлом или будущем — это решение вызывающего
// кода), по умолчанию берется текущий момент UTC.
func (s *Service) Activate(ctx context.Context, memberID, planID int64, start *time.Time) (*models.Membership, error) {
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	startDate := time.Now().UTC()
	if start != nil {
		startDate = start.UTC()
	}
	m := models.Membership{
		MemberID:  memberID,
		PlanID:    planID,
		StartDate: startDate,
		EndDate:   startDate.AddDate(0, 0, plan.DurationDays),
	}
	m.ID, err = s.repo.CreateMembership(ctx, m)
	if err != nil {
		return nil, err
	}

	s.invalidateActiveStatus(memberID)
	s.log.Info("membership activated",
		slog.Int64("member_id", memberID),
		slog.Int64("plan_id", planID),
		slog.Time("end_date", m.EndDate))
	return &m, nil
}

// Renew продлевает абонемент по тарифному плану.
//
// Ключевое правило: у истекшего абонемента новая дата окончания отсчитывается
// от текущего момента, а не от устаревшей старой даты — иначе продление
// "съедалось" бы прошедшим временем. У действующего абонемента продление
// аддитивное: новая дата = старая дата окончания + длительность плана,
// неиспользованный остаток сохраняется.
func (s *Service) Renew(ctx context.Context, membershipID int64, planID *int64) (*models.Membership, error) {
	m, err := s.repo.GetMembership(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	newPlanID := m.PlanID
	if planID != nil {
		newPlanID = *planID
	}
	plan, err := s.repo.GetPlan(ctx, newPlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	var newEnd time.Time
	if m.IsExpired() {
		newEnd = time.Now().UTC().AddDate(0, 0, plan.DurationDays)
	} else {
		newEnd = m.EndDate.AddDate(0, 0, plan.DurationDays)
	}

	if err = s.repo.UpdateMembershipTerm(ctx, membershipID, newPlanID, newEnd); err != nil {
		return nil, err
	}
	m.PlanID = newPlanID
	m.EndDate = newEnd

	s.invalidateActiveStatus(m.MemberID)
	s.log.Info("membership renewed",
		slog.Int64("membership_id", membershipID),
		slog.Time("new_end_date", newEnd))
	return m, nil
}

// Get возвращает абонемент по ID.
func (s *Service) Get(ctx context.Context, membershipID int64) (*models.Membership, error) {
	m, err := s.repo.GetMembership(ctx, membershipID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMembershipNotFound
	}
	return m, err
}

// List возвращает все абонементы участника.
func (s *Service) List(ctx context.Context, memberID int64) ([]*models.Membership, error) {
	return s.repo.ListMembershipsByMember(ctx, memberID)
}

// GetPlan возвращает тарифный план по ID.
func (s *Service) GetPlan(ctx context.Context, planID int64) (*models.MembershipPlan, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	return plan, err
}

// IsMemberActive сообщает, есть ли у участника действующий абонемент.
// Статус кешируется на несколько минут и инвалидируется при любой записи
// абонемента, источником истины остается база.
func (s *Service) IsMemberActive(ctx context.Context, memberID int64) (bool, error) {
	key := activeCacheKey(memberID)
	var cached bool
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read active status from cache", slog.String("key", key), slog.Any("err", err))
	}
	if found {
		return cached, nil
	}

	active, err := s.repo.HasActiveMembership(ctx, memberID)
	if err != nil {
		return false, err
	}
	if err := s.cache.Set(key, active, activeCacheTTL); err != nil {
		s.log.Warn("failed to cache active status", slog.String("key", key), slog.Any("err", err))
	}
	return active, nil
}

// InvalidateActiveStatus сбрасывает кешированный статус активности участника.
// Вызывается также сервисом платежей после активации абонемента по платежу.
func (s *Service) InvalidateActiveStatus(memberID int64) {
	s.invalidateActiveStatus(memberID)
}

func (s *Service) invalidateActiveStatus(memberID int64) {
	key := activeCacheKey(memberID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate active status cache", slog.String("key", key), slog.Any("err", err))
	}
}
