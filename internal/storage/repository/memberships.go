package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kenshar/gymflow/internal/models"
)

// CreatePlan сохраняет новый тарифный план.
// Дубликат имени превращается в ErrAlreadyExists.
func (s *Storage) CreatePlan(ctx context.Context, plan models.MembershipPlan) (int64, error) {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO membership_plans (name, duration_days, price, description)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		plan.Name, plan.DurationDays, plan.Price, plan.Description).Scan(&newID); err != nil {
		return 0, translateError(op, err)
	}
	return newID, nil
}

// GetPlan возвращает тарифный план по ID.
func (s *Storage) GetPlan(ctx context.Context, planID int64) (*models.MembershipPlan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, duration_days, price, description
			  FROM membership_plans
			  WHERE id = $1`
	p := &models.MembershipPlan{}
	if err := s.DB.QueryRowContext(ctx, query, planID).
		Scan(&p.ID, &p.Name, &p.DurationDays, &p.Price, &p.Description); err != nil {
		return nil, translateError(op, err)
	}
	return p, nil
}

// CreateMembership сохраняет новый абонемент и возвращает его ID.
func (s *Storage) CreateMembership(ctx context.Context, m models.Membership) (int64, error) {
	const op = "storage.CreateMembership"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO memberships (member_id, plan_id, start_date, end_date)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		m.MemberID, m.PlanID, m.StartDate, m.EndDate).Scan(&newID); err != nil {
		return 0, translateError(op, err)
	}
	return newID, nil
}

// GetMembership возвращает абонемент по ID.
func (s *Storage) GetMembership(ctx context.Context, membershipID int64) (*models.Membership, error) {
	const op = "storage.GetMembership"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, member_id, plan_id, start_date, end_date, created_at
			  FROM memberships
			  WHERE id = $1`
	m := &models.Membership{}
	if err := s.DB.QueryRowContext(ctx, query, membershipID).
		Scan(&m.ID, &m.MemberID, &m.PlanID, &m.StartDate, &m.EndDate, &m.CreatedAt); err != nil {
		return nil, translateError(op, err)
	}
	m.StartDate = m.StartDate.UTC()
	m.EndDate = m.EndDate.UTC()
	return m, nil
}

// ListMembershipsByMember возвращает все абонементы участника, новые первыми.
func (s *Storage) ListMembershipsByMember(ctx context.Context, memberID int64) ([]*models.Membership, error) {
	const op = "storage.ListMembershipsByMember"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, member_id, plan_id, start_date, end_date, created_at
			  FROM memberships
			  WHERE member_id = $1
			  ORDER BY end_date DESC`
	rows, err := s.DB.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err = rows.Scan(&m.ID, &m.MemberID, &m.PlanID,
			&m.StartDate, &m.EndDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.StartDate = m.StartDate.UTC()
		m.EndDate = m.EndDate.UTC()
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateMembershipTerm обновляет план и дату окончания абонемента при продлении.
func (s *Storage) UpdateMembershipTerm(ctx context.Context, membershipID, planID int64, endDate time.Time) error {
	const op = "storage.UpdateMembershipTerm"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE memberships
			  SET plan_id = $1,
			      end_date = $2
			  WHERE id = $3`
	res, err := s.DB.ExecContext(ctx, query, planID, endDate, membershipID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// HasActiveMembership сообщает, есть ли у участника хотя бы один
// действующий абонемент.
func (s *Storage) HasActiveMembership(ctx context.Context, memberID int64) (bool, error) {
	const op = "storage.HasActiveMembership"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM memberships
			      WHERE member_id = $1 AND end_date > NOW()
			  )`
	var active bool
	if err := s.DB.QueryRowContext(ctx, query, memberID).Scan(&active); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return active, nil
}
