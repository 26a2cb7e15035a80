package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kenshar/gymflow/internal/models"
)

// DashboardStats сводные счетчики для панели администратора.
type DashboardStats struct {
	TotalMembers           int64 `json:"total_members"`
	TotalActiveMemberships int64 `json:"total_active_memberships"`
	TotalCheckIns          int64 `json:"total_check_ins"`
}

// GetDashboardStats собирает сводную статистику по залу.
func (s *Storage) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	const op = "storage.GetDashboardStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	stats := &DashboardStats{}
	query := `SELECT
			      (SELECT COUNT(*) FROM members),
			      (SELECT COUNT(*) FROM memberships WHERE end_date > NOW()),
			      (SELECT COUNT(*) FROM attendances)`
	if err := s.DB.QueryRowContext(ctx, query).
		Scan(&stats.TotalMembers, &stats.TotalActiveMemberships, &stats.TotalCheckIns); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// SumCompletedPayments возвращает сумму и количество завершенных платежей.
// since == nil — за все время, method == "" — по всем способам оплаты.
func (s *Storage) SumCompletedPayments(ctx context.Context, since *time.Time, method string) (float64, int64, error) {
	const op = "storage.SumCompletedPayments"
	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(SUM(amount), 0), COUNT(*)
			  FROM payments
			  WHERE status = $1
			    AND ($2::timestamptz IS NULL OR created_at >= $2)
			    AND ($3 = '' OR method = $3)`
	var total float64
	var count int64
	if err := s.DB.QueryRowContext(ctx, query,
		models.PaymentStatusCompleted, since, method).Scan(&total, &count); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, count, nil
}
