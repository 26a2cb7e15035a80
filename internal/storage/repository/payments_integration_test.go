//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenshar/gymflow/internal/migrations"
	"github.com/kenshar/gymflow/internal/models"
)

// Запуск: GYMFLOW_TEST_DSN=postgres://... go test -tags=integration ./internal/storage/repository
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv("GYMFLOW_TEST_DSN")
	if dsn == "" {
		t.Skip("GYMFLOW_TEST_DSN is not set")
	}

	s, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DB.Close()
	})
	require.NoError(t, migrations.Run(s.DB, "../../../migrations"))
	return s
}

func seedMemberAndPlan(t *testing.T, s *Storage) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	memberID, err := s.CreateMember(ctx, models.Member{
		Username:     "receipts_" + suffix,
		Email:        "receipts_" + suffix + "@example.com",
		PasswordHash: "x",
		Role:         models.RoleMember,
	})
	require.NoError(t, err)

	planID, err := s.CreatePlan(ctx, models.MembershipPlan{
		Name:         "monthly_" + suffix,
		DurationDays: 30,
		Price:        1500,
	})
	require.NoError(t, err)
	return memberID, planID
}

// Конкурентные кассовые платежи должны получать уникальные номера квитанций:
// нумерация в пределах дня сериализуется advisory-блокировкой.
func TestRecordCashPayment_ConcurrentReceiptNumbers(t *testing.T) {
	s := newTestStorage(t)
	memberID, planID := seedMemberAndPlan(t, s)

	const workers = 10
	start := time.Now().UTC()

	var wg sync.WaitGroup
	receipts := make([]*models.Receipt, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, r, err := s.RecordCashPayment(context.Background(),
				models.Payment{
					MemberID: memberID,
					Amount:   1500,
					Currency: "KES",
					Method:   models.PaymentMethodCash,
				},
				models.Membership{
					MemberID:  memberID,
					PlanID:    planID,
					StartDate: start,
					EndDate:   start.AddDate(0, 0, 30),
				},
				"GF")
			receipts[i] = r
			errs[i] = err
		}(i)
	}
	wg.Wait()

	day := start.Format("20060102")
	seen := make(map[string]bool, workers)
	var sequences []int
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, receipts[i])

		number := receipts[i].ReceiptNumber
		assert.False(t, seen[number], "duplicate receipt number %s", number)
		seen[number] = true

		parts := strings.Split(number, "-")
		require.Len(t, parts, 3, "unexpected receipt number format %s", number)
		assert.Equal(t, "GF", parts[0])
		assert.Equal(t, day, parts[1])

		seq, err := strconv.Atoi(parts[2])
		require.NoError(t, err)
		sequences = append(sequences, seq)
	}

	// Номера образуют непрерывный блок: счетчик за день растет на единицу
	// на каждую квитанцию.
	sort.Ints(sequences)
	for i := 1; i < len(sequences); i++ {
		assert.Equal(t, sequences[i-1]+1, sequences[i],
			fmt.Sprintf("receipt sequence has a gap: %v", sequences))
	}
}

// Повторная доставка вебхука не должна создавать вторую квитанцию:
// завершение уже завершенного платежа — no-op.
func TestCompleteCheckoutPayment_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	memberID, planID := seedMemberAndPlan(t, s)
	ctx := context.Background()

	paymentID, err := s.CreatePendingPayment(ctx, models.Payment{
		MemberID: memberID,
		Amount:   1500,
		Currency: "KES",
		Method:   models.PaymentMethodGateway,
	})
	require.NoError(t, err)

	sessionID := "cs_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	require.NoError(t, s.SetCheckoutSessionID(ctx, paymentID, sessionID))

	first, _, receipt, err := s.CompleteCheckoutPayment(ctx, sessionID, "gw_1", planID, 30, "GF")
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, receipt)
	assert.Equal(t, models.PaymentStatusCompleted, first.Status)

	second, _, secondReceipt, err := s.CompleteCheckoutPayment(ctx, sessionID, "gw_1", planID, 30, "GF")
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Nil(t, secondReceipt)

	stored, err := s.GetReceiptByPayment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptNumber, stored.ReceiptNumber)
}
