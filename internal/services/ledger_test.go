package services

import (
	"context"
	"testing"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/cache"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/config"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/database"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

type testServices struct {
	clock       *testClock
	storage     *database.MemoryStore
	ledger      *LedgerService
	orders      *OrderService
	redemptions *RedemptionService
}

func newTestServices(program config.Program, start time.Time) *testServices {
	clock := &testClock{now: start}
	storage := database.NewMemoryStore()

	ledger := NewLedgerService(storage, program, nil)
	ledger.now = clock.Now

	orders := NewOrderService(storage, ledger)
	orders.now = clock.Now

	redemptions := NewRedemptionService(storage, ledger)
	redemptions.now = clock.Now

	return &testServices{
		clock:       clock,
		storage:     storage,
		ledger:      ledger,
		orders:      orders,
		redemptions: redemptions,
	}
}

// programWithoutBonuses отключает бонусы, чтобы в журнале оставались только баллы за заказы.
func programWithoutBonuses() config.Program {
	program := config.DefaultProgram()
	program.Bonuses = config.Bonuses{}
	return program
}

func (s *testServices) createOrder(t *testing.T, id, customerID string, total int64, quantity int) models.Order {
	t.Helper()

	amount := decimal.NewFromInt(total)
	order, err := s.orders.CreateOrder(context.Background(), models.NewOrder{
		ID:           &id,
		CustomerID:   &customerID,
		Total:        &amount,
		ItemQuantity: quantity,
	})
	require.NoError(t, err)

	return order
}

func (s *testServices) advance(t *testing.T, orderID string, target models.OrderStatus) models.Order {
	t.Helper()

	order, err := s.orders.GetOrder(context.Background(), orderID)
	require.NoError(t, err)

	for _, step := range StepsTowards(order.Status, target) {
		order, err = s.orders.TransitionStatus(context.Background(), orderID, step)
		require.NoError(t, err)
	}

	return order
}

func (s *testServices) transactions(t *testing.T, customerID string) []models.PointsTransaction {
	t.Helper()

	transactions, err := s.storage.FindTransactions(context.Background(), customerID)
	require.NoError(t, err)

	return transactions
}

func (s *testServices) orderTransaction(t *testing.T, customerID, orderID string) *models.PointsTransaction {
	t.Helper()

	for _, tr := range s.transactions(t, customerID) {
		if tr.OrderID != nil && *tr.OrderID == orderID && tr.Source == models.SourceOrder {
			found := tr
			return &found
		}
	}

	return nil
}

func TestOrderPointsLifecycle(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	s := newTestServices(programWithoutBonuses(), createdAt)

	order := s.createOrder(t, "o1", "c1", 18000, 3)
	assert.Equal(t, int64(10), order.PointsAwarded)
	assert.Equal(t, models.StatusQuotation, order.Status)

	pending := s.orderTransaction(t, "c1", "o1")
	require.NotNil(t, pending)
	assert.Equal(t, models.KindPending, pending.Kind)
	assert.Equal(t, createdAt, pending.EarnedDate)
	assert.Nil(t, pending.ExpirationDate)

	summary, err := s.ledger.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.Pending)
	assert.Equal(t, int64(0), summary.Available)

	paidAt := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	s.clock.now = paidAt

	order = s.advance(t, "o1", models.StatusPaid)
	assert.Equal(t, models.StatusCompleted, order.Status)
	require.NotNil(t, order.PaidAt)
	require.NotNil(t, order.DeliveredAt)

	released := s.orderTransaction(t, "c1", "o1")
	require.NotNil(t, released)
	assert.Equal(t, models.KindAvailable, released.Kind)
	require.NotNil(t, released.ReleasedDate)
	assert.Equal(t, paidAt, *released.ReleasedDate)
	require.NotNil(t, released.ExpirationDate)
	assert.Equal(t, utils.AddMonths(paidAt, 12), *released.ExpirationDate)

	available, err := s.ledger.AvailablePoints(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), available)

	// Повторное событие оплаты ничего не меняет
	again, err := s.orders.TransitionStatus(ctx, "o1", models.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, again.Status)
	assert.Len(t, s.transactions(t, "c1"), 1)

	expired, err := s.ledger.SweepExpirations(ctx, utils.AddMonths(paidAt, 13))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Equal(t, models.KindExpired, s.orderTransaction(t, "c1", "o1").Kind)

	s.clock.now = utils.AddMonths(paidAt, 13)
	available, err = s.ledger.AvailablePoints(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	s := newTestServices(programWithoutBonuses(), createdAt)

	order := s.createOrder(t, "o1", "c1", 18000, 1)
	first := createdAt.Add(24 * time.Hour)
	second := createdAt.Add(48 * time.Hour)

	for _, now := range []time.Time{first, second} {
		err := s.storage.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx database.Ledger) error {
			return s.ledger.Release(ctx, tx, order, now)
		})
		require.NoError(t, err)
	}

	released := s.orderTransaction(t, "c1", "o1")
	require.NotNil(t, released)
	assert.Equal(t, first, *released.ReleasedDate)
	assert.Equal(t, utils.AddMonths(first, 12), *released.ExpirationDate)
}

func TestCanceledOrderDiscardsPendingPoints(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	s.createOrder(t, "o1", "c1", 36000, 1)
	s.advance(t, "o1", models.StatusAccepted)

	order, err := s.orders.TransitionStatus(ctx, "o1", models.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, order.Status)

	assert.Empty(t, s.transactions(t, "c1"))

	summary, err := s.ledger.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Pending)
	assert.Equal(t, int64(0), summary.Available)

	_, err = s.orders.TransitionStatus(ctx, "o1", models.StatusRequested)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectedOrderDiscardsPendingPoints(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	s.createOrder(t, "o1", "c1", 18000, 1)

	_, err := s.orders.TransitionStatus(ctx, "o1", models.StatusRejected)
	require.NoError(t, err)
	assert.Nil(t, s.orderTransaction(t, "c1", "o1"))
}

func TestInvalidTransitionKeepsLedger(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	s.createOrder(t, "o1", "c1", 18000, 1)
	s.advance(t, "o1", models.StatusShipped)

	_, err := s.orders.TransitionStatus(ctx, "o1", models.StatusPaid)
	require.ErrorIs(t, err, ErrInvalidTransition)

	order, err := s.orders.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, order.Status)
	assert.Equal(t, models.KindPending, s.orderTransaction(t, "c1", "o1").Kind)
}

func TestMissingPendingTransactionRollsBackPayment(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	s.createOrder(t, "o1", "c1", 18000, 1)
	s.advance(t, "o1", models.StatusPaymentPending)

	pending := s.orderTransaction(t, "c1", "o1")
	require.NotNil(t, pending)
	err := s.storage.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx database.Ledger) error {
		return tx.DeleteTransaction(ctx, "c1", pending.ID)
	})
	require.NoError(t, err)

	_, err = s.orders.TransitionStatus(ctx, "o1", models.StatusPaid)
	require.ErrorIs(t, err, ErrLedgerInconsistency)

	order, err := s.orders.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentPending, order.Status)
	assert.Nil(t, order.PaidAt)
}

func TestMultiplierIsLockedAtCreation(t *testing.T) {
	createdAt := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	program := programWithoutBonuses()
	program.Promotions = []config.Promotion{{
		Name:       "march",
		Multiplier: decimal.NewFromInt(2),
		StartsAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}}
	s := newTestServices(program, createdAt)

	order := s.createOrder(t, "o1", "c1", 18000, 1)
	assert.Equal(t, int64(20), order.PointsAwarded)
	assert.True(t, decimal.NewFromInt(2).Equal(order.Multiplier))

	// Оплата после окончания акции не пересчитывает баллы
	s.clock.now = time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	s.advance(t, "o1", models.StatusPaid)

	assert.Equal(t, int64(20), s.orderTransaction(t, "c1", "o1").Points)
}

func TestOrderRegistrationDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	s.createOrder(t, "o1", "c1", 18000, 1)

	id, same, other := "o1", "c1", "c2"
	total := decimal.NewFromInt(100)

	_, err := s.orders.CreateOrder(ctx, models.NewOrder{ID: &id, CustomerID: &same, Total: &total})
	assert.ErrorIs(t, err, ErrDuplicateOrderByOriginalCustomer)

	_, err = s.orders.CreateOrder(ctx, models.NewOrder{ID: &id, CustomerID: &other, Total: &total})
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	paid := models.StatusPaid
	newID := "o2"
	_, err = s.orders.CreateOrder(ctx, models.NewOrder{ID: &newID, CustomerID: &same, Total: &total, Status: &paid})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	negative := decimal.NewFromInt(-1)
	_, err = s.orders.CreateOrder(ctx, models.NewOrder{ID: &newID, CustomerID: &same, Total: &negative})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	assert.Len(t, s.transactions(t, "c1"), 1)
}

func TestOrderWithoutPointsHasNoLedgerEntry(t *testing.T) {
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	order := s.createOrder(t, "o1", "c1", 100, 1)
	assert.Equal(t, int64(0), order.PointsAwarded)
	assert.Empty(t, s.transactions(t, "c1"))

	order = s.advance(t, "o1", models.StatusPaid)
	assert.Equal(t, models.StatusCompleted, order.Status)
	assert.Empty(t, s.transactions(t, "c1"))
}

func TestOrderBonuses(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(config.DefaultProgram(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	s.createOrder(t, "o1", "c1", 18000, 60)
	s.createOrder(t, "o2", "c1", 18000, 1)
	s.advance(t, "o1", models.StatusPaid)
	s.advance(t, "o2", models.StatusPaid)

	bySource := make(map[models.TransactionSource]int64)
	for _, tr := range s.transactions(t, "c1") {
		bySource[tr.Source] += tr.Points
	}

	assert.Equal(t, int64(20), bySource[models.SourceOrder])
	assert.Equal(t, int64(100), bySource[models.SourceFirstPurchaseBonus])
	assert.Equal(t, int64(200), bySource[models.SourceVolumeBonus])

	result, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusFirstPurchase})
	require.NoError(t, err)
	assert.False(t, result.Granted)

	orderID := "o1"
	result, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusVolume, OrderID: &orderID})
	require.NoError(t, err)
	assert.False(t, result.Granted)

	available, err := s.ledger.AvailablePoints(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(320), available)
}

func TestApplyBonus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	s := newTestServices(config.DefaultProgram(), now)

	result, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 50})
	require.NoError(t, err)
	require.True(t, result.Granted)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, models.KindAvailable, result.Transaction.Kind)
	assert.Equal(t, models.SourceManualBonus, result.Transaction.Source)
	assert.Equal(t, utils.AddMonths(now, 12), *result.Transaction.ExpirationDate)

	_, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual})
	assert.ErrorIs(t, err, ErrInvalidBonus)

	_, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusKind("birthday"), Points: 10})
	assert.ErrorIs(t, err, ErrInvalidBonus)

	_, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusVolume})
	assert.ErrorIs(t, err, ErrInvalidBonus)

	foreign := "o-foreign"
	s.createOrder(t, foreign, "c2", 18000, 100)
	_, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusVolume, OrderID: &foreign})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	result, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusFirstPurchase})
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, int64(100), result.Transaction.Points)

	result, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusFirstPurchase})
	require.NoError(t, err)
	assert.False(t, result.Granted)
}

func TestApplyVolumeBonusUsesStoredOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(config.DefaultProgram(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	small := "o-small"
	s.createOrder(t, small, "c1", 1800, 10)

	result, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusVolume, OrderID: &small, Points: 500})
	require.NoError(t, err)
	assert.False(t, result.Granted)

	available, err := s.ledger.AvailablePoints(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)

	bulk := "o-bulk"
	s.createOrder(t, bulk, "c1", 1800, 60)

	result, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusVolume, OrderID: &bulk})
	require.NoError(t, err)
	require.True(t, result.Granted)
	assert.Equal(t, int64(200), result.Transaction.Points)
}

func TestBalanceSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))

	_, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 100})
	require.NoError(t, err)

	s.clock.now = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	_, err = s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 200})
	require.NoError(t, err)

	s.createOrder(t, "o1", "c1", 18000, 1)

	s.clock.now = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	summary, err := s.ledger.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), summary.Available)
	assert.Equal(t, int64(10), summary.Pending)
	assert.Equal(t, int64(100), summary.ExpiringSoon)
	assert.Equal(t, []models.MonthlyExpiration{{Month: "2025-01", Expires: 100}}, summary.ExpiringByMonth)
	assert.Equal(t, int64(310), summary.EarnedLast12Months)
	assert.Equal(t, models.TierStandard, summary.Tier.Tier)
	assert.Equal(t, s.clock.now, summary.AsOf)

	expiring, err := s.ledger.PointsExpiring(ctx, "c1", 7)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthlyExpiration{
		{Month: "2025-01", Expires: 100},
		{Month: "2025-03", Expires: 200},
	}, expiring)

	earned, err := s.ledger.PointsEarned(ctx, "c1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(210), earned)

	_, err = s.ledger.PointsEarned(ctx, "c1", 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = s.ledger.PointsExpiring(ctx, "c1", -1)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTierIsFixedAtEarning(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))

	_, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 6000})
	require.NoError(t, err)

	tier, err := s.ledger.Tier(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, tier.Tier)

	s.clock.now = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	s.createOrder(t, "o1", "c1", 18000, 1)
	s.advance(t, "o1", models.StatusPaid)

	released := s.orderTransaction(t, "c1", "o1")
	require.NotNil(t, released)
	assert.Equal(t, models.TierPremium, released.TierAtEarning)
	assert.Equal(t, utils.AddMonths(s.clock.now, 18), *released.ExpirationDate)
}

func TestSweepExpirationsAcrossCustomers(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := newTestServices(programWithoutBonuses(), start)

	for _, customerID := range []string{"c1", "c2", "c3"} {
		_, err := s.ledger.ApplyBonus(ctx, customerID, models.BonusRule{Kind: models.BonusManual, Points: 10})
		require.NoError(t, err)
	}

	s.clock.now = start.AddDate(0, 6, 0)
	_, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 40})
	require.NoError(t, err)

	sweepAt := utils.AddMonths(start, 12).Add(time.Hour)
	expired, err := s.ledger.SweepExpirations(ctx, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, int64(3), expired)

	// Повторный проход ничего не находит
	expired, err = s.ledger.SweepExpirations(ctx, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, int64(0), expired)

	s.clock.now = sweepAt
	available, err := s.ledger.AvailablePoints(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), available)
}

// racingCache выполняет beforeSet один раз перед первой записью сводки.
type racingCache struct {
	summaries map[string]models.PointsSummary
	beforeSet func()
}

func (c *racingCache) Get(_ context.Context, customerID string) (*models.PointsSummary, error) {
	summary, ok := c.summaries[customerID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &summary, nil
}

func (c *racingCache) Set(_ context.Context, customerID string, summary models.PointsSummary) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.summaries[customerID] = summary
	return nil
}

func (c *racingCache) Delete(_ context.Context, customerID string) error {
	delete(c.summaries, customerID)
	return nil
}

func TestBalanceNotCachedAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	balanceCache := &racingCache{summaries: map[string]models.PointsSummary{}}
	balanceCache.beforeSet = func() {
		_, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 50})
		require.NoError(t, err)
	}
	s.ledger.cache = balanceCache

	summary, err := s.ledger.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Available)
	assert.NotContains(t, balanceCache.summaries, "c1")

	summary, err = s.ledger.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), summary.Available)
	assert.Contains(t, balanceCache.summaries, "c1")
}

func TestBalanceCachedWithoutWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(programWithoutBonuses(), time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))

	_, err := s.ledger.ApplyBonus(ctx, "c1", models.BonusRule{Kind: models.BonusManual, Points: 70})
	require.NoError(t, err)

	balanceCache := &racingCache{summaries: map[string]models.PointsSummary{}}
	s.ledger.cache = balanceCache

	summary, err := s.ledger.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), summary.Available)
	assert.Equal(t, int64(70), balanceCache.summaries["c1"].Available)
}
