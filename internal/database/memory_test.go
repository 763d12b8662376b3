package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(id, customerID string, createdAt time.Time) models.Order {
	return models.Order{
		ID:              id,
		CustomerID:      customerID,
		Status:          models.StatusQuotation,
		Total:           decimal.NewFromInt(100),
		Subtotal:        decimal.NewFromInt(100),
		PointsMode:      models.PointsModeAutomatic,
		Multiplier:      decimal.NewFromInt(1),
		CreatedAt:       createdAt,
		StatusChangedAt: createdAt,
	}
}

func testCredit(id, customerID string, points int64, expiresAt time.Time) models.PointsTransaction {
	return models.PointsTransaction{
		ID:             id,
		CustomerID:     customerID,
		Points:         points,
		Kind:           models.KindAvailable,
		Source:         models.SourceManualBonus,
		TierAtEarning:  models.TierStandard,
		EarnedDate:     expiresAt.AddDate(-1, 0, 0),
		ReleasedDate:   &expiresAt,
		ExpirationDate: &expiresAt,
	}
}

func TestMemoryStore_CommitsOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	err := store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		require.NoError(t, tx.CreateOrder(ctx, testOrder("o1", "c1", now)))
		return tx.CreateTransaction(ctx, testCredit("t1", "c1", 10, now.AddDate(1, 0, 0)))
	})
	require.NoError(t, err)

	order, err := store.FindOrder(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "c1", order.CustomerID)

	transactions, err := store.FindTransactions(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}

func TestMemoryStore_RollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		require.NoError(t, tx.CreateOrder(ctx, testOrder("o1", "c1", now)))
		require.NoError(t, tx.CreateTransaction(ctx, testCredit("t1", "c1", 10, now)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	order, err := store.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, order)

	transactions, err := store.FindTransactions(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestMemoryStore_DuplicateOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		return tx.CreateOrder(ctx, testOrder("o1", "c1", now))
	}))

	err := store.WithCustomerLock(ctx, "c2", func(ctx context.Context, tx Ledger) error {
		return tx.CreateOrder(ctx, testOrder("o1", "c2", now))
	})
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestMemoryStore_RejectsForeignCustomer(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		return tx.CreateTransaction(ctx, testCredit("t1", "c2", 10, time.Now()))
	})
	assert.ErrorIs(t, err, ErrForeignCustomer)
}

func TestMemoryStore_UniqueOrderSource(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	orderID := "o1"

	err := store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		first := testCredit("t1", "c1", 10, time.Now())
		first.OrderID = &orderID
		first.Source = models.SourceOrder
		require.NoError(t, tx.CreateTransaction(ctx, first))

		second := first
		second.ID = "t2"
		return tx.CreateTransaction(ctx, second)
	})
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestMemoryStore_SingleFirstPurchaseBonus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		first := testCredit("t1", "c1", 100, time.Now())
		first.Source = models.SourceFirstPurchaseBonus
		require.NoError(t, tx.CreateTransaction(ctx, first))

		second := first
		second.ID = "t2"
		return tx.CreateTransaction(ctx, second)
	})
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestMemoryStore_RedemptionsFilteredAndNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		require.NoError(t, tx.CreateRedemption(ctx, models.Redemption{
			ID: "r1", CustomerID: "c1", ItemRef: "p1", PointsSpent: 10,
			Status: models.RedemptionCompleted, CreatedAt: now,
			Allocations: []models.Allocation{{TransactionID: "t1", Points: 10}},
		}))
		return tx.CreateRedemption(ctx, models.Redemption{
			ID: "r2", CustomerID: "c1", ItemRef: "p2", PointsSpent: 20,
			Status: models.RedemptionCanceled, CreatedAt: now.Add(time.Hour),
		})
	}))

	all, err := store.FindRedemptions(ctx, "c1", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].ID)

	completed := models.RedemptionCompleted
	filtered, err := store.FindRedemptions(ctx, "c1", &completed)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "r1", filtered[0].ID)
	assert.Equal(t, []models.Allocation{{TransactionID: "t1", Points: 10}}, filtered[0].Allocations)
}

func TestMemoryStore_FindCustomersWithExpiredPoints(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
		return tx.CreateTransaction(ctx, testCredit("t1", "c1", 10, now.AddDate(0, -1, 0)))
	}))
	require.NoError(t, store.WithCustomerLock(ctx, "c2", func(ctx context.Context, tx Ledger) error {
		return tx.CreateTransaction(ctx, testCredit("t2", "c2", 10, now.AddDate(0, 1, 0)))
	}))

	customers, err := store.FindCustomersWithExpiredPoints(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, customers)
}

func TestMemoryStore_SerializesCustomer(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithCustomerLock(ctx, "c1", func(ctx context.Context, tx Ledger) error {
				transactions, err := tx.FindTransactions(ctx, "c1")
				if err != nil {
					return err
				}
				if len(transactions) > 0 {
					return nil
				}
				return tx.CreateTransaction(ctx, models.PointsTransaction{
					ID: "only", CustomerID: "c1", Points: 1, Kind: models.KindAvailable,
				})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	transactions, err := store.FindTransactions(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}
