package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/cache"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/config"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/database"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	tierWindowMonths = 12
	sweepParallelism = 4
)

// LedgerService ведёт журнал баллов клиентов и считает производные сводки.
type LedgerService struct {
	storage ledgerStorage
	program config.Program
	tiers   *TierCalculator
	cache   cache.BalanceCache
	now     func() time.Time
	sfg     singleflight.Group
	// writes растёт при каждом изменении журнала; по нему чтение узнаёт, что его сводка могла устареть.
	writes atomic.Uint64
}

// Все изменения журнала выполняются внутри WithCustomerLock.
type ledgerStorage interface {
	WithCustomerLock(ctx context.Context, customerID string, fn func(ctx context.Context, tx database.Ledger) error) error
	FindTransactions(ctx context.Context, customerID string) ([]models.PointsTransaction, error)
	FindCustomersWithExpiredPoints(ctx context.Context, before time.Time) ([]string, error)
}

func NewLedgerService(storage ledgerStorage, program config.Program, balanceCache cache.BalanceCache) *LedgerService {
	if balanceCache == nil {
		balanceCache = cache.NopCache{}
	}

	return &LedgerService{
		storage: storage,
		program: program,
		tiers:   NewTierCalculator(program.Tiers),
		cache:   balanceCache,
		now:     time.Now,
	}
}

func (l *LedgerService) Tiers() *TierCalculator {
	return l.tiers
}

// AwardPoints считает баллы за заказ; результат фиксируется в заказе и больше не пересчитывается.
func (l *LedgerService) AwardPoints(order models.Order) (int64, decimal.Decimal) {
	return CalculatePointsAwarded(order, l.program)
}

// RecordEarn создаёт ожидающее начисление по только что созданному заказу.
// Заказ без баллов не порождает записи в журнале.
func (l *LedgerService) RecordEarn(ctx context.Context, tx database.Ledger, order models.Order) (*models.PointsTransaction, error) {
	if order.PointsAwarded <= 0 {
		return nil, nil
	}

	transactions, err := tx.FindTransactions(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}

	orderID := order.ID
	transaction := models.PointsTransaction{
		ID:            uuid.NewString(),
		CustomerID:    order.CustomerID,
		OrderID:       &orderID,
		Points:        order.PointsAwarded,
		Kind:          models.KindPending,
		Source:        models.SourceOrder,
		TierAtEarning: l.currentTier(transactions, order.CreatedAt),
		EarnedDate:    order.CreatedAt,
	}

	if err := tx.CreateTransaction(ctx, transaction); err != nil {
		return nil, fmt.Errorf("не удалось записать ожидающие баллы по заказу %s: %w", order.ID, err)
	}

	return &transaction, nil
}

// Release переводит ожидающие баллы заказа в доступные. Повторный вызов ничего не меняет.
func (l *LedgerService) Release(ctx context.Context, tx database.Ledger, order models.Order, now time.Time) error {
	transaction, err := tx.FindOrderTransaction(ctx, order.CustomerID, order.ID, models.SourceOrder)
	if err != nil {
		return err
	}

	if transaction == nil {
		if order.PointsAwarded > 0 {
			return fmt.Errorf("%w: у заказа %s нет начисления на %d баллов", ErrLedgerInconsistency, order.ID, order.PointsAwarded)
		}
		return nil
	}

	if transaction.Kind != models.KindPending {
		return nil
	}

	expiresAt := utils.AddMonths(now, l.tiers.ValidityMonths(transaction.TierAtEarning))
	transaction.Kind = models.KindAvailable
	transaction.ReleasedDate = &now
	transaction.ExpirationDate = &expiresAt

	if err := tx.UpdateTransaction(ctx, *transaction); err != nil {
		return fmt.Errorf("не удалось освободить баллы по заказу %s: %w", order.ID, err)
	}

	logger.Log.Info("points released",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.Int64("points", transaction.Points),
		zap.Time("expires_at", expiresAt),
	)

	return nil
}

// Discard удаляет ожидающее начисление отменённого заказа.
func (l *LedgerService) Discard(ctx context.Context, tx database.Ledger, order models.Order) error {
	transaction, err := tx.FindOrderTransaction(ctx, order.CustomerID, order.ID, models.SourceOrder)
	if err != nil {
		return err
	}

	if transaction == nil {
		return nil
	}

	if transaction.Kind != models.KindPending {
		logger.Log.Warn("discard skipped for released points",
			zap.String("order_id", order.ID),
			zap.String("kind", string(transaction.Kind)),
		)
		return nil
	}

	if err := tx.DeleteTransaction(ctx, order.CustomerID, transaction.ID); err != nil {
		return fmt.Errorf("не удалось удалить ожидающие баллы по заказу %s: %w", order.ID, err)
	}

	return nil
}

// grantOrderBonuses начисляет бонусы, положенные за оплаченный заказ.
func (l *LedgerService) grantOrderBonuses(ctx context.Context, tx database.Ledger, order models.Order, now time.Time) error {
	bonuses := l.program.Bonuses
	orderID := order.ID

	rules := []models.BonusRule{{Kind: models.BonusFirstPurchase, OrderID: &orderID}}
	if bonuses.VolumeThreshold > 0 && order.ItemQuantity >= bonuses.VolumeThreshold {
		rules = append(rules, models.BonusRule{Kind: models.BonusVolume, OrderID: &orderID})
	}

	for _, rule := range rules {
		_, err := l.applyBonus(ctx, tx, order.CustomerID, rule, now)
		if err != nil && !errors.Is(err, ErrDuplicateBonus) {
			return err
		}
	}

	return nil
}

// ApplyBonus начисляет бонус клиенту. Повторное начисление разового бонуса: успешная операция без изменений.
func (l *LedgerService) ApplyBonus(ctx context.Context, customerID string, rule models.BonusRule) (models.BonusResult, error) {
	if customerID == "" {
		return models.BonusResult{}, fmt.Errorf("%w: не указан клиент", ErrInvalidBonus)
	}

	var granted *models.PointsTransaction
	err := l.storage.WithCustomerLock(ctx, customerID, func(ctx context.Context, tx database.Ledger) error {
		var err error
		granted, err = l.applyBonus(ctx, tx, customerID, rule, l.now())
		return err
	})

	if errors.Is(err, ErrDuplicateBonus) {
		logger.Log.Info("bonus already granted",
			zap.String("customer_id", customerID),
			zap.String("kind", string(rule.Kind)),
		)
		return models.BonusResult{Granted: false}, nil
	}
	if err != nil {
		return models.BonusResult{}, err
	}

	if granted != nil {
		l.Invalidate(ctx, customerID)
	}

	return models.BonusResult{Granted: granted != nil, Transaction: granted}, nil
}

func (l *LedgerService) applyBonus(ctx context.Context, tx database.Ledger, customerID string, rule models.BonusRule, now time.Time) (*models.PointsTransaction, error) {
	var (
		source models.TransactionSource
		points = rule.Points
	)

	switch rule.Kind {
	case models.BonusFirstPurchase:
		source = models.SourceFirstPurchaseBonus
		if points == 0 {
			points = l.program.Bonuses.FirstPurchasePoints
		}
	case models.BonusVolume:
		source = models.SourceVolumeBonus
		if points == 0 {
			points = l.program.Bonuses.VolumePoints
		}
	case models.BonusManual:
		source = models.SourceManualBonus
	default:
		return nil, fmt.Errorf("%w: неизвестный вид бонуса %q", ErrInvalidBonus, rule.Kind)
	}

	if points < 0 || (rule.Kind == models.BonusManual && points == 0) {
		return nil, fmt.Errorf("%w: баллы бонуса должны быть положительными", ErrInvalidBonus)
	}
	if points == 0 {
		return nil, nil
	}

	if rule.Kind == models.BonusVolume && rule.OrderID == nil {
		return nil, fmt.Errorf("%w: объёмный бонус привязан к заказу", ErrInvalidBonus)
	}

	if rule.OrderID != nil {
		order, err := tx.FindOrder(ctx, *rule.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil || order.CustomerID != customerID {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, *rule.OrderID)
		}
		// Объём берётся только из сохранённого заказа и порога программы
		threshold := l.program.Bonuses.VolumeThreshold
		if rule.Kind == models.BonusVolume && (threshold <= 0 || order.ItemQuantity < threshold) {
			return nil, nil
		}
	}

	transactions, err := tx.FindTransactions(ctx, customerID)
	if err != nil {
		return nil, err
	}

	for _, t := range transactions {
		if t.Source != source {
			continue
		}
		if source == models.SourceFirstPurchaseBonus {
			return nil, ErrDuplicateBonus
		}
		if rule.OrderID != nil && t.OrderID != nil && *t.OrderID == *rule.OrderID {
			return nil, ErrDuplicateBonus
		}
	}

	tier := l.currentTier(transactions, now)
	expiresAt := utils.AddMonths(now, l.tiers.ValidityMonths(tier))
	transaction := models.PointsTransaction{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		OrderID:        rule.OrderID,
		Points:         points,
		Kind:           models.KindAvailable,
		Source:         source,
		TierAtEarning:  tier,
		EarnedDate:     now,
		ReleasedDate:   &now,
		ExpirationDate: &expiresAt,
	}

	if err := tx.CreateTransaction(ctx, transaction); err != nil {
		if errors.Is(err, database.ErrDuplicateTransaction) {
			return nil, ErrDuplicateBonus
		}
		return nil, fmt.Errorf("не удалось начислить бонус: %w", err)
	}

	logger.Log.Info("bonus granted",
		zap.String("customer_id", customerID),
		zap.String("source", string(source)),
		zap.Int64("points", points),
	)

	return &transaction, nil
}

// SweepExpirations переводит в истёкшие доступные начисления со сроком раньше now.
// Клиенты обрабатываются параллельно, каждый под своей блокировкой. Возвращает число истёкших записей.
func (l *LedgerService) SweepExpirations(ctx context.Context, now time.Time) (int64, error) {
	customers, err := l.storage.FindCustomersWithExpiredPoints(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("не удалось выбрать клиентов для списания: %w", err)
	}

	var expired atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)

	for _, customerID := range customers {
		g.Go(func() error {
			var count int64
			err := l.storage.WithCustomerLock(ctx, customerID, func(ctx context.Context, tx database.Ledger) error {
				var err error
				count, err = l.expire(ctx, tx, customerID, now)
				return err
			})
			if err != nil {
				return fmt.Errorf("списание баллов клиента %s: %w", customerID, err)
			}

			if count > 0 {
				expired.Add(count)
				l.Invalidate(ctx, customerID)
			}
			return nil
		})
	}

	err = g.Wait()

	logger.Log.Info("expiration sweep finished",
		zap.Int("customers", len(customers)),
		zap.Int64("expired", expired.Load()),
		zap.Time("now", now),
	)

	return expired.Load(), err
}

// expire помечает истёкшими доступные начисления клиента.
func (l *LedgerService) expire(ctx context.Context, tx database.Ledger, customerID string, now time.Time) (int64, error) {
	transactions, err := tx.FindTransactions(ctx, customerID)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, t := range transactions {
		if t.Kind != models.KindAvailable || !t.ExpiredAt(now) {
			continue
		}

		t.Kind = models.KindExpired
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return count, fmt.Errorf("не удалось списать истёкшие баллы %s: %w", t.ID, err)
		}
		count++
	}

	return count, nil
}

// Balance возвращает сводку по баллам клиента. Сводка может быть взята из кэша.
func (l *LedgerService) Balance(ctx context.Context, customerID string) (models.PointsSummary, error) {
	v, err, _ := l.sfg.Do(customerID, func() (interface{}, error) {
		summary, err := l.cache.Get(ctx, customerID)
		if err == nil {
			return *summary, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Log.Warn("balance cache read failed", zap.String("customer_id", customerID), zap.Error(err))
		}

		writes := l.writes.Load()
		fresh, err := l.freshSummary(ctx, customerID)
		if err != nil {
			return nil, err
		}

		if err := l.cache.Set(ctx, customerID, fresh); err != nil {
			logger.Log.Warn("balance cache write failed", zap.String("customer_id", customerID), zap.Error(err))
		}

		// Журнал менялся, пока считалась сводка: её нельзя оставлять в кэше
		if l.writes.Load() != writes {
			l.dropCached(ctx, customerID)
		}

		return fresh, nil
	})
	if err != nil {
		return models.PointsSummary{}, err
	}

	return v.(models.PointsSummary), nil
}

func (l *LedgerService) freshSummary(ctx context.Context, customerID string) (models.PointsSummary, error) {
	transactions, err := l.storage.FindTransactions(ctx, customerID)
	if err != nil {
		return models.PointsSummary{}, fmt.Errorf("не удалось прочитать журнал клиента %s: %w", customerID, err)
	}

	return l.summarize(transactions, l.now(), l.program.ExpiringWindowMonths), nil
}

func (l *LedgerService) AvailablePoints(ctx context.Context, customerID string) (int64, error) {
	summary, err := l.Balance(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return summary.Available, nil
}

func (l *LedgerService) Tier(ctx context.Context, customerID string) (models.TierProgress, error) {
	summary, err := l.Balance(ctx, customerID)
	if err != nil {
		return models.TierProgress{}, err
	}
	return summary.Tier, nil
}

// PointsEarned возвращает сумму баллов, заработанных за последние months месяцев.
func (l *LedgerService) PointsEarned(ctx context.Context, customerID string, months int) (int64, error) {
	if months <= 0 {
		return 0, ErrInvalidPeriod
	}

	transactions, err := l.storage.FindTransactions(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("не удалось прочитать журнал клиента %s: %w", customerID, err)
	}

	now := l.now()
	return earnedSince(transactions, utils.AddMonths(now, -months), now), nil
}

// PointsExpiring возвращает доступные баллы, которые истекут в ближайшие months месяцев, по месяцам.
func (l *LedgerService) PointsExpiring(ctx context.Context, customerID string, months int) ([]models.MonthlyExpiration, error) {
	if months <= 0 {
		return nil, ErrInvalidPeriod
	}

	transactions, err := l.storage.FindTransactions(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал клиента %s: %w", customerID, err)
	}

	return l.summarize(transactions, l.now(), months).ExpiringByMonth, nil
}

// Invalidate сбрасывает закэшированную сводку клиента после изменения журнала.
func (l *LedgerService) Invalidate(ctx context.Context, customerID string) {
	l.writes.Add(1)
	l.dropCached(ctx, customerID)
}

func (l *LedgerService) dropCached(ctx context.Context, customerID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := l.cache.Delete(ctx, customerID); err != nil {
		logger.Log.Warn("balance cache invalidation failed", zap.String("customer_id", customerID), zap.Error(err))
	}
}

func (l *LedgerService) currentTier(transactions []models.PointsTransaction, now time.Time) models.Tier {
	earned := earnedSince(transactions, utils.AddMonths(now, -tierWindowMonths), now)
	return l.tiers.ComputeTier(earned).Tier
}

// summarize строит сводку по журналу на момент now.
// Сумма ExpiringSoon всегда равна сумме помесячных корзин.
func (l *LedgerService) summarize(transactions []models.PointsTransaction, now time.Time, windowMonths int) models.PointsSummary {
	summary := models.PointsSummary{
		ExpiringByMonth: []models.MonthlyExpiration{},
		AsOf:            now,
	}

	horizon := utils.AddMonths(now, windowMonths)
	buckets := make(map[string]int64)

	for _, t := range transactions {
		switch t.Kind {
		case models.KindPending:
			summary.Pending += t.Points
		case models.KindAvailable:
			if t.ExpiredAt(now) {
				continue
			}
			remaining := t.Remaining()
			summary.Available += remaining
			if remaining > 0 && t.ExpirationDate != nil && t.ExpirationDate.Before(horizon) {
				buckets[utils.MonthKey(*t.ExpirationDate)] += remaining
			}
		}
	}

	for month, expires := range buckets {
		summary.ExpiringByMonth = append(summary.ExpiringByMonth, models.MonthlyExpiration{Month: month, Expires: expires})
		summary.ExpiringSoon += expires
	}
	sort.Slice(summary.ExpiringByMonth, func(i, j int) bool {
		return summary.ExpiringByMonth[i].Month < summary.ExpiringByMonth[j].Month
	})

	summary.EarnedLast12Months = earnedSince(transactions, utils.AddMonths(now, -tierWindowMonths), now)
	summary.Tier = l.tiers.ComputeTier(summary.EarnedLast12Months)

	return summary
}

// earnedSince суммирует заработанные начисления в полуинтервале (from, to].
// Возвраты за отменённые обмены не считаются заработком.
func earnedSince(transactions []models.PointsTransaction, from, to time.Time) int64 {
	var earned int64
	for _, t := range transactions {
		if !t.IsCredit() || t.Source == models.SourceRefund {
			continue
		}
		if t.EarnedDate.After(from) && !t.EarnedDate.After(to) {
			earned += t.Points
		}
	}
	return earned
}
