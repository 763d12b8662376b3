package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/database"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedemptionService обменивает доступные баллы на товары и места на мероприятиях
type RedemptionService struct {
	storage redemptionStorage
	ledger  *LedgerService
	now     func() time.Time
}

type redemptionStorage interface {
	WithCustomerLock(ctx context.Context, customerID string, fn func(ctx context.Context, tx database.Ledger) error) error
	FindRedemptions(ctx context.Context, customerID string, status *models.RedemptionStatus) ([]models.Redemption, error)
}

func NewRedemptionService(storage redemptionStorage, ledger *LedgerService) *RedemptionService {
	return &RedemptionService{storage: storage, ledger: ledger, now: time.Now}
}

// Redeem списывает costPoints с самых рано истекающих начислений.
// Баланс читается из журнала под блокировкой клиента, кэш не используется.
func (s *RedemptionService) Redeem(ctx context.Context, customerID string, request models.RedeemRequest) (models.RedeemResult, error) {
	if err := validateRedeemRequest(&request); err != nil {
		return models.RedeemResult{}, err
	}
	cost := *request.CostPoints

	var result models.RedeemResult
	err := s.storage.WithCustomerLock(ctx, customerID, func(ctx context.Context, tx database.Ledger) error {
		now := s.now()

		// Истёкшие начисления списываются в том же снимке времени, что и обмен
		if _, err := s.ledger.expire(ctx, tx, customerID, now); err != nil {
			return err
		}

		transactions, err := tx.FindTransactions(ctx, customerID)
		if err != nil {
			return err
		}

		credits := spendableFIFO(transactions, now)

		var available int64
		for _, c := range credits {
			available += c.Remaining()
		}
		if cost > available {
			return fmt.Errorf("%w: запрошено %d, доступно %d", ErrInsufficientPoints, cost, available)
		}

		redemptionID := uuid.NewString()
		allocations := make([]models.Allocation, 0, len(credits))

		left := cost
		for _, c := range credits {
			if left == 0 {
				break
			}

			take := min(c.Remaining(), left)
			c.Consumed += take
			if c.Remaining() == 0 {
				c.Kind = models.KindRedeemed
			}

			if err := tx.UpdateTransaction(ctx, c); err != nil {
				return fmt.Errorf("не удалось списать баллы с начисления %s: %w", c.ID, err)
			}

			allocations = append(allocations, models.Allocation{TransactionID: c.ID, Points: take})
			left -= take
		}

		redemption := models.Redemption{
			ID:          redemptionID,
			CustomerID:  customerID,
			ItemRef:     *request.ItemRef,
			ItemKind:    request.ItemKind,
			Attendees:   request.Attendees,
			PointsSpent: cost,
			Status:      models.RedemptionCompleted,
			CreatedAt:   now,
			Allocations: allocations,
		}
		if err := tx.CreateRedemption(ctx, redemption); err != nil {
			return err
		}

		debit := models.PointsTransaction{
			ID:            uuid.NewString(),
			CustomerID:    customerID,
			RedemptionID:  &redemptionID,
			Points:        -cost,
			Kind:          models.KindRedeemed,
			Source:        models.SourceRedemption,
			TierAtEarning: s.ledger.currentTier(transactions, now),
			EarnedDate:    now,
		}
		if err := tx.CreateTransaction(ctx, debit); err != nil {
			return fmt.Errorf("не удалось записать списание по обмену: %w", err)
		}

		result = models.RedeemResult{
			Success:          true,
			RemainingBalance: available - cost,
			Redemption:       &redemption,
		}
		return nil
	})
	if err != nil {
		return models.RedeemResult{}, err
	}

	s.ledger.Invalidate(ctx, customerID)

	logger.Log.Info("points redeemed",
		zap.String("customer_id", customerID),
		zap.String("redemption_id", result.Redemption.ID),
		zap.Int64("points", cost),
		zap.Int("allocations", len(result.Redemption.Allocations)),
	)

	return result, nil
}

func validateRedeemRequest(request *models.RedeemRequest) error {
	if request.ItemRef == nil || *request.ItemRef == "" {
		return fmt.Errorf("%w: не указан товар или мероприятие", ErrInvalidRedemption)
	}
	if request.CostPoints == nil || *request.CostPoints <= 0 {
		return fmt.Errorf("%w: стоимость в баллах должна быть положительной", ErrInvalidRedemption)
	}
	if request.Attendees < 0 {
		return fmt.Errorf("%w: отрицательное число участников", ErrInvalidRedemption)
	}

	switch request.ItemKind {
	case "":
		request.ItemKind = models.ItemProduct
	case models.ItemProduct, models.ItemEvent:
	default:
		return fmt.Errorf("%w: неизвестный вид награды %q", ErrInvalidRedemption, request.ItemKind)
	}

	return nil
}

// spendableFIFO возвращает доступные начисления в порядке списания:
// сначала раньше истекающие, затем раньше заработанные.
func spendableFIFO(transactions []models.PointsTransaction, now time.Time) []models.PointsTransaction {
	var credits []models.PointsTransaction
	for _, t := range transactions {
		if t.Spendable(now) {
			credits = append(credits, t)
		}
	}

	sort.Slice(credits, func(i, j int) bool {
		a, b := credits[i], credits[j]
		if !a.ExpirationDate.Equal(*b.ExpirationDate) {
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
		if !a.EarnedDate.Equal(b.EarnedDate) {
			return a.EarnedDate.Before(b.EarnedDate)
		}
		return a.ID < b.ID
	})

	return credits
}

// CancelRedemption отменяет обмен и возвращает баллы новым начислением со свежим сроком жизни.
// Исходные начисления не восстанавливаются. Повторная отмена возвращает уже отменённый обмен.
func (s *RedemptionService) CancelRedemption(ctx context.Context, customerID, redemptionID string) (models.Redemption, error) {
	var (
		canceled models.Redemption
		refunded bool
	)

	err := s.storage.WithCustomerLock(ctx, customerID, func(ctx context.Context, tx database.Ledger) error {
		redemption, err := tx.FindRedemption(ctx, customerID, redemptionID)
		if err != nil {
			return err
		}
		if redemption == nil {
			return ErrRedemptionNotFound
		}

		if redemption.Status == models.RedemptionCanceled {
			canceled = *redemption
			return nil
		}

		transactions, err := tx.FindTransactions(ctx, customerID)
		if err != nil {
			return err
		}

		now := s.now()
		tier := s.ledger.currentTier(transactions, now)
		expiresAt := utils.AddMonths(now, s.ledger.tiers.ValidityMonths(tier))

		refund := models.PointsTransaction{
			ID:             uuid.NewString(),
			CustomerID:     customerID,
			RedemptionID:   &redemption.ID,
			Points:         redemption.PointsSpent,
			Kind:           models.KindAvailable,
			Source:         models.SourceRefund,
			TierAtEarning:  tier,
			EarnedDate:     now,
			ReleasedDate:   &now,
			ExpirationDate: &expiresAt,
		}
		if err := tx.CreateTransaction(ctx, refund); err != nil {
			return fmt.Errorf("не удалось вернуть баллы по обмену %s: %w", redemption.ID, err)
		}

		redemption.Status = models.RedemptionCanceled
		redemption.CanceledAt = &now
		if err := tx.UpdateRedemption(ctx, *redemption); err != nil {
			return err
		}

		canceled = *redemption
		refunded = true
		return nil
	})
	if err != nil {
		return models.Redemption{}, err
	}

	if refunded {
		s.ledger.Invalidate(ctx, customerID)

		logger.Log.Info("redemption canceled",
			zap.String("customer_id", customerID),
			zap.String("redemption_id", redemptionID),
			zap.Int64("refunded", canceled.PointsSpent),
		)
	}

	return canceled, nil
}

// ListRedemptions возвращает историю обменов клиента, новые первыми
func (s *RedemptionService) ListRedemptions(ctx context.Context, customerID string, status *models.RedemptionStatus) ([]models.Redemption, error) {
	if status != nil && !status.IsValid() {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrInvalidRedemption, *status)
	}

	redemptions, err := s.storage.FindRedemptions(ctx, customerID, status)
	if err != nil {
		return nil, err
	}

	if redemptions == nil {
		return []models.Redemption{}, nil
	}

	return redemptions, nil
}
