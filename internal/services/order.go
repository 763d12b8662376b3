package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/database"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService представляет сервис для работы с заказами и их статусами
type OrderService struct {
	storage orderStorage
	ledger  *LedgerService
	now     func() time.Time
}

// Интерфейс хранилища для работы с заказами
type orderStorage interface {
	WithCustomerLock(ctx context.Context, customerID string, fn func(ctx context.Context, tx database.Ledger) error) error
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
	FindOrders(ctx context.Context, customerID string) ([]models.Order, error)
}

// NewOrderService создает новый экземпляр OrderService
func NewOrderService(storage orderStorage, ledger *LedgerService) *OrderService {
	return &OrderService{storage: storage, ledger: ledger, now: time.Now}
}

// CreateOrder регистрирует заказ и записывает ожидающие баллы за него
func (o *OrderService) CreateOrder(ctx context.Context, newOrder models.NewOrder) (models.Order, error) {
	order, err := o.buildOrder(newOrder)
	if err != nil {
		return models.Order{}, err
	}

	order.PointsAwarded, order.Multiplier = o.ledger.AwardPoints(order)

	err = o.storage.WithCustomerLock(ctx, order.CustomerID, func(ctx context.Context, tx database.Ledger) error {
		existing, err := tx.FindOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateOrderError(existing, order.CustomerID)
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		_, err = o.ledger.RecordEarn(ctx, tx, order)
		return err
	})
	if err != nil {
		// Заказ мог быть создан параллельно другим клиентом
		if !errors.Is(err, database.ErrDuplicateOrder) {
			return models.Order{}, err
		}

		existing, errFind := o.storage.FindOrder(ctx, order.ID)
		if errFind != nil {
			return models.Order{}, errFind
		}
		if existing == nil {
			return models.Order{}, ErrDuplicateOrder
		}
		return models.Order{}, duplicateOrderError(existing, order.CustomerID)
	}

	o.ledger.Invalidate(ctx, order.CustomerID)

	logger.Log.Info("order registered",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("status", string(order.Status)),
		zap.Int64("points_awarded", order.PointsAwarded),
	)

	return order, nil
}

func duplicateOrderError(existing *models.Order, customerID string) error {
	if existing.CustomerID == customerID {
		return ErrDuplicateOrderByOriginalCustomer
	}
	return ErrDuplicateOrder
}

func (o *OrderService) buildOrder(newOrder models.NewOrder) (models.Order, error) {
	if newOrder.ID == nil || *newOrder.ID == "" || newOrder.CustomerID == nil || *newOrder.CustomerID == "" {
		return models.Order{}, fmt.Errorf("%w: не указан номер заказа или клиент", ErrInvalidOrder)
	}

	if newOrder.Total == nil || newOrder.Total.IsNegative() {
		return models.Order{}, fmt.Errorf("%w: сумма заказа должна быть неотрицательной", ErrInvalidOrder)
	}

	subtotal := *newOrder.Total
	if newOrder.Subtotal != nil {
		subtotal = *newOrder.Subtotal
	}
	if subtotal.IsNegative() {
		return models.Order{}, fmt.Errorf("%w: подытог заказа отрицательный", ErrInvalidOrder)
	}

	if newOrder.ItemQuantity < 0 || newOrder.ManualPoints < 0 {
		return models.Order{}, fmt.Errorf("%w: количество товаров и баллы не могут быть отрицательными", ErrInvalidOrder)
	}

	mode := newOrder.PointsMode
	if mode == "" {
		mode = models.PointsModeAutomatic
	}
	if mode != models.PointsModeAutomatic && mode != models.PointsModeManual {
		return models.Order{}, fmt.Errorf("%w: неизвестный режим начисления %q", ErrInvalidOrder, mode)
	}

	status := models.StatusQuotation
	if newOrder.Status != nil {
		status = *newOrder.Status
	}
	// Заказ регистрируется до оплаты, иначе баллы нельзя провести через ожидание
	if status.Rank() < 0 || status.Rank() >= models.StatusPaid.Rank() {
		return models.Order{}, fmt.Errorf("%w: начальный статус %q", ErrInvalidOrder, status)
	}

	now := o.now()
	createdAt := now
	if newOrder.CreatedAt != nil {
		createdAt = *newOrder.CreatedAt
	}

	order := models.Order{
		ID:              *newOrder.ID,
		CustomerID:      *newOrder.CustomerID,
		Status:          status,
		Total:           *newOrder.Total,
		Subtotal:        subtotal,
		ItemQuantity:    newOrder.ItemQuantity,
		PointsMode:      mode,
		ManualPoints:    newOrder.ManualPoints,
		Multiplier:      decimal.NewFromInt(1),
		CreatedAt:       createdAt,
		StatusChangedAt: now,
	}

	if status.Rank() >= models.StatusDelivered.Rank() {
		order.DeliveredAt = &now
	}

	return order, nil
}

// TransitionStatus переводит заказ в новый статус и применяет последствия для журнала баллов
func (o *OrderService) TransitionStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error) {
	current, err := o.storage.FindOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if current == nil {
		return models.Order{}, ErrOrderNotFound
	}

	var (
		updated    models.Order
		transition Transition
	)

	err = o.storage.WithCustomerLock(ctx, current.CustomerID, func(ctx context.Context, tx database.Ledger) error {
		order, err := tx.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		now := o.now()
		updated, transition, err = ApplyTransition(*order, status, now)
		if err != nil || !transition.Changed {
			return err
		}

		if err := tx.UpdateOrder(ctx, updated); err != nil {
			return err
		}

		if transition.Release {
			if err := o.ledger.Release(ctx, tx, updated, now); err != nil {
				return err
			}
			if err := o.ledger.grantOrderBonuses(ctx, tx, updated, now); err != nil {
				return err
			}
		}

		if transition.Discard {
			return o.ledger.Discard(ctx, tx, updated)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLedgerInconsistency) {
			logger.Log.Error("ledger inconsistency on order transition",
				zap.String("order_id", orderID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
		}
		return models.Order{}, err
	}

	if transition.Changed {
		o.ledger.Invalidate(ctx, updated.CustomerID)

		logger.Log.Info("order status changed",
			zap.String("order_id", orderID),
			zap.String("from", string(transition.From)),
			zap.String("to", string(transition.To)),
		)
	}

	return updated, nil
}

// GetOrder возвращает заказ по номеру
func (o *OrderService) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	order, err := o.storage.FindOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order == nil {
		return models.Order{}, ErrOrderNotFound
	}

	return *order, nil
}

// GetOrders возвращает заказы клиента, отсортированные по дате создания
func (o *OrderService) GetOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	orders, err := o.storage.FindOrders(ctx, customerID)
	if err != nil {
		return []models.Order{}, err
	}

	// Если заказы не найдены, возвращаем пустой список
	if orders == nil {
		return []models.Order{}, nil
	}

	return orders, nil
}
