package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
)

var (
	ErrDuplicateOrder       = errors.New("заказ уже существует")
	ErrDuplicateTransaction = errors.New("начисление уже существует")
	ErrNotFound             = errors.New("запись не найдена")
	ErrForeignCustomer      = errors.New("запись принадлежит другому клиенту")
)

// Ledger описывает операции, доступные внутри транзакции одного клиента.
// Методы поиска возвращают nil без ошибки, если запись не найдена.
type Ledger interface {
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order models.Order) error
	UpdateOrder(ctx context.Context, order models.Order) error

	FindTransactions(ctx context.Context, customerID string) ([]models.PointsTransaction, error)
	FindOrderTransaction(ctx context.Context, customerID, orderID string, source models.TransactionSource) (*models.PointsTransaction, error)
	CreateTransaction(ctx context.Context, transaction models.PointsTransaction) error
	UpdateTransaction(ctx context.Context, transaction models.PointsTransaction) error
	DeleteTransaction(ctx context.Context, customerID, transactionID string) error

	CreateRedemption(ctx context.Context, redemption models.Redemption) error
	FindRedemption(ctx context.Context, customerID, redemptionID string) (*models.Redemption, error)
	UpdateRedemption(ctx context.Context, redemption models.Redemption) error
}

// Storage хранит журнал в Postgres или в памяти процесса.
type Storage interface {
	WithCustomerLock(ctx context.Context, customerID string, fn func(ctx context.Context, tx Ledger) error) error

	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
	FindOrders(ctx context.Context, customerID string) ([]models.Order, error)
	FindUnsettledOrders(ctx context.Context) ([]models.Order, error)
	FindTransactions(ctx context.Context, customerID string) ([]models.PointsTransaction, error)
	FindRedemptions(ctx context.Context, customerID string, status *models.RedemptionStatus) ([]models.Redemption, error)
	FindCustomersWithExpiredPoints(ctx context.Context, before time.Time) ([]string, error)

	Close()
}

var (
	_ Storage = (*Database)(nil)
	_ Storage = (*MemoryStore)(nil)
)

// EnumDB хранит строковые перечисления модели в текстовых колонках.
type EnumDB[T ~string] struct {
	Val T
}

// Scan реализует sql.Scanner.
func (e *EnumDB[T]) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		e.Val = T(v)
	case []byte:
		e.Val = T(v)
	default:
		return fmt.Errorf("перечисление должно быть строкой, а не %T", value)
	}
	return nil
}

// Value реализует driver.Valuer.
func (e EnumDB[T]) Value() (driver.Value, error) {
	return string(e.Val), nil
}

type OrderStatusDB = EnumDB[models.OrderStatus]

// pgLedger выполняет запросы журнала через пул или внутри транзакции.
type pgLedger struct {
	q         DBExecutor
	forUpdate bool
}
