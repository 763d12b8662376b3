package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
)

// MemoryStore хранит журнал в памяти процесса. Используется без DATABASE_URI и в тестах.
// Изменения внутри WithCustomerLock применяются к копии и фиксируются только при успехе fn.
type MemoryStore struct {
	mu           sync.RWMutex
	orders       map[string]models.Order
	transactions map[string][]models.PointsTransaction
	redemptions  map[string][]models.Redemption

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:       make(map[string]models.Order),
		transactions: make(map[string][]models.PointsTransaction),
		redemptions:  make(map[string][]models.Redemption),
		locks:        make(map[string]*sync.Mutex),
	}
}

// Close ничего не делает, данные живут до завершения процесса.
func (m *MemoryStore) Close() {}

func (m *MemoryStore) customerLock(customerID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.locks[customerID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[customerID] = lock
	}

	return lock
}

func (m *MemoryStore) WithCustomerLock(ctx context.Context, customerID string, fn func(ctx context.Context, tx Ledger) error) error {
	lock := m.customerLock(customerID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	tx := &memLedger{
		store:        m,
		customerID:   customerID,
		orders:       make(map[string]models.Order),
		created:      make(map[string]bool),
		transactions: copyTransactions(m.transactions[customerID]),
		redemptions:  copyRedemptions(m.redemptions[customerID]),
	}
	m.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return m.commit(tx)
}

func (m *MemoryStore) commit(tx *memLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range tx.created {
		if _, ok := m.orders[id]; ok {
			return ErrDuplicateOrder
		}
	}

	for id, order := range tx.orders {
		m.orders[id] = order
	}
	m.transactions[tx.customerID] = tx.transactions
	m.redemptions[tx.customerID] = tx.redemptions

	return nil
}

func (m *MemoryStore) FindOrder(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}

	return &order, nil
}

func (m *MemoryStore) FindOrders(_ context.Context, customerID string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Order
	for _, order := range m.orders {
		if order.CustomerID == customerID {
			result = append(result, order)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (m *MemoryStore) FindUnsettledOrders(_ context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Order
	for _, order := range m.orders {
		if !order.Status.IsTerminal() {
			result = append(result, order)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (m *MemoryStore) FindTransactions(_ context.Context, customerID string) ([]models.PointsTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyTransactions(m.transactions[customerID]), nil
}

func (m *MemoryStore) FindRedemptions(_ context.Context, customerID string, status *models.RedemptionStatus) ([]models.Redemption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Redemption
	for _, r := range m.redemptions[customerID] {
		if status == nil || r.Status == *status {
			result = append(result, copyRedemption(r))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (m *MemoryStore) FindCustomersWithExpiredPoints(_ context.Context, before time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []string
	for customerID, transactions := range m.transactions {
		for _, t := range transactions {
			if t.Kind == models.KindAvailable && t.ExpiredAt(before) {
				result = append(result, customerID)
				break
			}
		}
	}
	sort.Strings(result)

	return result, nil
}

// memLedger накапливает незафиксированные изменения журнала одного клиента.
type memLedger struct {
	store        *MemoryStore
	customerID   string
	orders       map[string]models.Order
	created      map[string]bool
	transactions []models.PointsTransaction
	redemptions  []models.Redemption
}

func (l *memLedger) own(customerID string) error {
	if customerID != l.customerID {
		return fmt.Errorf("%w: %s", ErrForeignCustomer, customerID)
	}
	return nil
}

func (l *memLedger) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if order, ok := l.orders[orderID]; ok {
		return &order, nil
	}
	return l.store.FindOrder(ctx, orderID)
}

func (l *memLedger) CreateOrder(ctx context.Context, order models.Order) error {
	if err := l.own(order.CustomerID); err != nil {
		return err
	}

	existing, err := l.FindOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateOrder
	}

	l.orders[order.ID] = order
	l.created[order.ID] = true

	return nil
}

func (l *memLedger) UpdateOrder(ctx context.Context, order models.Order) error {
	if err := l.own(order.CustomerID); err != nil {
		return err
	}

	existing, err := l.FindOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("заказ %s: %w", order.ID, ErrNotFound)
	}
	if existing.CustomerID != order.CustomerID {
		return fmt.Errorf("%w: заказ %s", ErrForeignCustomer, order.ID)
	}

	l.orders[order.ID] = order

	return nil
}

func (l *memLedger) FindTransactions(_ context.Context, customerID string) ([]models.PointsTransaction, error) {
	if err := l.own(customerID); err != nil {
		return nil, err
	}
	return copyTransactions(l.transactions), nil
}

func (l *memLedger) FindOrderTransaction(_ context.Context, customerID, orderID string, source models.TransactionSource) (*models.PointsTransaction, error) {
	if err := l.own(customerID); err != nil {
		return nil, err
	}

	for _, t := range l.transactions {
		if t.OrderID != nil && *t.OrderID == orderID && t.Source == source {
			found := t
			return &found, nil
		}
	}

	return nil, nil
}

func (l *memLedger) CreateTransaction(_ context.Context, transaction models.PointsTransaction) error {
	if err := l.own(transaction.CustomerID); err != nil {
		return err
	}

	for _, t := range l.transactions {
		if t.ID == transaction.ID {
			return ErrDuplicateTransaction
		}
		if transaction.OrderID != nil && t.OrderID != nil && *t.OrderID == *transaction.OrderID && t.Source == transaction.Source {
			return ErrDuplicateTransaction
		}
		if transaction.Source == models.SourceFirstPurchaseBonus && t.Source == models.SourceFirstPurchaseBonus {
			return ErrDuplicateTransaction
		}
	}

	l.transactions = append(l.transactions, transaction)

	return nil
}

func (l *memLedger) UpdateTransaction(_ context.Context, transaction models.PointsTransaction) error {
	if err := l.own(transaction.CustomerID); err != nil {
		return err
	}

	for i, t := range l.transactions {
		if t.ID == transaction.ID {
			l.transactions[i].Consumed = transaction.Consumed
			l.transactions[i].Kind = transaction.Kind
			l.transactions[i].ReleasedDate = transaction.ReleasedDate
			l.transactions[i].ExpirationDate = transaction.ExpirationDate
			return nil
		}
	}

	return fmt.Errorf("запись журнала %s: %w", transaction.ID, ErrNotFound)
}

func (l *memLedger) DeleteTransaction(_ context.Context, customerID, transactionID string) error {
	if err := l.own(customerID); err != nil {
		return err
	}

	for i, t := range l.transactions {
		if t.ID == transactionID {
			l.transactions = append(l.transactions[:i], l.transactions[i+1:]...)
			return nil
		}
	}

	return nil
}

func (l *memLedger) CreateRedemption(_ context.Context, redemption models.Redemption) error {
	if err := l.own(redemption.CustomerID); err != nil {
		return err
	}

	for _, r := range l.redemptions {
		if r.ID == redemption.ID {
			return fmt.Errorf("обмен %s: %w", redemption.ID, ErrDuplicateTransaction)
		}
	}

	l.redemptions = append(l.redemptions, copyRedemption(redemption))

	return nil
}

func (l *memLedger) FindRedemption(_ context.Context, customerID, redemptionID string) (*models.Redemption, error) {
	if err := l.own(customerID); err != nil {
		return nil, err
	}

	for _, r := range l.redemptions {
		if r.ID == redemptionID {
			found := copyRedemption(r)
			return &found, nil
		}
	}

	return nil, nil
}

func (l *memLedger) UpdateRedemption(_ context.Context, redemption models.Redemption) error {
	if err := l.own(redemption.CustomerID); err != nil {
		return err
	}

	for i, r := range l.redemptions {
		if r.ID == redemption.ID {
			l.redemptions[i].Status = redemption.Status
			l.redemptions[i].CanceledAt = redemption.CanceledAt
			return nil
		}
	}

	return fmt.Errorf("обмен %s: %w", redemption.ID, ErrNotFound)
}

func copyTransactions(src []models.PointsTransaction) []models.PointsTransaction {
	if src == nil {
		return nil
	}
	dst := make([]models.PointsTransaction, len(src))
	copy(dst, src)
	return dst
}

func copyRedemption(r models.Redemption) models.Redemption {
	if r.Allocations != nil {
		allocations := make([]models.Allocation, len(r.Allocations))
		copy(allocations, r.Allocations)
		r.Allocations = allocations
	}
	return r
}

func copyRedemptions(src []models.Redemption) []models.Redemption {
	if src == nil {
		return nil
	}
	dst := make([]models.Redemption, len(src))
	for i, r := range src {
		dst[i] = copyRedemption(r)
	}
	return dst
}
