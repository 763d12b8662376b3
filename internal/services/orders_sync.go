package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultRetryAfterDuration = 60 * time.Second
	ordersRequestTimeout      = 5 * time.Second
)

var (
	errNoOrder = errors.New("order isn't registered in orders service")
	errServer  = errors.New("orders service internal error")
)

// OrdersSyncService сверяет статусы незавершённых заказов с сервисом заказов
// на случай потерянных событий. Отставшие заказы догоняются по одному шагу основной линии.
type OrdersSyncService struct {
	storage          ordersSyncStorage
	orders           orderTransitioner
	jobQueueService  ordersSyncJobQueue
	client           *http.Client
	breaker          *gobreaker.CircuitBreaker[remoteOrder]
	externalEndpoint string
}

type ordersSyncStorage interface {
	FindUnsettledOrders(ctx context.Context) ([]models.Order, error)
}

type orderTransitioner interface {
	TransitionStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error)
}

type ordersSyncJobQueue interface {
	Enqueue(job Job) error

	PauseAndResume(delay time.Duration)
}

type remoteOrder struct {
	ID     string             `json:"id"`
	Status models.OrderStatus `json:"status"`
	// retryAfter > 0 означает, что сервис заказов попросил подождать
	retryAfter time.Duration
}

func NewOrdersSyncService(storage ordersSyncStorage, orders orderTransitioner, jobQueueService ordersSyncJobQueue, externalEndpoint string) *OrdersSyncService {
	breaker := gobreaker.NewCircuitBreaker[remoteOrder](gobreaker.Settings{
		Name:        "orders-service",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoOrder)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &OrdersSyncService{
		storage:          storage,
		orders:           orders,
		jobQueueService:  jobQueueService,
		client:           &http.Client{Timeout: ordersRequestTimeout},
		breaker:          breaker,
		externalEndpoint: externalEndpoint,
	}
}

// SyncAll ставит в очередь сверку всех незавершённых заказов.
func (s *OrdersSyncService) SyncAll(ctx context.Context) error {
	orders, err := s.storage.FindUnsettledOrders(ctx)
	if err != nil {
		return err
	}

	for _, order := range orders {
		s.SyncOrder(order.ID, order.Status)
	}

	logger.Log.Info("orders sync enqueued", zap.Int("orders", len(orders)))

	return nil
}

// SyncOrder ставит в очередь сверку одного заказа.
func (s *OrdersSyncService) SyncOrder(orderID string, local models.OrderStatus) {
	err := s.jobQueueService.Enqueue(func(ctx context.Context) {
		s.syncOrder(ctx, orderID, local)
	})
	if err != nil {
		logger.Log.Warn("failed to enqueue order sync", zap.String("orderID", orderID), zap.Error(err))
	}
}

func (s *OrdersSyncService) syncOrder(ctx context.Context, orderID string, local models.OrderStatus) {
	data, err := s.breaker.Execute(func() (remoteOrder, error) {
		return s.fetchOrder(ctx, orderID)
	})
	if err != nil {
		if errors.Is(err, errNoOrder) {
			logger.Log.Info("order isn't registered in orders service", zap.String("orderID", orderID))
			return
		}

		logger.Log.Error("failed to fetch order status", zap.String("orderID", orderID), zap.Error(err))
		return
	}

	if data.retryAfter > 0 {
		logger.Log.Info("got retryAfter", zap.Duration("retryAfter", data.retryAfter), zap.String("orderID", orderID))
		s.jobQueueService.PauseAndResume(data.retryAfter)
		s.SyncOrder(orderID, local)
		return
	}

	target := data.Status
	// Завершение выводится локально из оплаты
	if target == models.StatusCompleted {
		target = models.StatusPaid
	}

	if !target.IsValid() {
		logger.Log.Error("status isn't defined", zap.String("orderID", orderID), zap.String("status", string(data.Status)))
		return
	}

	if target == local || (target.Rank() >= 0 && target.Rank() <= local.Rank()) {
		return
	}

	for _, step := range StepsTowards(local, target) {
		order, err := s.orders.TransitionStatus(ctx, orderID, step)
		if err != nil {
			logger.Log.Warn("failed to catch up order status",
				zap.String("orderID", orderID),
				zap.String("status", string(step)),
				zap.Error(err),
			)
			return
		}
		local = order.Status
	}

	logger.Log.Info("order status synced",
		zap.String("orderID", orderID),
		zap.String("status", string(local)),
	)
}

func (s *OrdersSyncService) fetchOrder(ctx context.Context, orderID string) (remoteOrder, error) {
	endpoint := fmt.Sprintf("%s/api/orders/%s", s.externalEndpoint, url.PathEscape(orderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return remoteOrder{}, fmt.Errorf("failed to create request: %w", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return remoteOrder{}, fmt.Errorf("failed to send data by using GET method: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNoContent || res.StatusCode == http.StatusNotFound:
		return remoteOrder{}, errNoOrder
	case res.StatusCode == http.StatusTooManyRequests:
		retryAfter := defaultRetryAfterDuration
		if seconds, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && seconds > 0 {
			retryAfter = time.Duration(seconds) * time.Second
		}
		return remoteOrder{retryAfter: retryAfter}, nil
	case res.StatusCode >= http.StatusInternalServerError:
		return remoteOrder{}, fmt.Errorf("%w: %d", errServer, res.StatusCode)
	case res.StatusCode != http.StatusOK:
		return remoteOrder{}, fmt.Errorf("unexpected status code %d", res.StatusCode)
	}

	var parsed remoteOrder
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return remoteOrder{}, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return parsed, nil
}
