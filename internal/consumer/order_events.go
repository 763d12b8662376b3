package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/services"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	OrderStatusTopic = "order-status"
	consumerGroupID  = "loyalty-ledger"

	minRetryDelay = 500 * time.Millisecond
	maxRetryDelay = 30 * time.Second
)

// OrderStatusEvent представляет собой событие сервиса заказов о смене статуса.
type OrderStatusEvent struct {
	OrderID string             `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type orderTransitioner interface {
	TransitionStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error)
}

// OrderEventsConsumer применяет события статусов заказов к журналу баллов.
// Доставка at-least-once: сообщение подтверждается только после обработки.
// Пока обработка падает, то же сообщение повторяется с растущей паузой;
// переходы и освобождение баллов идемпотентны.
type OrderEventsConsumer struct {
	orders        orderTransitioner
	reader        messageReader
	minRetryDelay time.Duration
	maxRetryDelay time.Duration
}

func NewOrderEventsConsumer(orders orderTransitioner, brokers ...string) *OrderEventsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    OrderStatusTopic,
		GroupID:  consumerGroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &OrderEventsConsumer{
		orders:        orders,
		reader:        reader,
		minRetryDelay: minRetryDelay,
		maxRetryDelay: maxRetryDelay,
	}
}

// Run читает события до отмены ctx.
func (c *OrderEventsConsumer) Run(ctx context.Context) {
	logger.Log.Info("order events consumer started", zap.String("topic", OrderStatusTopic))

	delay := c.minRetryDelay
	for ctx.Err() == nil {
		err := c.processMessage(ctx)
		if err == nil {
			delay = c.minRetryDelay
			continue
		}
		if errors.Is(err, context.Canceled) {
			return
		}

		logger.Log.Error("order event processing failed", zap.Duration("retry_in", delay), zap.Error(err))
		if wait(ctx, delay) != nil {
			return
		}
		delay = c.nextDelay(delay)
	}
}

func (c *OrderEventsConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		logger.Log.Warn("error closing kafka reader", zap.Error(err))
	}
}

// processMessage читает одно сообщение и подтверждает его после успешной обработки.
// Ошибка обработки не пропускает сообщение: оно повторяется до успеха или отмены ctx.
func (c *OrderEventsConsumer) processMessage(ctx context.Context) error {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("error reading message: %w", err)
	}

	if err := c.handleWithRetry(ctx, m); err != nil {
		return err
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("error committing offset %d: %w", m.Offset, err)
	}

	return nil
}

func (c *OrderEventsConsumer) handleWithRetry(ctx context.Context, m kafka.Message) error {
	delay := c.minRetryDelay
	for {
		err := c.handle(ctx, m)
		if err == nil {
			return nil
		}

		logger.Log.Error("order event handling failed",
			zap.Int64("offset", m.Offset),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			return err
		}
		delay = c.nextDelay(delay)
	}
}

func (c *OrderEventsConsumer) nextDelay(delay time.Duration) time.Duration {
	return min(max(2*delay, c.minRetryDelay), c.maxRetryDelay)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *OrderEventsConsumer) handle(ctx context.Context, m kafka.Message) error {
	var event OrderStatusEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		logger.Log.Warn("skipping malformed order event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	if event.OrderID == "" || !event.Status.IsValid() {
		logger.Log.Warn("skipping order event without order or status",
			zap.Int64("offset", m.Offset),
			zap.String("order_id", event.OrderID),
			zap.String("status", string(event.Status)),
		)
		return nil
	}

	order, err := c.orders.TransitionStatus(ctx, event.OrderID, event.Status)
	switch {
	case err == nil:
		logger.Log.Debug("order event applied",
			zap.String("order_id", event.OrderID),
			zap.String("status", string(order.Status)),
		)
		return nil
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrOrderNotFound):
		logger.Log.Warn("order event rejected",
			zap.String("order_id", event.OrderID),
			zap.String("status", string(event.Status)),
			zap.Error(err),
		)
		return nil
	default:
		return fmt.Errorf("order %s -> %s: %w", event.OrderID, event.Status, err)
	}
}
