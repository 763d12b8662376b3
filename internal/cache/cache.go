package cache

import (
	"context"
	"errors"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
)

// BalanceCache хранит сводку по баллам клиента только для чтения.
// Сводка из кэша устаревает сразу после получения и не используется для авторизации списаний.
type BalanceCache interface {
	Get(ctx context.Context, customerID string) (*models.PointsSummary, error)
	Set(ctx context.Context, customerID string, summary models.PointsSummary) error
	Delete(ctx context.Context, customerID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache используется, когда Redis не настроен: каждое чтение считается промахом.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*models.PointsSummary, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, models.PointsSummary) error {
	return nil
}

func (NopCache) Delete(context.Context, string) error {
	return nil
}
