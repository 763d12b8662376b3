package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSweepSchedule = "0 15 3 * * *"

type expirationSweeper interface {
	SweepExpirations(ctx context.Context, now time.Time) (int64, error)
}

type ordersSyncer interface {
	SyncAll(ctx context.Context) error
}

// Scheduler периодически списывает истёкшие баллы и сверяет незавершённые заказы.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	sweeper expirationSweeper
	syncer  ordersSyncer
	now     func() time.Time
}

// NewScheduler создаёт планировщик с расписанием в формате cron с секундами.
// syncer может быть nil, если адрес сервиса заказов не задан.
func NewScheduler(ctx context.Context, schedule string, sweeper expirationSweeper, syncer ordersSyncer) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		ctx:     ctx,
		sweeper: sweeper,
		syncer:  syncer,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	if syncer != nil {
		if _, err := s.cron.AddFunc(schedule, s.runSync); err != nil {
			return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Log.Info("scheduler stopped")
}

// runSweep фиксирует одно значение текущего времени на весь проход.
func (s *Scheduler) runSweep() {
	now := s.now()

	expired, err := s.sweeper.SweepExpirations(s.ctx, now)
	if err != nil {
		logger.Log.Error("expiration sweep failed", zap.Error(err), zap.Int64("expired", expired))
	}
}

func (s *Scheduler) runSync() {
	if err := s.syncer.SyncAll(s.ctx); err != nil {
		logger.Log.Error("orders sync failed", zap.Error(err))
	}
}
