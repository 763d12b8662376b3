package main

import (
	"context"
	"log"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/cache"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/config"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/consumer"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/database"
	router "github.com/Renal37/go-musthave-loyalty-ledger/internal/http"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/services"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()
	config := NewConfig()

	if err := logger.Initialize(config.logLevel, config.env); err != nil {
		log.Fatalf("Logger wasn't initialized due to %s", err)
	}
	defer logger.Log.Sync()

	storage, err := newStorage(ctx, config.dsn)
	if err != nil {
		log.Fatalf("Storage wasn't initialized due to %s", err)
	}
	defer storage.Close()

	program, err := loadProgram(config.programConfigPath)
	if err != nil {
		log.Fatalf("Loyalty program wasn't loaded due to %s", err)
	}

	balanceCache, closeCache := newBalanceCache(config.redisAddress)
	defer closeCache()

	ledgerService := services.NewLedgerService(storage, program, balanceCache)
	orderService := services.NewOrderService(storage, ledgerService)
	redemptionService := services.NewRedemptionService(storage, ledgerService)

	var (
		scheduler   *services.Scheduler
		orderEvents *consumer.OrderEventsConsumer
	)

	ctx = utils.HandleTerminationProcess(ctx, func() {
		if scheduler != nil {
			scheduler.Stop()
		}
		if orderEvents != nil {
			orderEvents.Close()
		}
	})

	jobQueueService := services.NewJobQueueService(ctx, 100, 2)
	defer jobQueueService.Shutdown()

	var ordersSync *services.OrdersSyncService
	if config.ordersEndpoint != "" {
		ordersSync = services.NewOrdersSyncService(storage, orderService, jobQueueService, config.ordersEndpoint)
	}

	scheduler, err = newScheduler(ctx, config.sweepSchedule, ledgerService, ordersSync)
	if err != nil {
		log.Fatalf("Scheduler wasn't initialized due to %s", err)
	}

	if len(config.kafkaBrokers) > 0 {
		orderEvents = consumer.NewOrderEventsConsumer(orderService, config.kafkaBrokers...)
	}

	if ordersSync != nil {
		if err := ordersSync.SyncAll(ctx); err != nil {
			logger.Log.Error("initial orders sync failed", zap.Error(err))
		}
	}

	scheduler.Start()

	if orderEvents != nil {
		go orderEvents.Run(ctx)
	}

	log.Printf("Running server on %s\n", config.endpoint)

	err = router.New(
		router.Config{Endpoint: config.endpoint},
		services.NewJWTService(config.authSecretKey),
		orderService,
		ledgerService,
		redemptionService,
	).Run(ctx)
	if err != nil {
		log.Fatalf("Server stopped due to %s", err)
	}
}

func newStorage(ctx context.Context, dsn string) (database.Storage, error) {
	if dsn == "" {
		logger.Log.Warn("DATABASE_URI isn't set, ledger is kept in memory")
		return database.NewMemoryStore(), nil
	}

	db, err := database.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func loadProgram(path string) (config.Program, error) {
	program, err := config.LoadProgram(path)
	if err != nil {
		return config.Program{}, err
	}

	logger.Log.Info("loyalty program loaded",
		zap.String("path", path),
		zap.String("points_rate", program.PointsRate.String()),
		zap.Int("tiers", len(program.Tiers)),
		zap.Int("promotions", len(program.Promotions)),
	)

	return program, nil
}

// newBalanceCache подключает Redis, если адрес задан. Без Redis сводки всегда читаются из журнала.
func newBalanceCache(address string) (cache.BalanceCache, func()) {
	if address == "" {
		return cache.NopCache{}, func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: address})

	return cache.NewRedisCache(client), func() {
		if err := client.Close(); err != nil {
			logger.Log.Warn("error closing redis client", zap.Error(err))
		}
	}
}

func newScheduler(ctx context.Context, schedule string, ledger *services.LedgerService, ordersSync *services.OrdersSyncService) (*services.Scheduler, error) {
	// Без адреса сервиса заказов сверка не планируется
	if ordersSync == nil {
		return services.NewScheduler(ctx, schedule, ledger, nil)
	}
	return services.NewScheduler(ctx, schedule, ledger, ordersSync)
}
