package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/middlewares"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint string
}

type Router struct {
	config            Config
	jwtService        models.JWTService
	orderService      models.OrderService
	ledgerService     models.LedgerService
	redemptionService models.RedemptionService
}

func New(
	config Config,
	jwtService models.JWTService,
	orderService models.OrderService,
	ledgerService models.LedgerService,
	redemptionService models.RedemptionService,
) *Router {
	return &Router{
		config,
		jwtService,
		orderService,
		ledgerService,
		redemptionService,
	}
}

func (router *Router) get() chi.Router {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middlewares.ServiceInjectorMiddleware(
			router.jwtService,
			router.orderService,
			router.ledgerService,
			router.redemptionService,
		),
		logger.RequestLogger,
		middlewares.AuthMiddleware().WithExcludedPaths(
			"/ping",
		).Middleware,
	)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(middlewares.RequireRole(models.RoleCustomer))

		r.Get("/points", GetAvailablePoints)
		r.Get("/points/earned", GetPointsEarned)
		r.Get("/points/expiring", GetPointsExpiring)
		r.Get("/balance", GetBalance)
		r.Get("/tier", GetTier)

		r.Get("/orders", GetOrders)

		r.Get("/redemptions", GetRedemptions)
		r.With(middlewares.JSONMiddleware[models.RedeemRequest]).Post("/redemptions", CreateRedemption)
		r.Post("/redemptions/{id}/cancel", CancelRedemption)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/{id}", GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireRole(models.RoleService))

			r.With(middlewares.JSONMiddleware[models.NewOrder]).Post("/", CreateOrder)
			r.With(middlewares.JSONMiddleware[models.StatusChange]).Post("/{id}/status", TransitionOrderStatus)
		})
	})

	r.Route("/api/customers/{id}", func(r chi.Router) {
		r.Use(middlewares.RequireRole(models.RoleService))

		r.With(middlewares.JSONMiddleware[models.BonusRule]).Post("/bonuses", ApplyBonus)
	})

	return r
}

// Run обслуживает запросы до отмены ctx, после чего дожидается завершения активных запросов.
func (router *Router) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              router.config.Endpoint,
		Handler:           router.get(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	logger.Log.Info("http server started", zap.String("address", router.config.Endpoint))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
