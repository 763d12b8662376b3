package middlewares

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
)

type key int

const (
	JwtServiceKey key = iota
	OrderServiceKey
	LedgerServiceKey
	RedemptionServiceKey
)

func ServiceInjectorMiddleware(
	jwtService models.JWTService,
	orderService models.OrderService,
	ledgerService models.LedgerService,
	redemptionService models.RedemptionService,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), JwtServiceKey, jwtService)
			ctx = context.WithValue(ctx, OrderServiceKey, orderService)
			ctx = context.WithValue(ctx, LedgerServiceKey, ledgerService)
			ctx = context.WithValue(ctx, RedemptionServiceKey, redemptionService)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetServiceFromContext[Service interface{}](w http.ResponseWriter, r *http.Request, serviceKey key) *Service {
	foundService, ok := r.Context().Value(serviceKey).(Service)

	if !ok {
		http.Error(w, fmt.Sprintf("Service wasn't found in context by key %v", serviceKey), http.StatusInternalServerError)
		return nil
	}

	return &foundService
}
