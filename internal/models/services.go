package models

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -destination=mocks/mock_jwt.go . JWTService
type JWTService interface {
	GenerateJWT(subject string, role Role) (string, error)

	ValidateToken(token string) (*jwt.Token, error)
}

//go:generate mockgen -destination=mocks/mock_order.go . OrderService
type OrderService interface {
	CreateOrder(ctx context.Context, order NewOrder) (Order, error)

	TransitionStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error)

	GetOrder(ctx context.Context, orderID string) (Order, error)

	GetOrders(ctx context.Context, customerID string) ([]Order, error)
}

//go:generate mockgen -destination=mocks/mock_ledger.go . LedgerService
type LedgerService interface {
	Balance(ctx context.Context, customerID string) (PointsSummary, error)

	AvailablePoints(ctx context.Context, customerID string) (int64, error)

	PointsEarned(ctx context.Context, customerID string, months int) (int64, error)

	PointsExpiring(ctx context.Context, customerID string, months int) ([]MonthlyExpiration, error)

	Tier(ctx context.Context, customerID string) (TierProgress, error)

	ApplyBonus(ctx context.Context, customerID string, rule BonusRule) (BonusResult, error)
}

//go:generate mockgen -destination=mocks/mock_redemption.go . RedemptionService
type RedemptionService interface {
	Redeem(ctx context.Context, customerID string, request RedeemRequest) (RedeemResult, error)

	CancelRedemption(ctx context.Context, customerID, redemptionID string) (Redemption, error)

	ListRedemptions(ctx context.Context, customerID string, status *RedemptionStatus) ([]Redemption, error)
}
