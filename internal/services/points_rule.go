package services

import (
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/config"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ActiveMultiplier возвращает наибольший множитель среди акций, действующих в момент at.
// Без действующих акций множитель равен 1.
func ActiveMultiplier(promotions []config.Promotion, at time.Time) decimal.Decimal {
	multiplier := decimal.NewFromInt(1)
	for _, promotion := range promotions {
		if promotion.ActiveAt(at) && promotion.Multiplier.GreaterThan(multiplier) {
			multiplier = promotion.Multiplier
		}
	}
	return multiplier
}

// CalculatePointsAwarded считает баллы за заказ по правилу заказа и множителю,
// действовавшему на момент создания заказа. Множитель применяется один раз ко всей сумме баллов.
func CalculatePointsAwarded(order models.Order, program config.Program) (int64, decimal.Decimal) {
	var base decimal.Decimal

	switch order.PointsMode {
	case models.PointsModeManual:
		base = decimal.NewFromInt(order.ManualPoints)
	default:
		base = order.Subtotal.Div(program.PointsRate).Floor()
	}

	multiplier := ActiveMultiplier(program.Promotions, order.CreatedAt)
	points := base.Mul(multiplier).Floor().IntPart()
	if points < 0 {
		points = 0
	}

	return points, multiplier
}
