package services

import (
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
)

// TierCalculator определяет уровень клиента по баллам, заработанным за последние 12 месяцев.
// Таблица уровней отсортирована по возрастанию порога, первый порог равен нулю.
type TierCalculator struct {
	levels []models.TierLevel
}

func NewTierCalculator(levels []models.TierLevel) *TierCalculator {
	return &TierCalculator{levels: levels}
}

// ComputeTier возвращает текущий уровень и прогресс до следующего.
// На высшем уровне NextTier == nil, а прогресс равен 100.
func (c *TierCalculator) ComputeTier(earnedLast12Months int64) models.TierProgress {
	if earnedLast12Months < 0 {
		earnedLast12Months = 0
	}

	current := 0
	for i, level := range c.levels {
		if earnedLast12Months >= level.MinPoints {
			current = i
		}
	}

	progress := models.TierProgress{
		Tier:            c.levels[current].Name,
		EarnedPoints:    earnedLast12Months,
		ProgressPercent: 100,
	}

	if current+1 < len(c.levels) {
		next := c.levels[current+1]
		progress.NextTier = &next.Name
		progress.PointsToNext = next.MinPoints - earnedLast12Months
		progress.ProgressPercent = min(100, 100*earnedLast12Months/next.MinPoints)
	}

	return progress
}

// ValidityMonths возвращает срок жизни баллов, заработанных на уровне tier.
// Для неизвестного уровня используется срок базового уровня.
func (c *TierCalculator) ValidityMonths(tier models.Tier) int {
	for _, level := range c.levels {
		if level.Name == tier {
			return level.ValidityMonths
		}
	}
	return c.levels[0].ValidityMonths
}
