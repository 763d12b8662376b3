package models

type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierElite    Tier = "elite"
)

// TierLevel описывает строку таблицы уровней: порог по баллам за 12 месяцев и срок жизни баллов.
type TierLevel struct {
	Name           Tier  `json:"name" mapstructure:"name"`
	MinPoints      int64 `json:"minPoints" mapstructure:"min_points"`
	ValidityMonths int   `json:"validityMonths" mapstructure:"validity_months"`
}

type TierProgress struct {
	Tier            Tier  `json:"tier"`
	NextTier        *Tier `json:"nextTier"`
	PointsToNext    int64 `json:"pointsToNext"`
	ProgressPercent int64 `json:"progressPercent"`
	EarnedPoints    int64 `json:"earnedLast12Months"`
}
