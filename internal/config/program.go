package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Promotion представляет собой промо-акцию с множителем баллов. Действует в полуинтервале [StartsAt, EndsAt).
type Promotion struct {
	Name       string
	Multiplier decimal.Decimal
	StartsAt   time.Time
	EndsAt     time.Time
}

func (p Promotion) ActiveAt(t time.Time) bool {
	return !t.Before(p.StartsAt) && t.Before(p.EndsAt)
}

type Bonuses struct {
	FirstPurchasePoints int64 `mapstructure:"first_purchase_points"`
	VolumeThreshold     int   `mapstructure:"volume_threshold"`
	VolumePoints        int64 `mapstructure:"volume_points"`
}

// Program содержит настройки программы лояльности.
type Program struct {
	// PointsRate: сумма заказа, за которую начисляется один балл в автоматическом режиме.
	PointsRate           decimal.Decimal
	Tiers                []models.TierLevel
	Promotions           []Promotion
	Bonuses              Bonuses
	ExpiringWindowMonths int
}

type rawPromotion struct {
	Name       string `mapstructure:"name"`
	Multiplier string `mapstructure:"multiplier"`
	StartsAt   string `mapstructure:"starts_at"`
	EndsAt     string `mapstructure:"ends_at"`
}

type rawProgram struct {
	PointsRate           string             `mapstructure:"points_rate"`
	Tiers                []models.TierLevel `mapstructure:"tiers"`
	Promotions           []rawPromotion     `mapstructure:"promotions"`
	Bonuses              Bonuses            `mapstructure:"bonuses"`
	ExpiringWindowMonths int                `mapstructure:"expiring_window_months"`
}

var (
	ErrInvalidTiers     = errors.New("некорректная таблица уровней")
	ErrInvalidPromotion = errors.New("некорректная промо-акция")
)

func DefaultTiers() []models.TierLevel {
	return []models.TierLevel{
		{Name: models.TierStandard, MinPoints: 0, ValidityMonths: 12},
		{Name: models.TierPremium, MinPoints: 5000, ValidityMonths: 18},
		{Name: models.TierElite, MinPoints: 15000, ValidityMonths: 24},
	}
}

func DefaultProgram() Program {
	return Program{
		PointsRate: decimal.NewFromInt(1800),
		Tiers:      DefaultTiers(),
		Bonuses: Bonuses{
			FirstPurchasePoints: 100,
			VolumeThreshold:     50,
			VolumePoints:        200,
		},
		ExpiringWindowMonths: 6,
	}
}

// LoadProgram читает настройки программы из YAML-файла. Пустой путь означает настройки по умолчанию.
// Отдельные значения можно переопределить переменными окружения с префиксом LOYALTY_,
// например LOYALTY_POINTS_RATE.
func LoadProgram(path string) (Program, error) {
	defaults := DefaultProgram()

	v := viper.New()
	v.SetDefault("points_rate", defaults.PointsRate.String())
	v.SetDefault("bonuses.first_purchase_points", defaults.Bonuses.FirstPurchasePoints)
	v.SetDefault("bonuses.volume_threshold", defaults.Bonuses.VolumeThreshold)
	v.SetDefault("bonuses.volume_points", defaults.Bonuses.VolumePoints)
	v.SetDefault("expiring_window_months", defaults.ExpiringWindowMonths)

	v.SetEnvPrefix("LOYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return Program{}, fmt.Errorf("failed to read loyalty config: %w", err)
		}
	}

	var raw rawProgram
	if err := v.Unmarshal(&raw); err != nil {
		return Program{}, fmt.Errorf("failed to unmarshal loyalty config: %w", err)
	}

	return raw.toProgram()
}

func (raw rawProgram) toProgram() (Program, error) {
	rate, err := decimal.NewFromString(raw.PointsRate)
	if err != nil {
		return Program{}, fmt.Errorf("points_rate %q: %w", raw.PointsRate, err)
	}

	program := Program{
		PointsRate:           rate,
		Tiers:                raw.Tiers,
		Bonuses:              raw.Bonuses,
		ExpiringWindowMonths: raw.ExpiringWindowMonths,
	}

	if len(program.Tiers) == 0 {
		program.Tiers = DefaultTiers()
	}

	for _, p := range raw.Promotions {
		promotion, err := p.toPromotion()
		if err != nil {
			return Program{}, err
		}
		program.Promotions = append(program.Promotions, promotion)
	}

	if err := program.Validate(); err != nil {
		return Program{}, err
	}

	return program, nil
}

func (p rawPromotion) toPromotion() (Promotion, error) {
	multiplier, err := decimal.NewFromString(p.Multiplier)
	if err != nil {
		return Promotion{}, fmt.Errorf("%w %q: multiplier: %v", ErrInvalidPromotion, p.Name, err)
	}

	startsAt, err := parseDate(p.StartsAt)
	if err != nil {
		return Promotion{}, fmt.Errorf("%w %q: starts_at: %v", ErrInvalidPromotion, p.Name, err)
	}

	endsAt, err := parseDate(p.EndsAt)
	if err != nil {
		return Promotion{}, fmt.Errorf("%w %q: ends_at: %v", ErrInvalidPromotion, p.Name, err)
	}

	return Promotion{Name: p.Name, Multiplier: multiplier, StartsAt: startsAt, EndsAt: endsAt}, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

// Validate проверяет инварианты программы: пороги уровней строго возрастают и начинаются с нуля.
func (p Program) Validate() error {
	if !p.PointsRate.IsPositive() {
		return fmt.Errorf("points_rate должен быть положительным, получено %s", p.PointsRate)
	}

	if len(p.Tiers) == 0 {
		return fmt.Errorf("%w: пустая таблица", ErrInvalidTiers)
	}

	if p.Tiers[0].MinPoints != 0 {
		return fmt.Errorf("%w: порог первого уровня %d, ожидался 0", ErrInvalidTiers, p.Tiers[0].MinPoints)
	}

	seen := make(map[models.Tier]bool, len(p.Tiers))
	for i, tier := range p.Tiers {
		if tier.Name == "" || seen[tier.Name] {
			return fmt.Errorf("%w: пустое или повторное имя уровня %q", ErrInvalidTiers, tier.Name)
		}
		seen[tier.Name] = true

		if tier.ValidityMonths <= 0 {
			return fmt.Errorf("%w: срок жизни баллов уровня %s должен быть положительным", ErrInvalidTiers, tier.Name)
		}

		if i > 0 && tier.MinPoints <= p.Tiers[i-1].MinPoints {
			return fmt.Errorf("%w: порог уровня %s не больше порога %s", ErrInvalidTiers, tier.Name, p.Tiers[i-1].Name)
		}
	}

	for _, promotion := range p.Promotions {
		if promotion.Multiplier.LessThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w %q: множитель %s меньше 1", ErrInvalidPromotion, promotion.Name, promotion.Multiplier)
		}
		if !promotion.EndsAt.After(promotion.StartsAt) {
			return fmt.Errorf("%w %q: окончание раньше начала", ErrInvalidPromotion, promotion.Name)
		}
	}

	if p.ExpiringWindowMonths <= 0 {
		return fmt.Errorf("expiring_window_months должен быть положительным, получено %d", p.ExpiringWindowMonths)
	}

	return nil
}
