package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProgram(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "loyalty.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadProgramDefaults(t *testing.T) {
	program, err := LoadProgram("")
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1800).Equal(program.PointsRate))
	assert.Equal(t, DefaultTiers(), program.Tiers)
	assert.Equal(t, int64(100), program.Bonuses.FirstPurchasePoints)
	assert.Equal(t, 50, program.Bonuses.VolumeThreshold)
	assert.Equal(t, 6, program.ExpiringWindowMonths)
	assert.Empty(t, program.Promotions)
}

func TestLoadProgramFromFile(t *testing.T) {
	path := writeProgram(t, `
points_rate: "1000"
expiring_window_months: 3
tiers:
  - name: standard
    min_points: 0
    validity_months: 6
  - name: gold
    min_points: 1000
    validity_months: 24
promotions:
  - name: black friday
    multiplier: "2.5"
    starts_at: "2024-11-29"
    ends_at: "2024-12-02T00:00:00Z"
bonuses:
  first_purchase_points: 50
  volume_threshold: 10
  volume_points: 70
`)

	program, err := LoadProgram(path)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1000).Equal(program.PointsRate))
	assert.Equal(t, 3, program.ExpiringWindowMonths)
	assert.Equal(t, []models.TierLevel{
		{Name: models.TierStandard, MinPoints: 0, ValidityMonths: 6},
		{Name: models.Tier("gold"), MinPoints: 1000, ValidityMonths: 24},
	}, program.Tiers)
	assert.Equal(t, Bonuses{FirstPurchasePoints: 50, VolumeThreshold: 10, VolumePoints: 70}, program.Bonuses)

	require.Len(t, program.Promotions, 1)
	promotion := program.Promotions[0]
	assert.Equal(t, "black friday", promotion.Name)
	assert.True(t, decimal.RequireFromString("2.5").Equal(promotion.Multiplier))
	assert.Equal(t, time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC), promotion.StartsAt)
	assert.Equal(t, time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC), promotion.EndsAt)
}

func TestLoadProgramEnvOverride(t *testing.T) {
	t.Setenv("LOYALTY_POINTS_RATE", "900")

	program, err := LoadProgram("")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(900).Equal(program.PointsRate))
}

func TestLoadProgramErrors(t *testing.T) {
	testCases := []struct {
		testName string
		content  string
		wantErr  error
	}{
		{
			testName: "Should reject tiers that do not start at zero",
			content: `
tiers:
  - name: standard
    min_points: 10
    validity_months: 12
`,
			wantErr: ErrInvalidTiers,
		},
		{
			testName: "Should reject non increasing thresholds",
			content: `
tiers:
  - name: standard
    min_points: 0
    validity_months: 12
  - name: premium
    min_points: 0
    validity_months: 18
`,
			wantErr: ErrInvalidTiers,
		},
		{
			testName: "Should reject promotion with unparsable multiplier",
			content: `
promotions:
  - name: broken
    multiplier: "twice"
    starts_at: "2024-01-01"
    ends_at: "2024-02-01"
`,
			wantErr: ErrInvalidPromotion,
		},
		{
			testName: "Should reject promotion multiplier below one",
			content: `
promotions:
  - name: half points
    multiplier: "0.5"
    starts_at: "2024-01-01"
    ends_at: "2024-02-01"
`,
			wantErr: ErrInvalidPromotion,
		},
		{
			testName: "Should reject promotion ending before start",
			content: `
promotions:
  - name: reversed
    multiplier: "2"
    starts_at: "2024-02-01"
    ends_at: "2024-01-01"
`,
			wantErr: ErrInvalidPromotion,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			_, err := LoadProgram(writeProgram(t, tc.content))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadProgramMissingFile(t *testing.T) {
	_, err := LoadProgram(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPromotionActiveAt(t *testing.T) {
	promotion := Promotion{
		Multiplier: decimal.NewFromInt(2),
		StartsAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, promotion.ActiveAt(promotion.StartsAt))
	assert.True(t, promotion.ActiveAt(promotion.EndsAt.Add(-time.Second)))
	assert.False(t, promotion.ActiveAt(promotion.EndsAt))
	assert.False(t, promotion.ActiveAt(promotion.StartsAt.Add(-time.Second)))
}
