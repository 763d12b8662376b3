package services

import (
	"testing"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/config"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTier(t *testing.T) {
	calculator := NewTierCalculator(config.DefaultTiers())

	testCases := []struct {
		testName     string
		earned       int64
		tier         models.Tier
		nextTier     models.Tier
		pointsToNext int64
		progress     int64
	}{
		{
			testName:     "Should start customers on standard tier",
			earned:       0,
			tier:         models.TierStandard,
			nextTier:     models.TierPremium,
			pointsToNext: 5000,
			progress:     0,
		},
		{
			testName:     "Should clamp negative earnings to zero",
			earned:       -20,
			tier:         models.TierStandard,
			nextTier:     models.TierPremium,
			pointsToNext: 5000,
			progress:     0,
		},
		{
			testName:     "Should report half way to premium",
			earned:       2500,
			tier:         models.TierStandard,
			nextTier:     models.TierPremium,
			pointsToNext: 2500,
			progress:     50,
		},
		{
			testName:     "Should promote to premium on exact threshold",
			earned:       5000,
			tier:         models.TierPremium,
			nextTier:     models.TierElite,
			pointsToNext: 10000,
			progress:     33,
		},
		{
			testName: "Should keep elite customers at full progress",
			earned:   20000,
			tier:     models.TierElite,
			progress: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			progress := calculator.ComputeTier(tc.earned)

			assert.Equal(t, tc.tier, progress.Tier)
			assert.Equal(t, tc.pointsToNext, progress.PointsToNext)
			assert.Equal(t, tc.progress, progress.ProgressPercent)

			if tc.nextTier == "" {
				assert.Nil(t, progress.NextTier)
				return
			}
			require.NotNil(t, progress.NextTier)
			assert.Equal(t, tc.nextTier, *progress.NextTier)
		})
	}
}

func TestValidityMonths(t *testing.T) {
	calculator := NewTierCalculator(config.DefaultTiers())

	assert.Equal(t, 12, calculator.ValidityMonths(models.TierStandard))
	assert.Equal(t, 18, calculator.ValidityMonths(models.TierPremium))
	assert.Equal(t, 24, calculator.ValidityMonths(models.TierElite))
	assert.Equal(t, 12, calculator.ValidityMonths(models.Tier("platinum")))
}
