package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeAt(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		asOf  time.Time
		want  int
	}{
		{"birthday already passed", date(1990, time.April, 12), date(2026, time.June, 1), 36},
		{"birthday later this year", date(1990, time.August, 12), date(2026, time.June, 1), 35},
		{"birthday today", date(1990, time.June, 1), date(2026, time.June, 1), 36},
		{"newborn", date(2026, time.May, 1), date(2026, time.June, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeAt(tt.birth, tt.asOf))
		})
	}
}

func TestResolveAge(t *testing.T) {
	ctx := context.Background()
	asOf := date(2026, time.June, 1)
	calc := NewCalculator(standardRef(), testLogger())

	t.Run("resolves band from reference data", func(t *testing.T) {
		res, err := calc.ResolveAge(ctx, date(2001, time.January, 1), asOf, true)
		require.NoError(t, err)
		assert.Equal(t, 25, res.Age)
		assert.Equal(t, 1.00, res.Coefficient)
		assert.Equal(t, "18-30", res.GroupLabel)
		assert.False(t, res.FallbackUsed)
	})

	t.Run("age at ceiling is still insurable", func(t *testing.T) {
		res, err := calc.ResolveAge(ctx, date(1946, time.January, 1), asOf, true)
		require.NoError(t, err)
		assert.Equal(t, 80, res.Age)
		assert.Equal(t, 2.50, res.Coefficient)
	})

	t.Run("age above ceiling fails", func(t *testing.T) {
		_, err := calc.ResolveAge(ctx, date(1940, time.January, 1), asOf, true)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("birth date in the future fails", func(t *testing.T) {
		_, err := calc.ResolveAge(ctx, date(2030, time.January, 1), asOf, true)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing birth date fails", func(t *testing.T) {
		_, err := calc.ResolveAge(ctx, time.Time{}, asOf, true)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("disabled coefficient forces 1.0", func(t *testing.T) {
		res, err := calc.ResolveAge(ctx, date(1950, time.January, 1), asOf, false)
		require.NoError(t, err)
		assert.Equal(t, 76, res.Age)
		assert.Equal(t, 1.0, res.Coefficient)
	})

	t.Run("lookup miss falls back to built-in table and flags it", func(t *testing.T) {
		empty := &fakeRef{}
		c := NewCalculator(empty, testLogger())

		res, err := c.ResolveAge(ctx, date(2001, time.January, 1), asOf, true)
		require.NoError(t, err)
		assert.Equal(t, 1.00, res.Coefficient)
		assert.True(t, res.FallbackUsed)
	})

	t.Run("fallback matches the seeded bands", func(t *testing.T) {
		empty := NewCalculator(&fakeRef{}, testLogger())
		seeded := NewCalculator(standardRef(), testLogger())

		for age := 0; age <= 80; age++ {
			birth := asOf.AddDate(-age, 0, 0)
			fromFallback, err := empty.ResolveAge(ctx, birth, asOf, true)
			require.NoError(t, err)
			fromSeed, err := seeded.ResolveAge(ctx, birth, asOf, true)
			require.NoError(t, err)
			assert.Equal(t, fromSeed.Coefficient, fromFallback.Coefficient, "age %d", age)
		}
	})
}

func TestResolveDuration(t *testing.T) {
	ctx := context.Background()
	asOf := date(2026, time.June, 1)
	calc := NewCalculator(standardRef(), testLogger())

	t.Run("exclusive day count", func(t *testing.T) {
		days, coeff, err := calc.ResolveDuration(ctx, date(2026, time.June, 1), date(2026, time.June, 8), asOf, false)
		require.NoError(t, err)
		assert.Equal(t, 7, days)
		assert.Equal(t, 1.00, coeff)
	})

	t.Run("inclusive day count adds the final day", func(t *testing.T) {
		days, coeff, err := calc.ResolveDuration(ctx, date(2026, time.June, 1), date(2026, time.June, 8), asOf, true)
		require.NoError(t, err)
		assert.Equal(t, 8, days)
		assert.Equal(t, 1.10, coeff)
	})

	t.Run("missing band defaults to 1.0", func(t *testing.T) {
		days, coeff, err := calc.ResolveDuration(ctx, date(2026, time.June, 1), date(2026, time.September, 1), asOf, false)
		require.NoError(t, err)
		assert.Equal(t, 92, days)
		assert.Equal(t, 1.0, coeff)
	})

	t.Run("reversed dates fail", func(t *testing.T) {
		_, _, err := calc.ResolveDuration(ctx, date(2026, time.June, 8), date(2026, time.June, 1), asOf, false)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestResolveAdditionalRisks(t *testing.T) {
	ctx := context.Background()
	asOf := date(2026, time.June, 1)
	calc := NewCalculator(standardRef(), testLogger())

	t.Run("sums modified coefficients", func(t *testing.T) {
		res, err := calc.ResolveAdditionalRisks(ctx, []string{"SPORT_ACTIVITIES", "ACCIDENT_COVERAGE"}, 25, asOf)
		require.NoError(t, err)
		assert.InDelta(t, 0.35, res.TotalCoefficient, 1e-9)
		assert.Len(t, res.PerRisk, 2)
	})

	t.Run("age modifier scales the risk coefficient", func(t *testing.T) {
		young, err := calc.ResolveAdditionalRisks(ctx, []string{ExtremeSportRiskCode}, 25, asOf)
		require.NoError(t, err)
		old, err := calc.ResolveAdditionalRisks(ctx, []string{ExtremeSportRiskCode}, 65, asOf)
		require.NoError(t, err)

		assert.InDelta(t, 0.50, young.TotalCoefficient, 1e-9)
		assert.InDelta(t, 0.90, old.TotalCoefficient, 1e-9)
		assert.Greater(t, old.TotalCoefficient, young.TotalCoefficient)
	})

	t.Run("mandatory risk never contributes", func(t *testing.T) {
		res, err := calc.ResolveAdditionalRisks(ctx, []string{BaseRiskCode, "SPORT_ACTIVITIES"}, 25, asOf)
		require.NoError(t, err)
		assert.InDelta(t, 0.20, res.TotalCoefficient, 1e-9)
		assert.Len(t, res.PerRisk, 1)
	})

	t.Run("unknown codes are skipped", func(t *testing.T) {
		res, err := calc.ResolveAdditionalRisks(ctx, []string{"NO_SUCH_RISK"}, 25, asOf)
		require.NoError(t, err)
		assert.Zero(t, res.TotalCoefficient)
		assert.Empty(t, res.PerRisk)
	})

	t.Run("no selection yields zero", func(t *testing.T) {
		res, err := calc.ResolveAdditionalRisks(ctx, nil, 25, asOf)
		require.NoError(t, err)
		assert.Zero(t, res.TotalCoefficient)
	})
}

func TestResolveBundleDiscount(t *testing.T) {
	ctx := context.Background()
	asOf := date(2026, time.June, 1)

	t.Run("matching selection earns the discount", func(t *testing.T) {
		calc := NewCalculator(standardRef(), testLogger())
		res, err := calc.ResolveBundleDiscount(ctx, []string{"SPORT_ACTIVITIES", "ACCIDENT_COVERAGE"}, 100.00, asOf)
		require.NoError(t, err)
		require.NotNil(t, res.Bundle)
		assert.Equal(t, "ACTIVE_TRAVELER", res.Bundle.Code)
		assert.Equal(t, 15.00, res.DiscountAmount)
	})

	t.Run("superset of required risks still applies", func(t *testing.T) {
		calc := NewCalculator(standardRef(), testLogger())
		res, err := calc.ResolveBundleDiscount(ctx, []string{"SPORT_ACTIVITIES", "ACCIDENT_COVERAGE", ExtremeSportRiskCode}, 100.00, asOf)
		require.NoError(t, err)
		require.NotNil(t, res.Bundle)
	})

	t.Run("partial selection earns nothing", func(t *testing.T) {
		calc := NewCalculator(standardRef(), testLogger())
		res, err := calc.ResolveBundleDiscount(ctx, []string{"SPORT_ACTIVITIES"}, 100.00, asOf)
		require.NoError(t, err)
		assert.Nil(t, res.Bundle)
		assert.Zero(t, res.DiscountAmount)
	})

	t.Run("highest percentage wins, never cumulative", func(t *testing.T) {
		ref := standardRef()
		ref.bundles = append(ref.bundles, RiskBundle{
			Code:               "SPORTY",
			RequiredRiskCodes:  []string{"SPORT_ACTIVITIES"},
			DiscountPercentage: 20,
		})
		calc := NewCalculator(ref, testLogger())

		res, err := calc.ResolveBundleDiscount(ctx, []string{"SPORT_ACTIVITIES", "ACCIDENT_COVERAGE"}, 100.00, asOf)
		require.NoError(t, err)
		require.NotNil(t, res.Bundle)
		assert.Equal(t, "SPORTY", res.Bundle.Code)
		assert.Equal(t, 20.00, res.DiscountAmount)
	})

	t.Run("equal percentage breaks tie on code order", func(t *testing.T) {
		ref := standardRef()
		ref.bundles = []RiskBundle{
			{Code: "B_BUNDLE", RequiredRiskCodes: []string{"SPORT_ACTIVITIES"}, DiscountPercentage: 10},
			{Code: "A_BUNDLE", RequiredRiskCodes: []string{"SPORT_ACTIVITIES"}, DiscountPercentage: 10},
		}
		calc := NewCalculator(ref, testLogger())

		res, err := calc.ResolveBundleDiscount(ctx, []string{"SPORT_ACTIVITIES"}, 100.00, asOf)
		require.NoError(t, err)
		require.NotNil(t, res.Bundle)
		assert.Equal(t, "A_BUNDLE", res.Bundle.Code)
	})
}

func TestBuildRiskBreakdown(t *testing.T) {
	calc := NewCalculator(standardRef(), testLogger())

	additional := AdditionalRisksResult{
		TotalCoefficient: 0.35,
		PerRisk: []RiskCoefficient{
			{RiskCode: "SPORT_ACTIVITIES", BaseCoefficient: 0.20, AgeModifier: 1.0, ModifiedCoefficient: 0.20},
			{RiskCode: "ACCIDENT_COVERAGE", BaseCoefficient: 0.15, AgeModifier: 1.0, ModifiedCoefficient: 0.15},
		},
	}

	lines := calc.BuildRiskBreakdown(BaseRiskCode, 100.00, additional)
	require.Len(t, lines, 3)

	assert.Equal(t, BaseRiskCode, lines[0].RiskCode)
	assert.Equal(t, 100.00, lines[0].Premium)
	assert.Zero(t, lines[0].Coefficient)

	// additional lines sorted by code
	assert.Equal(t, "ACCIDENT_COVERAGE", lines[1].RiskCode)
	assert.Equal(t, 15.00, lines[1].Premium)
	assert.Equal(t, "SPORT_ACTIVITIES", lines[2].RiskCode)
	assert.Equal(t, 20.00, lines[2].Premium)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{14.0, 14.00},
		{14.004, 14.00},
		{14.999, 15.00},
		{0.125, 0.13},
		{0.375, 0.38},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round2(tt.in), "round2(%v)", tt.in)
	}
}
