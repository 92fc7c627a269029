package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apines/go-travelcover/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func window(from time.Time, to *time.Time) core.Validity {
	return core.Validity{ValidFrom: from, ValidTo: to}
}

func TestRefStoreTemporalLookups(t *testing.T) {
	ctx := context.Background()

	jan1 := day(2025, time.January, 1)
	jul1 := day(2025, time.July, 1)

	store := NewRefStore()
	store.AddCountry(core.Country{
		ISOCode: "ES", RiskCoefficient: 1.00,
		Validity: window(jan1, &jul1),
	})
	store.AddCountry(core.Country{
		ISOCode: "ES", RiskCoefficient: 1.20,
		Validity: window(jul1, nil),
	})

	t.Run("resolves the record active at the date", func(t *testing.T) {
		c, err := store.FindCountry(ctx, "ES", day(2025, time.March, 1))
		require.NoError(t, err)
		assert.Equal(t, 1.00, c.RiskCoefficient)

		c, err = store.FindCountry(ctx, "ES", day(2025, time.September, 1))
		require.NoError(t, err)
		assert.Equal(t, 1.20, c.RiskCoefficient)
	})

	t.Run("valid_to boundary belongs to the successor", func(t *testing.T) {
		c, err := store.FindCountry(ctx, "ES", jul1)
		require.NoError(t, err)
		assert.Equal(t, 1.20, c.RiskCoefficient)
	})

	t.Run("before the first window is not found", func(t *testing.T) {
		_, err := store.FindCountry(ctx, "ES", day(2024, time.June, 1))
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		_, err := store.FindCountry(ctx, "XX", day(2025, time.March, 1))
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("overlapping records are a conflict, not a silent pick", func(t *testing.T) {
		bad := NewRefStore()
		bad.AddCountry(core.Country{ISOCode: "FR", RiskCoefficient: 1.0, Validity: window(jan1, nil)})
		bad.AddCountry(core.Country{ISOCode: "FR", RiskCoefficient: 2.0, Validity: window(jul1, nil)})

		_, err := bad.FindCountry(ctx, "FR", day(2025, time.September, 1))
		require.ErrorIs(t, err, core.ErrConflict)
		require.ErrorIs(t, err, core.ErrAmbiguousReference)
	})
}

func TestRefStoreBandLookups(t *testing.T) {
	ctx := context.Background()
	asOf := day(2026, time.June, 1)

	store := NewRefStore()
	store.AddAgeCoefficient(core.AgeCoefficient{AgeFrom: 18, AgeTo: 30, Coefficient: 1.00})
	store.AddAgeCoefficient(core.AgeCoefficient{AgeFrom: 31, AgeTo: 40, Coefficient: 1.10})
	store.AddDurationCoefficient(core.DurationCoefficient{DaysFrom: 1, DaysTo: 7, Coefficient: 1.00})
	store.AddAgeRiskModifier(core.AgeRiskModifier{RiskCode: "EXTREME_SPORT", AgeFrom: 41, AgeTo: 80, Modifier: 1.80})

	t.Run("bounds are inclusive", func(t *testing.T) {
		for _, age := range []int{18, 30} {
			b, err := store.FindAgeCoefficient(ctx, age, asOf)
			require.NoError(t, err)
			assert.Equal(t, 1.00, b.Coefficient)
		}
		b, err := store.FindAgeCoefficient(ctx, 31, asOf)
		require.NoError(t, err)
		assert.Equal(t, 1.10, b.Coefficient)
	})

	t.Run("outside all bands is not found", func(t *testing.T) {
		_, err := store.FindAgeCoefficient(ctx, 50, asOf)
		require.ErrorIs(t, err, core.ErrNotFound)

		_, err = store.FindDurationCoefficient(ctx, 10, asOf)
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("modifier matches risk code and age band together", func(t *testing.T) {
		m, err := store.FindAgeRiskModifier(ctx, "EXTREME_SPORT", 65, asOf)
		require.NoError(t, err)
		assert.Equal(t, 1.80, m.Modifier)

		_, err = store.FindAgeRiskModifier(ctx, "EXTREME_SPORT", 25, asOf)
		require.ErrorIs(t, err, core.ErrNotFound)

		_, err = store.FindAgeRiskModifier(ctx, "LUGGAGE", 65, asOf)
		require.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestRefStoreConfigAndParams(t *testing.T) {
	ctx := context.Background()
	asOf := day(2026, time.June, 1)

	store := NewRefStore()
	store.AddConfigFlag(core.ConfigFlag{Key: "ageCoefficientEnabled", Value: false})
	store.AddRuleParameter(core.RuleParameter{RuleName: "TRIP_DURATION", ParameterName: "blockDays", Value: 180})

	t.Run("flag value wins over the default", func(t *testing.T) {
		v, err := store.FindBoolConfig(ctx, "ageCoefficientEnabled", asOf, true)
		require.NoError(t, err)
		assert.False(t, v)
	})

	t.Run("missing flag returns the default", func(t *testing.T) {
		v, err := store.FindBoolConfig(ctx, "noSuchFlag", asOf, true)
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("rule parameter lookup", func(t *testing.T) {
		v, err := store.FindRuleParameter(ctx, "TRIP_DURATION", "blockDays", asOf)
		require.NoError(t, err)
		assert.Equal(t, 180.0, v)

		_, err = store.FindRuleParameter(ctx, "TRIP_DURATION", "reviewDays", asOf)
		require.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestRefStoreCheckOverlaps(t *testing.T) {
	jan1 := day(2025, time.January, 1)
	jul1 := day(2025, time.July, 1)

	t.Run("adjacent windows do not overlap", func(t *testing.T) {
		store := NewRefStore()
		store.AddCountry(core.Country{ISOCode: "ES", Validity: window(jan1, &jul1)})
		store.AddCountry(core.Country{ISOCode: "ES", Validity: window(jul1, nil)})
		require.NoError(t, store.CheckOverlaps())
	})

	t.Run("two open-ended windows for one code overlap", func(t *testing.T) {
		store := NewRefStore()
		store.AddCountry(core.Country{ISOCode: "ES", Validity: window(jan1, nil)})
		store.AddCountry(core.Country{ISOCode: "ES", Validity: window(jul1, nil)})
		require.ErrorIs(t, store.CheckOverlaps(), core.ErrConflict)
	})

	t.Run("same window for different codes is fine", func(t *testing.T) {
		store := NewRefStore()
		store.AddCountry(core.Country{ISOCode: "ES", Validity: window(jan1, nil)})
		store.AddCountry(core.Country{ISOCode: "FR", Validity: window(jan1, nil)})
		require.NoError(t, store.CheckOverlaps())
	})
}
