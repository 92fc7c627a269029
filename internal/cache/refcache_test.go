package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apines/go-travelcover/internal/core"
	"github.com/apines/go-travelcover/internal/store/memory"
)

// countingPort counts how many lookups reach the underlying store.
type countingPort struct {
	core.ReferenceDataPort
	calls atomic.Int64
}

func (p *countingPort) FindCountry(ctx context.Context, iso string, asOf time.Time) (core.Country, error) {
	p.calls.Add(1)
	return p.ReferenceDataPort.FindCountry(ctx, iso, asOf)
}

func seededPort() *countingPort {
	store := memory.NewRefStore()
	store.AddCountry(core.Country{
		ISOCode:         "ES",
		RiskCoefficient: 1.0,
		Validity:        core.Validity{ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	return &countingPort{ReferenceDataPort: store}
}

func TestRefCacheHits(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	port := seededPort()
	c := New(port, time.Minute)
	defer c.Stop()

	first, err := c.FindCountry(ctx, "ES", asOf)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := c.FindCountry(ctx, "ES", asOf)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, int64(1), port.calls.Load())
}

func TestRefCacheKeysByDate(t *testing.T) {
	ctx := context.Background()
	port := seededPort()
	c := New(port, time.Minute)
	defer c.Stop()

	_, err := c.FindCountry(ctx, "ES", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = c.FindCountry(ctx, "ES", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// different as-of dates are distinct entries
	assert.Equal(t, int64(2), port.calls.Load())
}

func TestRefCacheCachesMisses(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	port := seededPort()
	c := New(port, time.Minute)
	defer c.Stop()

	for i := 0; i < 5; i++ {
		_, err := c.FindCountry(ctx, "XX", asOf)
		require.ErrorIs(t, err, core.ErrNotFound)
	}
	assert.Equal(t, int64(1), port.calls.Load())
}

func TestRefCacheExpiry(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	port := seededPort()
	c := New(port, 20*time.Millisecond)
	defer c.Stop()

	_, err := c.FindCountry(ctx, "ES", asOf)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = c.FindCountry(ctx, "ES", asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(2), port.calls.Load())
}

func TestRefCachePassesThroughAllLookups(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	store := memory.NewRefStore()
	v := core.Validity{ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store.AddCoverageLevel(core.MedicalCoverageLevel{Code: "BASIC", DailyRate: 2.0, Validity: v})
	store.AddRiskType(core.RiskType{Code: "SPORT", Coefficient: 0.2, Validity: v})
	store.AddAgeCoefficient(core.AgeCoefficient{AgeFrom: 18, AgeTo: 30, Coefficient: 1.0, Validity: v})
	store.AddDurationCoefficient(core.DurationCoefficient{DaysFrom: 1, DaysTo: 7, Coefficient: 1.0, Validity: v})
	store.AddAgeRiskModifier(core.AgeRiskModifier{RiskCode: "SPORT", AgeFrom: 18, AgeTo: 80, Modifier: 1.1, Validity: v})
	store.AddBundle(core.RiskBundle{Code: "B", RequiredRiskCodes: []string{"SPORT"}, DiscountPercentage: 10, Validity: v})
	store.AddCountryDefaultRate(core.CountryDefaultDayPremium{CountryISOCode: "ES", Amount: 2.5, Validity: v})
	store.AddConfigFlag(core.ConfigFlag{Key: "flag", Value: true, Validity: v})
	store.AddRuleParameter(core.RuleParameter{RuleName: "R", ParameterName: "p", Value: 42, Validity: v})

	c := New(store, time.Minute)
	defer c.Stop()

	level, err := c.FindCoverageLevel(ctx, "BASIC", asOf)
	require.NoError(t, err)
	assert.Equal(t, 2.0, level.DailyRate)

	risk, err := c.FindRiskType(ctx, "SPORT", asOf)
	require.NoError(t, err)
	assert.Equal(t, 0.2, risk.Coefficient)

	band, err := c.FindAgeCoefficient(ctx, 25, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1.0, band.Coefficient)

	dur, err := c.FindDurationCoefficient(ctx, 7, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1.0, dur.Coefficient)

	mod, err := c.FindAgeRiskModifier(ctx, "SPORT", 25, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1.1, mod.Modifier)

	bundles, err := c.FindAllActiveBundles(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	rate, err := c.FindCountryDefaultRate(ctx, "ES", asOf)
	require.NoError(t, err)
	assert.Equal(t, 2.5, rate.Amount)

	flag, err := c.FindBoolConfig(ctx, "flag", asOf, false)
	require.NoError(t, err)
	assert.True(t, flag)

	param, err := c.FindRuleParameter(ctx, "R", "p", asOf)
	require.NoError(t, err)
	assert.Equal(t, 42.0, param)
}
