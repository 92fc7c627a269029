package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// BaseRiskCode is the mandatory base medical risk automatically included in
// every policy. It heads every risk breakdown and never counts as an
// additional risk.
const BaseRiskCode = "MEDICAL_BASE"

// premiumStrategy is one way of turning a request into a premium. Exactly two
// implementations exist; both are pure over the request plus reference data
// as of the agreement start date.
type premiumStrategy interface {
	Mode() PricingMode
	Calculate(ctx context.Context, req QuoteRequest) (PremiumResult, error)
}

// medicalLevelStrategy prices from the coverage level's daily rate with the
// full coefficient stack, country risk included. Day count is exclusive of
// the final day (dateTo - dateFrom).
type medicalLevelStrategy struct {
	ref  ReferenceDataPort
	calc *Calculator
}

func (s *medicalLevelStrategy) Mode() PricingMode { return ModeMedicalLevel }

func (s *medicalLevelStrategy) Calculate(ctx context.Context, req QuoteRequest) (PremiumResult, error) {
	asOf := req.AsOf()

	level, err := s.ref.FindCoverageLevel(ctx, req.CoverageLevelCode, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PremiumResult{}, fmt.Errorf("%w: coverage level %q", ErrNotFound, req.CoverageLevelCode)
		}
		return PremiumResult{}, err
	}
	country, err := s.ref.FindCountry(ctx, req.CountryISO, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PremiumResult{}, fmt.Errorf("%w: country %q", ErrNotFound, req.CountryISO)
		}
		return PremiumResult{}, err
	}

	coeffEnabled, err := ageCoefficientEnabled(ctx, s.ref, req)
	if err != nil {
		return PremiumResult{}, err
	}
	ageRes, err := s.calc.ResolveAge(ctx, req.BirthDate, asOf, coeffEnabled)
	if err != nil {
		return PremiumResult{}, err
	}

	days, durationCoeff, err := s.calc.ResolveDuration(ctx, req.DateFrom, req.DateTo, asOf, false)
	if err != nil {
		return PremiumResult{}, err
	}

	additional, err := s.calc.ResolveAdditionalRisks(ctx, req.RiskCodes, ageRes.Age, asOf)
	if err != nil {
		return PremiumResult{}, err
	}

	totalCoeff := ageRes.Coefficient * country.RiskCoefficient * durationCoeff * (1 + additional.TotalCoefficient)
	basePremium := round2(level.DailyRate * totalCoeff * float64(days))

	bundle, err := s.calc.ResolveBundleDiscount(ctx, req.RiskCodes, basePremium, asOf)
	if err != nil {
		return PremiumResult{}, err
	}
	finalPremium := round2(basePremium - bundle.DiscountAmount)

	limit := level.EffectivePayoutLimit()
	limitApplied := level.MaxPayoutAmount != nil && *level.MaxPayoutAmount < level.CoverageAmount

	return PremiumResult{
		FinalPremium:         finalPremium,
		BaseRate:             level.DailyRate,
		AgeCoefficient:       ageRes.Coefficient,
		CountryCoefficient:   country.RiskCoefficient,
		DurationCoefficient:  durationCoeff,
		AdditionalRisksCoeff: additional.TotalCoefficient,
		TotalCoefficient:     totalCoeff,
		Days:                 days,
		CoverageAmount:       level.CoverageAmount,
		Currency:             level.Currency,
		RiskBreakdown:        s.calc.BuildRiskBreakdown(BaseRiskCode, basePremium, additional),
		BundleDiscount:       bundle,
		Steps: []CalcStep{
			{Name: "dailyRate", Value: level.DailyRate},
			{Name: "ageCoefficient", Value: ageRes.Coefficient},
			{Name: "countryCoefficient", Value: country.RiskCoefficient},
			{Name: "durationCoefficient", Value: durationCoeff},
			{Name: "additionalRisksCoefficient", Value: additional.TotalCoefficient},
			{Name: "totalCoefficient", Value: totalCoeff},
			{Name: "days", Value: float64(days)},
			{Name: "basePremium", Value: basePremium},
			{Name: "bundleDiscount", Value: bundle.DiscountAmount},
			{Name: "finalPremium", Value: finalPremium},
		},
		Mode:               ModeMedicalLevel,
		PayoutLimit:        &limit,
		PayoutLimitApplied: limitApplied,
	}, nil
}

// countryDefaultStrategy prices from the country's flat day rate. Country
// risk is deliberately not applied in this mode, and no coverage level is
// consulted, so payout-limit fields stay empty. Day count includes the final
// day (dateTo - dateFrom + 1).
type countryDefaultStrategy struct {
	ref  ReferenceDataPort
	calc *Calculator
}

func (s *countryDefaultStrategy) Mode() PricingMode { return ModeCountryDefault }

func (s *countryDefaultStrategy) Calculate(ctx context.Context, req QuoteRequest) (PremiumResult, error) {
	asOf := req.AsOf()

	rate, err := s.ref.FindCountryDefaultRate(ctx, req.CountryISO, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PremiumResult{}, fmt.Errorf("%w: country default rate for %q", ErrNotFound, req.CountryISO)
		}
		return PremiumResult{}, err
	}

	coeffEnabled, err := ageCoefficientEnabled(ctx, s.ref, req)
	if err != nil {
		return PremiumResult{}, err
	}
	ageRes, err := s.calc.ResolveAge(ctx, req.BirthDate, asOf, coeffEnabled)
	if err != nil {
		return PremiumResult{}, err
	}

	days, durationCoeff, err := s.calc.ResolveDuration(ctx, req.DateFrom, req.DateTo, asOf, true)
	if err != nil {
		return PremiumResult{}, err
	}

	additional, err := s.calc.ResolveAdditionalRisks(ctx, req.RiskCodes, ageRes.Age, asOf)
	if err != nil {
		return PremiumResult{}, err
	}

	basePremium := round2(rate.Amount * ageRes.Coefficient * durationCoeff * float64(days))
	if additional.TotalCoefficient > 0 {
		basePremium = round2(basePremium * (1 + additional.TotalCoefficient))
	}

	bundle, err := s.calc.ResolveBundleDiscount(ctx, req.RiskCodes, basePremium, asOf)
	if err != nil {
		return PremiumResult{}, err
	}
	finalPremium := round2(basePremium - bundle.DiscountAmount)

	return PremiumResult{
		FinalPremium:         finalPremium,
		BaseRate:             rate.Amount,
		AgeCoefficient:       ageRes.Coefficient,
		CountryCoefficient:   1.0,
		DurationCoefficient:  durationCoeff,
		AdditionalRisksCoeff: additional.TotalCoefficient,
		TotalCoefficient:     ageRes.Coefficient * durationCoeff * (1 + additional.TotalCoefficient),
		Days:                 days,
		Currency:             rate.Currency,
		RiskBreakdown:        s.calc.BuildRiskBreakdown(BaseRiskCode, basePremium, additional),
		BundleDiscount:       bundle,
		Steps: []CalcStep{
			{Name: "defaultDayRate", Value: rate.Amount},
			{Name: "ageCoefficient", Value: ageRes.Coefficient},
			{Name: "durationCoefficient", Value: durationCoeff},
			{Name: "additionalRisksCoefficient", Value: additional.TotalCoefficient},
			{Name: "days", Value: float64(days)},
			{Name: "basePremium", Value: basePremium},
			{Name: "bundleDiscount", Value: bundle.DiscountAmount},
			{Name: "finalPremium", Value: finalPremium},
		},
		Mode: ModeCountryDefault,
	}, nil
}

func ageCoefficientEnabled(ctx context.Context, ref ReferenceDataPort, req QuoteRequest) (bool, error) {
	if req.AgeCoefficientOverride != nil {
		return *req.AgeCoefficientOverride, nil
	}
	return ref.FindBoolConfig(ctx, ConfigKeyAgeCoefficient, req.AsOf(), true)
}

// PremiumEngine selects the applicable strategy for a request. Selection is a
// pure predicate over the request and reference data; calling it twice with
// the same inputs picks the same mode.
type PremiumEngine struct {
	ref     ReferenceDataPort
	medical premiumStrategy
	country premiumStrategy
	log     *slog.Logger
}

func NewPremiumEngine(ref ReferenceDataPort, log *slog.Logger) *PremiumEngine {
	calc := NewCalculator(ref, log)
	return &PremiumEngine{
		ref:     ref,
		medical: &medicalLevelStrategy{ref: ref, calc: calc},
		country: &countryDefaultStrategy{ref: ref, calc: calc},
		log:     log,
	}
}

// Calculate prices the request with the selected strategy.
func (e *PremiumEngine) Calculate(ctx context.Context, req QuoteRequest) (PremiumResult, error) {
	if err := req.Validate(); err != nil {
		return PremiumResult{}, err
	}

	strategy, err := e.selectStrategy(ctx, req)
	if err != nil {
		return PremiumResult{}, err
	}

	result, err := strategy.Calculate(ctx, req)
	if err != nil {
		return PremiumResult{}, err
	}

	e.log.Info("premium calculated",
		"mode", result.Mode,
		"country", req.CountryISO,
		"days", result.Days,
		"final_premium", result.FinalPremium)
	return result, nil
}

// selectStrategy picks country-default mode only when the request opts in and
// a default day rate exists; everything else prices by medical level. The
// fallback is mandatory, not best-effort.
func (e *PremiumEngine) selectStrategy(ctx context.Context, req QuoteRequest) (premiumStrategy, error) {
	if !req.UseCountryDefault {
		return e.medical, nil
	}
	_, err := e.ref.FindCountryDefaultRate(ctx, req.CountryISO, req.AsOf())
	switch {
	case err == nil:
		return e.country, nil
	case errors.Is(err, ErrNotFound):
		e.log.Debug("no country default rate, falling back to medical-level mode",
			"country", req.CountryISO, "as_of", req.AsOf())
		return e.medical, nil
	default:
		return nil, err
	}
}
