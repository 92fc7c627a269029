package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// MaxInsurableAge is the hard ceiling; applicants older than this cannot be priced.
const MaxInsurableAge = 80

// fallbackAgeBands mirrors the reference-data seed. Used only when the
// lookup misses, which signals a data-completeness problem; usage is logged
// and flagged on the result.
var fallbackAgeBands = []AgeCoefficient{
	{AgeFrom: 0, AgeTo: 5, Coefficient: 1.10},
	{AgeFrom: 6, AgeTo: 17, Coefficient: 0.90},
	{AgeFrom: 18, AgeTo: 30, Coefficient: 1.00},
	{AgeFrom: 31, AgeTo: 40, Coefficient: 1.10},
	{AgeFrom: 41, AgeTo: 50, Coefficient: 1.30},
	{AgeFrom: 51, AgeTo: 60, Coefficient: 1.60},
	{AgeFrom: 61, AgeTo: 70, Coefficient: 2.00},
	{AgeFrom: 71, AgeTo: 80, Coefficient: 2.50},
}

// Calculator holds the shared calculation components used by both pricing
// strategies. It is stateless and safe for concurrent use.
type Calculator struct {
	ref ReferenceDataPort
	log *slog.Logger
}

func NewCalculator(ref ReferenceDataPort, log *slog.Logger) *Calculator {
	return &Calculator{ref: ref, log: log}
}

// AgeAt returns whole years between birthDate and asOf.
func AgeAt(birthDate, asOf time.Time) int {
	years := asOf.Year() - birthDate.Year()
	if asOf.Month() < birthDate.Month() ||
		(asOf.Month() == birthDate.Month() && asOf.Day() < birthDate.Day()) {
		years--
	}
	return years
}

// ResolveAge computes the applicant age and its pricing coefficient. When
// coefficientEnabled is false the coefficient is forced to 1.0.
func (c *Calculator) ResolveAge(ctx context.Context, birthDate, asOf time.Time, coefficientEnabled bool) (AgeResult, error) {
	if birthDate.IsZero() {
		return AgeResult{}, fmt.Errorf("%w: missing birth date", ErrValidation)
	}
	if birthDate.After(asOf) {
		return AgeResult{}, fmt.Errorf("%w: birth date is in the future", ErrValidation)
	}

	age := AgeAt(birthDate, asOf)
	if age < 0 {
		return AgeResult{}, fmt.Errorf("%w: negative age", ErrValidation)
	}
	if age > MaxInsurableAge {
		return AgeResult{}, fmt.Errorf("%w: age %d exceeds insurable maximum %d", ErrValidation, age, MaxInsurableAge)
	}

	if !coefficientEnabled {
		return AgeResult{Age: age, Coefficient: 1.0, GroupLabel: "disabled"}, nil
	}

	band, err := c.ref.FindAgeCoefficient(ctx, age, asOf)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return AgeResult{}, err
		}
		fb, ok := fallbackAgeBand(age)
		if !ok {
			return AgeResult{}, fmt.Errorf("%w: no age coefficient band for age %d", ErrNotFound, age)
		}
		c.log.Warn("age coefficient missing from reference data, using built-in fallback",
			"age", age, "as_of", asOf, "coefficient", fb.Coefficient)
		return AgeResult{Age: age, Coefficient: fb.Coefficient, GroupLabel: fb.Label(), FallbackUsed: true}, nil
	}

	return AgeResult{Age: age, Coefficient: band.Coefficient, GroupLabel: band.Label()}, nil
}

func fallbackAgeBand(age int) (AgeCoefficient, bool) {
	for _, b := range fallbackAgeBands {
		if age >= b.AgeFrom && age <= b.AgeTo {
			return b, true
		}
	}
	return AgeCoefficient{}, false
}

// ResolveDuration returns the trip length in whole days and its coefficient.
// inclusiveEnd adds one day so the final day counts; which convention applies
// is fixed per pricing strategy and must not be unified.
func (c *Calculator) ResolveDuration(ctx context.Context, dateFrom, dateTo, asOf time.Time, inclusiveEnd bool) (int, float64, error) {
	if dateTo.Before(dateFrom) {
		return 0, 0, fmt.Errorf("%w: date_to before date_from", ErrValidation)
	}

	days := int(dateTo.Sub(dateFrom).Hours() / 24)
	if inclusiveEnd {
		days++
	}

	band, err := c.ref.FindDurationCoefficient(ctx, days, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return days, 1.0, nil
		}
		return 0, 0, err
	}
	return days, band.Coefficient, nil
}

// ResolveAdditionalRisks sums the age-modified coefficients of the selected
// non-mandatory risks. Codes that do not resolve to an active risk type are
// skipped; the mandatory risk never contributes even if selected.
func (c *Calculator) ResolveAdditionalRisks(ctx context.Context, selected []string, age int, asOf time.Time) (AdditionalRisksResult, error) {
	var result AdditionalRisksResult

	for _, code := range selected {
		rt, err := c.ref.FindRiskType(ctx, code, asOf)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.log.Debug("selected risk not found, skipping", "risk_code", code, "as_of", asOf)
				continue
			}
			return AdditionalRisksResult{}, err
		}
		if rt.IsMandatory {
			continue
		}

		modifier := 1.0
		mod, err := c.ref.FindAgeRiskModifier(ctx, code, age, asOf)
		switch {
		case err == nil:
			modifier = mod.Modifier
		case !errors.Is(err, ErrNotFound):
			return AdditionalRisksResult{}, err
		}

		rc := RiskCoefficient{
			RiskCode:            code,
			BaseCoefficient:     rt.Coefficient,
			AgeModifier:         modifier,
			ModifiedCoefficient: rt.Coefficient * modifier,
		}
		result.PerRisk = append(result.PerRisk, rc)
		result.TotalCoefficient += rc.ModifiedCoefficient
	}

	return result, nil
}

// ResolveBundleDiscount picks the applicable bundle with the highest discount
// percentage; ties break on lexical code order so the choice is deterministic.
// Bundles are never cumulative.
func (c *Calculator) ResolveBundleDiscount(ctx context.Context, selected []string, premium float64, asOf time.Time) (BundleDiscountResult, error) {
	bundles, err := c.ref.FindAllActiveBundles(ctx, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return BundleDiscountResult{}, nil
		}
		return BundleDiscountResult{}, err
	}

	var best *RiskBundle
	for i := range bundles {
		b := bundles[i]
		if !b.AppliesTo(selected) {
			continue
		}
		if best == nil ||
			b.DiscountPercentage > best.DiscountPercentage ||
			(b.DiscountPercentage == best.DiscountPercentage && b.Code < best.Code) {
			best = &bundles[i]
		}
	}
	if best == nil {
		return BundleDiscountResult{}, nil
	}

	return BundleDiscountResult{
		Bundle:         best,
		DiscountAmount: round2(premium * best.DiscountPercentage / 100),
	}, nil
}

// BuildRiskBreakdown constructs the per-risk premium lines. The first line is
// always the mandatory base risk at the computed base premium, carried with a
// zero coefficient as an informational placeholder.
func (c *Calculator) BuildRiskBreakdown(mandatoryCode string, basePremium float64, additional AdditionalRisksResult) []RiskPremiumLine {
	lines := []RiskPremiumLine{{
		RiskCode:    mandatoryCode,
		Coefficient: 0,
		AgeModifier: 1,
		Premium:     basePremium,
	}}

	perRisk := make([]RiskCoefficient, len(additional.PerRisk))
	copy(perRisk, additional.PerRisk)
	sort.Slice(perRisk, func(i, j int) bool { return perRisk[i].RiskCode < perRisk[j].RiskCode })

	for _, rc := range perRisk {
		lines = append(lines, RiskPremiumLine{
			RiskCode:    rc.RiskCode,
			Coefficient: rc.BaseCoefficient,
			AgeModifier: rc.AgeModifier,
			Premium:     round2(basePremium * rc.ModifiedCoefficient),
		})
	}
	return lines
}

// round2 rounds half-up to two decimal places. Intermediate coefficients are
// carried at full precision; rounding applies at the final multiplication or
// sum of each named quantity.
func round2(x float64) float64 {
	return float64(int64(x*100+0.5)) / 100.0
}
