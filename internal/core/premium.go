package core

import (
	"fmt"
	"time"
)

// PricingMode identifies which strategy produced a premium result.
type PricingMode string

const (
	ModeMedicalLevel   PricingMode = "MEDICAL_LEVEL"
	ModeCountryDefault PricingMode = "COUNTRY_DEFAULT"
)

// QuoteRequest is the shared request shape consumed by both the underwriting
// engine and the premium engine. The as-of date for all reference lookups is
// the agreement start date (DateFrom).
type QuoteRequest struct {
	BirthDate         time.Time `json:"birth_date"`
	DateFrom          time.Time `json:"date_from"`
	DateTo            time.Time `json:"date_to"`
	CountryISO        string    `json:"country_iso"`
	CoverageLevelCode string    `json:"coverage_level_code"`
	RiskCodes         []string  `json:"risk_codes"`

	// UseCountryDefault opts into the country flat-rate mode; the engine
	// still falls back to medical-level pricing when no default rate exists.
	UseCountryDefault bool `json:"use_country_default"`

	// AgeCoefficientOverride, when set, overrides the global config flag.
	AgeCoefficientOverride *bool `json:"age_coefficient_override,omitempty"`
}

// AsOf is the reference date for all temporal lookups.
func (r QuoteRequest) AsOf() time.Time { return r.DateFrom }

func (r QuoteRequest) Validate() error {
	if r.BirthDate.IsZero() {
		return fmt.Errorf("%w: missing birth date", ErrValidation)
	}
	if r.DateFrom.IsZero() || r.DateTo.IsZero() {
		return fmt.Errorf("%w: missing agreement dates", ErrValidation)
	}
	if r.DateTo.Before(r.DateFrom) {
		return fmt.Errorf("%w: date_to before date_from", ErrValidation)
	}
	if r.CountryISO == "" {
		return fmt.Errorf("%w: missing country", ErrValidation)
	}
	if !r.UseCountryDefault && r.CoverageLevelCode == "" {
		return fmt.Errorf("%w: missing coverage level", ErrValidation)
	}
	return nil
}

// AgeResult is the resolved applicant age and its pricing coefficient.
type AgeResult struct {
	Age          int     `json:"age"`
	Coefficient  float64 `json:"coefficient"`
	GroupLabel   string  `json:"group_label"`
	FallbackUsed bool    `json:"fallback_used"` // built-in table masked a data gap
}

// RiskCoefficient is one selected risk with its age-modified coefficient.
type RiskCoefficient struct {
	RiskCode            string  `json:"risk_code"`
	BaseCoefficient     float64 `json:"base_coefficient"`
	AgeModifier         float64 `json:"age_modifier"`
	ModifiedCoefficient float64 `json:"modified_coefficient"`
}

// AdditionalRisksResult aggregates the non-mandatory selected risks. The
// total is used downstream as the additive factor (1 + total), never as a
// direct multiplier.
type AdditionalRisksResult struct {
	TotalCoefficient float64           `json:"total_coefficient"`
	PerRisk          []RiskCoefficient `json:"per_risk"`
}

// BundleDiscountResult is the single best applicable bundle, if any.
type BundleDiscountResult struct {
	Bundle         *RiskBundle `json:"bundle,omitempty"`
	DiscountAmount float64     `json:"discount_amount"`
}

// RiskPremiumLine is one row of the per-risk premium breakdown.
type RiskPremiumLine struct {
	RiskCode    string  `json:"risk_code"`
	Coefficient float64 `json:"coefficient"`
	AgeModifier float64 `json:"age_modifier"`
	Premium     float64 `json:"premium"`
}

// CalcStep records one named quantity of the computation for auditability.
type CalcStep struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PremiumResult is the structured outcome of one premium computation.
type PremiumResult struct {
	FinalPremium          float64 `json:"final_premium"`
	BaseRate              float64 `json:"base_rate"`
	AgeCoefficient        float64 `json:"age_coefficient"`
	CountryCoefficient    float64 `json:"country_coefficient"`
	DurationCoefficient   float64 `json:"duration_coefficient"`
	AdditionalRisksCoeff  float64 `json:"additional_risks_coefficient"`
	TotalCoefficient      float64 `json:"total_coefficient"`
	Days                  int     `json:"days"`
	CoverageAmount        float64 `json:"coverage_amount"`
	Currency              string  `json:"currency"`

	RiskBreakdown  []RiskPremiumLine    `json:"risk_breakdown"`
	BundleDiscount BundleDiscountResult `json:"bundle_discount"`
	Steps          []CalcStep           `json:"steps"`

	Mode               PricingMode `json:"mode"`
	PayoutLimit        *float64    `json:"payout_limit,omitempty"`
	PayoutLimitApplied bool        `json:"payout_limit_applied"`
}
