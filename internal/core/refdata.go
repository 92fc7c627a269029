package core

import (
	"context"
	"fmt"
	"time"
)

// RiskGroup classifies a destination country for underwriting purposes.
type RiskGroup string

const (
	RiskGroupLow      RiskGroup = "LOW"
	RiskGroupMedium   RiskGroup = "MEDIUM"
	RiskGroupHigh     RiskGroup = "HIGH"
	RiskGroupVeryHigh RiskGroup = "VERY_HIGH"
)

// Validity is the temporal window shared by all reference-data records.
// ValidTo == nil means open-ended. The window is half-open: a record is
// active at t when ValidFrom <= t < ValidTo.
type Validity struct {
	ValidFrom time.Time  `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
}

// ActiveAt reports whether the record is active as of the given date.
func (v Validity) ActiveAt(t time.Time) bool {
	if t.Before(v.ValidFrom) {
		return false
	}
	return v.ValidTo == nil || t.Before(*v.ValidTo)
}

// Overlaps reports whether two validity windows intersect.
func (v Validity) Overlaps(o Validity) bool {
	if v.ValidTo != nil && !o.ValidFrom.Before(*v.ValidTo) {
		return false
	}
	if o.ValidTo != nil && !v.ValidFrom.Before(*o.ValidTo) {
		return false
	}
	return true
}

// Country is a destination with its pricing coefficient and risk group.
type Country struct {
	ISOCode         string    `json:"iso_code"`
	Name            string    `json:"name"`
	RiskCoefficient float64   `json:"risk_coefficient"`
	RiskGroup       RiskGroup `json:"risk_group"`
	Validity        `json:"validity"`
}

// MedicalCoverageLevel is a tier of medical coverage with its day rate.
type MedicalCoverageLevel struct {
	Code            string   `json:"code"`
	DailyRate       float64  `json:"daily_rate"`
	CoverageAmount  float64  `json:"coverage_amount"`
	Currency        string   `json:"currency"`
	MaxPayoutAmount *float64 `json:"max_payout_amount,omitempty"`
	Validity        `json:"validity"`
}

// EffectivePayoutLimit is the payout ceiling actually applied: the explicit
// max payout when configured, otherwise the coverage amount.
func (l MedicalCoverageLevel) EffectivePayoutLimit() float64 {
	if l.MaxPayoutAmount != nil {
		return *l.MaxPayoutAmount
	}
	return l.CoverageAmount
}

// RiskType is an insurable risk. Exactly one mandatory risk exists (the base
// medical risk); it is never counted among additional risks.
type RiskType struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
	IsMandatory bool    `json:"is_mandatory"`
	Validity    `json:"validity"`
}

// AgeCoefficient is a pricing band over applicant age, bounds inclusive.
type AgeCoefficient struct {
	AgeFrom     int     `json:"age_from"`
	AgeTo       int     `json:"age_to"`
	Coefficient float64 `json:"coefficient"`
	Validity    `json:"validity"`
}

// Label renders the band as "from-to" for result breakdowns.
func (a AgeCoefficient) Label() string {
	return fmt.Sprintf("%d-%d", a.AgeFrom, a.AgeTo)
}

// DurationCoefficient is a pricing band over trip length in days, bounds inclusive.
type DurationCoefficient struct {
	DaysFrom    int     `json:"days_from"`
	DaysTo      int     `json:"days_to"`
	Coefficient float64 `json:"coefficient"`
	Validity    `json:"validity"`
}

// AgeRiskModifier scales a single risk's coefficient for an age band.
type AgeRiskModifier struct {
	RiskCode string  `json:"risk_code"`
	AgeFrom  int     `json:"age_from"`
	AgeTo    int     `json:"age_to"`
	Modifier float64 `json:"modifier"`
	Validity `json:"validity"`
}

// RiskBundle is a named discount unlocked when all required risks are selected.
type RiskBundle struct {
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	RequiredRiskCodes  []string `json:"required_risk_codes"`
	DiscountPercentage float64  `json:"discount_percentage"`
	Validity           `json:"validity"`
}

// AppliesTo reports whether every required risk is among the selected codes.
func (b RiskBundle) AppliesTo(selected []string) bool {
	set := make(map[string]struct{}, len(selected))
	for _, code := range selected {
		set[code] = struct{}{}
	}
	for _, req := range b.RequiredRiskCodes {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}

// CountryDefaultDayPremium is the alternate flat day rate for a destination,
// used by the country-default pricing mode.
type CountryDefaultDayPremium struct {
	CountryISOCode string  `json:"country_iso_code"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Validity       `json:"validity"`
}

// ConfigFlag is a temporally-versioned boolean toggle.
type ConfigFlag struct {
	Key      string `json:"key"`
	Value    bool   `json:"value"`
	Validity `json:"validity"`
}

// RuleParameter is a tunable threshold for one underwriting rule.
type RuleParameter struct {
	RuleName      string  `json:"rule_name"`
	ParameterName string  `json:"parameter_name"`
	Value         float64 `json:"value"`
	Validity      `json:"validity"`
}

// ConfigKeyAgeCoefficient toggles age-coefficient pricing globally.
const ConfigKeyAgeCoefficient = "ageCoefficientEnabled"

// ReferenceDataPort is the lookup contract the engines depend on. Every
// lookup resolves to at most one active record for a (code, asOf) pair;
// stores must report overlapping active records as ErrConflict rather than
// silently picking one. Missing records are ErrNotFound.
type ReferenceDataPort interface {
	FindCountry(ctx context.Context, isoCode string, asOf time.Time) (Country, error)
	FindCoverageLevel(ctx context.Context, code string, asOf time.Time) (MedicalCoverageLevel, error)
	FindRiskType(ctx context.Context, code string, asOf time.Time) (RiskType, error)
	FindAgeCoefficient(ctx context.Context, age int, asOf time.Time) (AgeCoefficient, error)
	FindDurationCoefficient(ctx context.Context, days int, asOf time.Time) (DurationCoefficient, error)
	FindAgeRiskModifier(ctx context.Context, riskCode string, age int, asOf time.Time) (AgeRiskModifier, error)
	FindAllActiveBundles(ctx context.Context, asOf time.Time) ([]RiskBundle, error)
	FindCountryDefaultRate(ctx context.Context, isoCode string, asOf time.Time) (CountryDefaultDayPremium, error)
	FindBoolConfig(ctx context.Context, key string, asOf time.Time, def bool) (bool, error)
	FindRuleParameter(ctx context.Context, ruleName, paramName string, asOf time.Time) (float64, error)
}

var (
	ErrCountryNotFound       = fmt.Errorf("%w: country not found", ErrNotFound)
	ErrCoverageLevelNotFound = fmt.Errorf("%w: medical coverage level not found", ErrNotFound)
	ErrRiskTypeNotFound      = fmt.Errorf("%w: risk type not found", ErrNotFound)
	ErrAmbiguousReference    = fmt.Errorf("%w: multiple active reference records", ErrConflict)
)
