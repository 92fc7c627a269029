package mongo

import (
	"time"

	"github.com/apines/go-travelcover/internal/core"
)

const (
	ColCountries            = "countries"
	ColCoverageLevels       = "coverage_levels"
	ColRiskTypes            = "risk_types"
	ColAgeCoefficients      = "age_coefficients"
	ColDurationCoefficients = "duration_coefficients"
	ColAgeRiskModifiers     = "age_risk_modifiers"
	ColRiskBundles          = "risk_bundles"
	ColCountryDefaultRates  = "country_default_rates"
	ColConfigFlags          = "config_flags"
	ColRuleParameters       = "rule_parameters"
	ColQuotes               = "quotes"
	ColPromoCodes           = "promo_codes"
)

// validityDoc is embedded in every reference document.
type validityDoc struct {
	ValidFrom time.Time  `bson:"valid_from"`
	ValidTo   *time.Time `bson:"valid_to,omitempty"`
}

func (v validityDoc) toCore() core.Validity {
	return core.Validity{ValidFrom: v.ValidFrom, ValidTo: v.ValidTo}
}

func toValidityDoc(v core.Validity) validityDoc {
	return validityDoc{ValidFrom: v.ValidFrom, ValidTo: v.ValidTo}
}

type countryDoc struct {
	ISOCode         string  `bson:"iso_code"`
	Name            string  `bson:"name"`
	RiskCoefficient float64 `bson:"risk_coefficient"`
	RiskGroup       string  `bson:"risk_group"`
	validityDoc     `bson:",inline"`
}

func (d countryDoc) toCore() core.Country {
	return core.Country{
		ISOCode:         d.ISOCode,
		Name:            d.Name,
		RiskCoefficient: d.RiskCoefficient,
		RiskGroup:       core.RiskGroup(d.RiskGroup),
		Validity:        d.validityDoc.toCore(),
	}
}

type coverageLevelDoc struct {
	Code            string   `bson:"code"`
	DailyRate       float64  `bson:"daily_rate"`
	CoverageAmount  float64  `bson:"coverage_amount"`
	Currency        string   `bson:"currency"`
	MaxPayoutAmount *float64 `bson:"max_payout_amount,omitempty"`
	validityDoc     `bson:",inline"`
}

func (d coverageLevelDoc) toCore() core.MedicalCoverageLevel {
	return core.MedicalCoverageLevel{
		Code:            d.Code,
		DailyRate:       d.DailyRate,
		CoverageAmount:  d.CoverageAmount,
		Currency:        d.Currency,
		MaxPayoutAmount: d.MaxPayoutAmount,
		Validity:        d.validityDoc.toCore(),
	}
}

type riskTypeDoc struct {
	Code        string  `bson:"code"`
	Name        string  `bson:"name"`
	Coefficient float64 `bson:"coefficient"`
	IsMandatory bool    `bson:"is_mandatory"`
	validityDoc `bson:",inline"`
}

func (d riskTypeDoc) toCore() core.RiskType {
	return core.RiskType{
		Code:        d.Code,
		Name:        d.Name,
		Coefficient: d.Coefficient,
		IsMandatory: d.IsMandatory,
		Validity:    d.validityDoc.toCore(),
	}
}

type ageCoefficientDoc struct {
	AgeFrom     int     `bson:"age_from"`
	AgeTo       int     `bson:"age_to"`
	Coefficient float64 `bson:"coefficient"`
	validityDoc `bson:",inline"`
}

func (d ageCoefficientDoc) toCore() core.AgeCoefficient {
	return core.AgeCoefficient{
		AgeFrom:     d.AgeFrom,
		AgeTo:       d.AgeTo,
		Coefficient: d.Coefficient,
		Validity:    d.validityDoc.toCore(),
	}
}

type durationCoefficientDoc struct {
	DaysFrom    int     `bson:"days_from"`
	DaysTo      int     `bson:"days_to"`
	Coefficient float64 `bson:"coefficient"`
	validityDoc `bson:",inline"`
}

func (d durationCoefficientDoc) toCore() core.DurationCoefficient {
	return core.DurationCoefficient{
		DaysFrom:    d.DaysFrom,
		DaysTo:      d.DaysTo,
		Coefficient: d.Coefficient,
		Validity:    d.validityDoc.toCore(),
	}
}

type ageRiskModifierDoc struct {
	RiskCode    string  `bson:"risk_code"`
	AgeFrom     int     `bson:"age_from"`
	AgeTo       int     `bson:"age_to"`
	Modifier    float64 `bson:"modifier"`
	validityDoc `bson:",inline"`
}

func (d ageRiskModifierDoc) toCore() core.AgeRiskModifier {
	return core.AgeRiskModifier{
		RiskCode: d.RiskCode,
		AgeFrom:  d.AgeFrom,
		AgeTo:    d.AgeTo,
		Modifier: d.Modifier,
		Validity: d.validityDoc.toCore(),
	}
}

type riskBundleDoc struct {
	Code               string   `bson:"code"`
	Name               string   `bson:"name"`
	RequiredRiskCodes  []string `bson:"required_risk_codes"`
	DiscountPercentage float64  `bson:"discount_percentage"`
	validityDoc        `bson:",inline"`
}

func (d riskBundleDoc) toCore() core.RiskBundle {
	return core.RiskBundle{
		Code:               d.Code,
		Name:               d.Name,
		RequiredRiskCodes:  d.RequiredRiskCodes,
		DiscountPercentage: d.DiscountPercentage,
		Validity:           d.validityDoc.toCore(),
	}
}

type countryDefaultRateDoc struct {
	CountryISOCode string  `bson:"country_iso_code"`
	Amount         float64 `bson:"amount"`
	Currency       string  `bson:"currency"`
	validityDoc    `bson:",inline"`
}

func (d countryDefaultRateDoc) toCore() core.CountryDefaultDayPremium {
	return core.CountryDefaultDayPremium{
		CountryISOCode: d.CountryISOCode,
		Amount:         d.Amount,
		Currency:       d.Currency,
		Validity:       d.validityDoc.toCore(),
	}
}

type configFlagDoc struct {
	Key         string `bson:"key"`
	Value       bool   `bson:"value"`
	validityDoc `bson:",inline"`
}

type ruleParameterDoc struct {
	RuleName      string  `bson:"rule_name"`
	ParameterName string  `bson:"parameter_name"`
	Value         float64 `bson:"value"`
	validityDoc   `bson:",inline"`
}

type quoteDoc struct {
	ID           string                  `bson:"_id"`
	Request      core.QuoteRequest       `bson:"request"`
	Underwriting core.UnderwritingResult `bson:"underwriting"`
	Premium      *core.PremiumResult     `bson:"premium,omitempty"`

	PromoCode     string  `bson:"promo_code,omitempty"`
	PromoDiscount float64 `bson:"promo_discount,omitempty"`
	TotalPrice    float64 `bson:"total_price"`

	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func toQuoteDoc(q core.Quote) quoteDoc {
	return quoteDoc{
		ID:            q.ID,
		Request:       q.Request,
		Underwriting:  q.Underwriting,
		Premium:       q.Premium,
		PromoCode:     q.PromoCode,
		PromoDiscount: q.PromoDiscount,
		TotalPrice:    q.TotalPrice,
		Status:        string(q.Status),
		CreatedAt:     q.CreatedAt,
		ExpiresAt:     q.ExpiresAt,
	}
}

func fromQuoteDoc(d quoteDoc) core.Quote {
	return core.Quote{
		ID:            d.ID,
		Request:       d.Request,
		Underwriting:  d.Underwriting,
		Premium:       d.Premium,
		PromoCode:     d.PromoCode,
		PromoDiscount: d.PromoDiscount,
		TotalPrice:    d.TotalPrice,
		Status:        core.QuoteStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		ExpiresAt:     d.ExpiresAt,
	}
}

type promoCodeDoc struct {
	Code        string  `bson:"_id"`
	Percentage  float64 `bson:"percentage"`
	UsageLimit  int     `bson:"usage_limit"`
	UsedCount   int     `bson:"used_count"`
	validityDoc `bson:",inline"`
}

func (d promoCodeDoc) toCore() core.PromoCode {
	return core.PromoCode{
		Code:       d.Code,
		Percentage: d.Percentage,
		UsageLimit: d.UsageLimit,
		UsedCount:  d.UsedCount,
		Validity:   d.validityDoc.toCore(),
	}
}
