package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// fakeRef is a slice-backed ReferenceDataPort for tests. Lookups that find
// nothing return ErrNotFound, matching the store contract.
type fakeRef struct {
	countries    []Country
	levels       []MedicalCoverageLevel
	risks        []RiskType
	ageBands     []AgeCoefficient
	durBands     []DurationCoefficient
	modifiers    []AgeRiskModifier
	bundles      []RiskBundle
	defaultRates []CountryDefaultDayPremium
	flags        []ConfigFlag
	params       []RuleParameter

	// failWith, when set, is returned by every lookup.
	failWith error
}

func (f *fakeRef) FindCountry(_ context.Context, iso string, asOf time.Time) (Country, error) {
	if f.failWith != nil {
		return Country{}, f.failWith
	}
	for _, c := range f.countries {
		if c.ISOCode == iso && c.ActiveAt(asOf) {
			return c, nil
		}
	}
	return Country{}, fmt.Errorf("%w: country %s", ErrNotFound, iso)
}

func (f *fakeRef) FindCoverageLevel(_ context.Context, code string, asOf time.Time) (MedicalCoverageLevel, error) {
	if f.failWith != nil {
		return MedicalCoverageLevel{}, f.failWith
	}
	for _, l := range f.levels {
		if l.Code == code && l.ActiveAt(asOf) {
			return l, nil
		}
	}
	return MedicalCoverageLevel{}, fmt.Errorf("%w: coverage level %s", ErrNotFound, code)
}

func (f *fakeRef) FindRiskType(_ context.Context, code string, asOf time.Time) (RiskType, error) {
	if f.failWith != nil {
		return RiskType{}, f.failWith
	}
	for _, r := range f.risks {
		if r.Code == code && r.ActiveAt(asOf) {
			return r, nil
		}
	}
	return RiskType{}, fmt.Errorf("%w: risk type %s", ErrNotFound, code)
}

func (f *fakeRef) FindAgeCoefficient(_ context.Context, age int, asOf time.Time) (AgeCoefficient, error) {
	if f.failWith != nil {
		return AgeCoefficient{}, f.failWith
	}
	for _, b := range f.ageBands {
		if age >= b.AgeFrom && age <= b.AgeTo && b.ActiveAt(asOf) {
			return b, nil
		}
	}
	return AgeCoefficient{}, fmt.Errorf("%w: age coefficient for %d", ErrNotFound, age)
}

func (f *fakeRef) FindDurationCoefficient(_ context.Context, days int, asOf time.Time) (DurationCoefficient, error) {
	if f.failWith != nil {
		return DurationCoefficient{}, f.failWith
	}
	for _, b := range f.durBands {
		if days >= b.DaysFrom && days <= b.DaysTo && b.ActiveAt(asOf) {
			return b, nil
		}
	}
	return DurationCoefficient{}, fmt.Errorf("%w: duration coefficient for %d days", ErrNotFound, days)
}

func (f *fakeRef) FindAgeRiskModifier(_ context.Context, riskCode string, age int, asOf time.Time) (AgeRiskModifier, error) {
	if f.failWith != nil {
		return AgeRiskModifier{}, f.failWith
	}
	for _, m := range f.modifiers {
		if m.RiskCode == riskCode && age >= m.AgeFrom && age <= m.AgeTo && m.ActiveAt(asOf) {
			return m, nil
		}
	}
	return AgeRiskModifier{}, fmt.Errorf("%w: modifier for %s", ErrNotFound, riskCode)
}

func (f *fakeRef) FindAllActiveBundles(_ context.Context, asOf time.Time) ([]RiskBundle, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []RiskBundle
	for _, b := range f.bundles {
		if b.ActiveAt(asOf) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRef) FindCountryDefaultRate(_ context.Context, iso string, asOf time.Time) (CountryDefaultDayPremium, error) {
	if f.failWith != nil {
		return CountryDefaultDayPremium{}, f.failWith
	}
	for _, r := range f.defaultRates {
		if r.CountryISOCode == iso && r.ActiveAt(asOf) {
			return r, nil
		}
	}
	return CountryDefaultDayPremium{}, fmt.Errorf("%w: default rate for %s", ErrNotFound, iso)
}

func (f *fakeRef) FindBoolConfig(_ context.Context, key string, asOf time.Time, def bool) (bool, error) {
	if f.failWith != nil {
		return def, f.failWith
	}
	for _, fl := range f.flags {
		if fl.Key == key && fl.ActiveAt(asOf) {
			return fl.Value, nil
		}
	}
	return def, nil
}

func (f *fakeRef) FindRuleParameter(_ context.Context, ruleName, paramName string, asOf time.Time) (float64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	for _, p := range f.params {
		if p.RuleName == ruleName && p.ParameterName == paramName && p.ActiveAt(asOf) {
			return p.Value, nil
		}
	}
	return 0, fmt.Errorf("%w: rule parameter %s.%s", ErrNotFound, ruleName, paramName)
}

// standardRef seeds the fake with the dataset the pricing tests share:
// neutral Spain, BASIC level at 2.00/day, the canonical age and duration
// bands, the sport risks and the ACTIVE_TRAVELER bundle.
func standardRef() *fakeRef {
	return &fakeRef{
		countries: []Country{
			{ISOCode: "ES", Name: "Spain", RiskCoefficient: 1.00, RiskGroup: RiskGroupLow},
			{ISOCode: "US", Name: "United States", RiskCoefficient: 1.40, RiskGroup: RiskGroupMedium},
		},
		levels: []MedicalCoverageLevel{
			{Code: "BASIC", DailyRate: 2.00, CoverageAmount: 30000, Currency: "EUR"},
			{Code: "PREMIUM", DailyRate: 5.00, CoverageAmount: 250000, Currency: "EUR"},
		},
		risks: []RiskType{
			{Code: BaseRiskCode, Name: "Base medical", Coefficient: 0, IsMandatory: true},
			{Code: "SPORT_ACTIVITIES", Name: "Sport", Coefficient: 0.20},
			{Code: "ACCIDENT_COVERAGE", Name: "Accident", Coefficient: 0.15},
			{Code: ExtremeSportRiskCode, Name: "Extreme sport", Coefficient: 0.50},
		},
		ageBands: []AgeCoefficient{
			{AgeFrom: 0, AgeTo: 5, Coefficient: 1.10},
			{AgeFrom: 6, AgeTo: 17, Coefficient: 0.90},
			{AgeFrom: 18, AgeTo: 30, Coefficient: 1.00},
			{AgeFrom: 31, AgeTo: 40, Coefficient: 1.10},
			{AgeFrom: 41, AgeTo: 50, Coefficient: 1.30},
			{AgeFrom: 51, AgeTo: 60, Coefficient: 1.60},
			{AgeFrom: 61, AgeTo: 70, Coefficient: 2.00},
			{AgeFrom: 71, AgeTo: 80, Coefficient: 2.50},
		},
		durBands: []DurationCoefficient{
			{DaysFrom: 1, DaysTo: 7, Coefficient: 1.00},
			{DaysFrom: 8, DaysTo: 30, Coefficient: 1.10},
		},
		modifiers: []AgeRiskModifier{
			{RiskCode: ExtremeSportRiskCode, AgeFrom: 0, AgeTo: 40, Modifier: 1.00},
			{RiskCode: ExtremeSportRiskCode, AgeFrom: 41, AgeTo: 80, Modifier: 1.80},
		},
		bundles: []RiskBundle{
			{
				Code:               "ACTIVE_TRAVELER",
				Name:               "Active traveler",
				RequiredRiskCodes:  []string{"SPORT_ACTIVITIES", "ACCIDENT_COVERAGE"},
				DiscountPercentage: 15,
			},
		},
		defaultRates: []CountryDefaultDayPremium{
			{CountryISOCode: "ES", Amount: 2.50, Currency: "EUR"},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
