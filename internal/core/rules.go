package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExtremeSportRiskCode is the rider checked by the extreme-sport eligibility rule.
const ExtremeSportRiskCode = "EXTREME_SPORT"

// Rule names are stable identifiers used for parameter lookups and results.
const (
	RuleNameApplicantAge   = "APPLICANT_AGE"
	RuleNameCoverageAmount = "COVERAGE_AMOUNT"
	RuleNameExtremeSport   = "EXTREME_SPORT_AGE"
	RuleNameTripDuration   = "TRIP_DURATION"
)

// ruleParam resolves a tunable threshold, falling back to the rule's
// hard-coded safe default when no parameter record exists.
func ruleParam(ctx context.Context, ref ReferenceDataPort, ruleName, paramName string, asOf time.Time, def float64) (float64, error) {
	v, err := ref.FindRuleParameter(ctx, ruleName, paramName, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return 0, err
	}
	return v, nil
}

func pass(name string) RuleResult {
	return RuleResult{RuleName: name, Severity: SeverityPass}
}

// ApplicantAgeRule blocks applicants above the insurable age ceiling and
// flags seniors for manual review.
type ApplicantAgeRule struct {
	ref ReferenceDataPort
}

func NewApplicantAgeRule(ref ReferenceDataPort) *ApplicantAgeRule {
	return &ApplicantAgeRule{ref: ref}
}

func (r *ApplicantAgeRule) Name() string  { return RuleNameApplicantAge }
func (r *ApplicantAgeRule) Priority() int { return 10 }

func (r *ApplicantAgeRule) Evaluate(ctx context.Context, req QuoteRequest, asOf time.Time) (RuleResult, error) {
	if req.BirthDate.IsZero() || req.BirthDate.After(asOf) {
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityBlocking,
			Message:  "birth date is missing or in the future",
		}, nil
	}
	age := AgeAt(req.BirthDate, asOf)

	maxAge, err := ruleParam(ctx, r.ref, r.Name(), "maxAge", asOf, MaxInsurableAge)
	if err != nil {
		return RuleResult{}, err
	}
	reviewAge, err := ruleParam(ctx, r.ref, r.Name(), "reviewAge", asOf, 70)
	if err != nil {
		return RuleResult{}, err
	}

	switch {
	case float64(age) > maxAge:
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityBlocking,
			Message:  fmt.Sprintf("applicant age %d exceeds maximum insurable age %.0f", age, maxAge),
		}, nil
	case float64(age) >= reviewAge:
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityReviewRequired,
			Message:  fmt.Sprintf("applicant age %d requires manual review", age),
		}, nil
	}
	return pass(r.Name()), nil
}

// CoverageAmountRule checks the requested medical coverage amount against
// age-dependent limits. Requests without a coverage level (country-default
// mode) pass trivially.
type CoverageAmountRule struct {
	ref ReferenceDataPort
}

func NewCoverageAmountRule(ref ReferenceDataPort) *CoverageAmountRule {
	return &CoverageAmountRule{ref: ref}
}

func (r *CoverageAmountRule) Name() string  { return RuleNameCoverageAmount }
func (r *CoverageAmountRule) Priority() int { return 20 }

func (r *CoverageAmountRule) Evaluate(ctx context.Context, req QuoteRequest, asOf time.Time) (RuleResult, error) {
	if req.CoverageLevelCode == "" {
		return pass(r.Name()), nil
	}

	level, err := r.ref.FindCoverageLevel(ctx, req.CoverageLevelCode, asOf)
	if err != nil {
		// Missing reference data fails closed through the engine.
		return RuleResult{}, err
	}
	age := AgeAt(req.BirthDate, asOf)

	seniorAge, err := ruleParam(ctx, r.ref, r.Name(), "seniorAge", asOf, 70)
	if err != nil {
		return RuleResult{}, err
	}
	blockAmount, err := ruleParam(ctx, r.ref, r.Name(), "seniorBlockAmount", asOf, 200000)
	if err != nil {
		return RuleResult{}, err
	}
	reviewAmount, err := ruleParam(ctx, r.ref, r.Name(), "seniorReviewAmount", asOf, 100000)
	if err != nil {
		return RuleResult{}, err
	}

	if float64(age) >= seniorAge {
		switch {
		case level.CoverageAmount > blockAmount:
			return RuleResult{
				RuleName: r.Name(),
				Severity: SeverityBlocking,
				Message: fmt.Sprintf("coverage amount %.0f exceeds limit %.0f for age %d",
					level.CoverageAmount, blockAmount, age),
			}, nil
		case level.CoverageAmount > reviewAmount:
			return RuleResult{
				RuleName: r.Name(),
				Severity: SeverityReviewRequired,
				Message: fmt.Sprintf("coverage amount %.0f requires review for age %d",
					level.CoverageAmount, age),
			}, nil
		}
	}
	return pass(r.Name()), nil
}

// ExtremeSportAgeRule gates the extreme-sport rider by applicant age.
type ExtremeSportAgeRule struct {
	ref ReferenceDataPort
}

func NewExtremeSportAgeRule(ref ReferenceDataPort) *ExtremeSportAgeRule {
	return &ExtremeSportAgeRule{ref: ref}
}

func (r *ExtremeSportAgeRule) Name() string  { return RuleNameExtremeSport }
func (r *ExtremeSportAgeRule) Priority() int { return 30 }

func (r *ExtremeSportAgeRule) Evaluate(ctx context.Context, req QuoteRequest, asOf time.Time) (RuleResult, error) {
	selected := false
	for _, code := range req.RiskCodes {
		if code == ExtremeSportRiskCode {
			selected = true
			break
		}
	}
	if !selected {
		return pass(r.Name()), nil
	}
	age := AgeAt(req.BirthDate, asOf)

	maxAge, err := ruleParam(ctx, r.ref, r.Name(), "maxAge", asOf, 70)
	if err != nil {
		return RuleResult{}, err
	}
	reviewAge, err := ruleParam(ctx, r.ref, r.Name(), "reviewAge", asOf, 60)
	if err != nil {
		return RuleResult{}, err
	}

	switch {
	case float64(age) > maxAge:
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityBlocking,
			Message:  fmt.Sprintf("extreme sport cover not available at age %d", age),
		}, nil
	case float64(age) >= reviewAge:
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityReviewRequired,
			Message:  fmt.Sprintf("extreme sport cover at age %d requires review", age),
		}, nil
	}
	return pass(r.Name()), nil
}

// TripDurationRule limits how long a single trip may run.
type TripDurationRule struct {
	ref ReferenceDataPort
}

func NewTripDurationRule(ref ReferenceDataPort) *TripDurationRule {
	return &TripDurationRule{ref: ref}
}

func (r *TripDurationRule) Name() string  { return RuleNameTripDuration }
func (r *TripDurationRule) Priority() int { return 40 }

func (r *TripDurationRule) Evaluate(ctx context.Context, req QuoteRequest, asOf time.Time) (RuleResult, error) {
	if req.DateTo.Before(req.DateFrom) {
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityBlocking,
			Message:  "trip end date precedes start date",
		}, nil
	}
	days := int(req.DateTo.Sub(req.DateFrom).Hours() / 24)

	blockDays, err := ruleParam(ctx, r.ref, r.Name(), "blockDays", asOf, 365)
	if err != nil {
		return RuleResult{}, err
	}
	reviewDays, err := ruleParam(ctx, r.ref, r.Name(), "reviewDays", asOf, 180)
	if err != nil {
		return RuleResult{}, err
	}

	switch {
	case float64(days) > blockDays:
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityBlocking,
			Message:  fmt.Sprintf("trip duration %d days exceeds maximum %.0f", days, blockDays),
		}, nil
	case float64(days) > reviewDays:
		return RuleResult{
			RuleName: r.Name(),
			Severity: SeverityReviewRequired,
			Message:  fmt.Sprintf("trip duration %d days requires review", days),
		}, nil
	}
	return pass(r.Name()), nil
}
