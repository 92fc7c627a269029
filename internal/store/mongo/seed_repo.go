package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apines/go-travelcover/internal/core"
)

// SeedRepo writes reference data. It exists for the seed command and
// administrative tooling; the engines themselves only ever read.
type SeedRepo struct {
	db        *mongodrv.Database
	opTimeout time.Duration
}

func NewSeedRepo(db *mongodrv.Database, opTimeout time.Duration) *SeedRepo {
	return &SeedRepo{db: db, opTimeout: opTimeout}
}

// upsert replaces the record matching the natural key + valid_from, creating
// it if absent. Re-running the seed is idempotent.
func (r *SeedRepo) upsert(ctx context.Context, col string, key bson.M, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	_, err := r.db.Collection(col).ReplaceOne(ctx, key, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%s.upsert: %w", col, err)
	}
	return nil
}

func (r *SeedRepo) UpsertCountry(ctx context.Context, c core.Country) error {
	return r.upsert(ctx, ColCountries,
		bson.M{"iso_code": c.ISOCode, "valid_from": c.ValidFrom},
		countryDoc{
			ISOCode:         c.ISOCode,
			Name:            c.Name,
			RiskCoefficient: c.RiskCoefficient,
			RiskGroup:       string(c.RiskGroup),
			validityDoc:     toValidityDoc(c.Validity),
		})
}

func (r *SeedRepo) UpsertCoverageLevel(ctx context.Context, l core.MedicalCoverageLevel) error {
	return r.upsert(ctx, ColCoverageLevels,
		bson.M{"code": l.Code, "valid_from": l.ValidFrom},
		coverageLevelDoc{
			Code:            l.Code,
			DailyRate:       l.DailyRate,
			CoverageAmount:  l.CoverageAmount,
			Currency:        l.Currency,
			MaxPayoutAmount: l.MaxPayoutAmount,
			validityDoc:     toValidityDoc(l.Validity),
		})
}

func (r *SeedRepo) UpsertRiskType(ctx context.Context, t core.RiskType) error {
	return r.upsert(ctx, ColRiskTypes,
		bson.M{"code": t.Code, "valid_from": t.ValidFrom},
		riskTypeDoc{
			Code:        t.Code,
			Name:        t.Name,
			Coefficient: t.Coefficient,
			IsMandatory: t.IsMandatory,
			validityDoc: toValidityDoc(t.Validity),
		})
}

func (r *SeedRepo) UpsertAgeCoefficient(ctx context.Context, b core.AgeCoefficient) error {
	return r.upsert(ctx, ColAgeCoefficients,
		bson.M{"age_from": b.AgeFrom, "valid_from": b.ValidFrom},
		ageCoefficientDoc{
			AgeFrom:     b.AgeFrom,
			AgeTo:       b.AgeTo,
			Coefficient: b.Coefficient,
			validityDoc: toValidityDoc(b.Validity),
		})
}

func (r *SeedRepo) UpsertDurationCoefficient(ctx context.Context, b core.DurationCoefficient) error {
	return r.upsert(ctx, ColDurationCoefficients,
		bson.M{"days_from": b.DaysFrom, "valid_from": b.ValidFrom},
		durationCoefficientDoc{
			DaysFrom:    b.DaysFrom,
			DaysTo:      b.DaysTo,
			Coefficient: b.Coefficient,
			validityDoc: toValidityDoc(b.Validity),
		})
}

func (r *SeedRepo) UpsertAgeRiskModifier(ctx context.Context, m core.AgeRiskModifier) error {
	return r.upsert(ctx, ColAgeRiskModifiers,
		bson.M{"risk_code": m.RiskCode, "age_from": m.AgeFrom, "valid_from": m.ValidFrom},
		ageRiskModifierDoc{
			RiskCode:    m.RiskCode,
			AgeFrom:     m.AgeFrom,
			AgeTo:       m.AgeTo,
			Modifier:    m.Modifier,
			validityDoc: toValidityDoc(m.Validity),
		})
}

func (r *SeedRepo) UpsertBundle(ctx context.Context, b core.RiskBundle) error {
	return r.upsert(ctx, ColRiskBundles,
		bson.M{"code": b.Code, "valid_from": b.ValidFrom},
		riskBundleDoc{
			Code:               b.Code,
			Name:               b.Name,
			RequiredRiskCodes:  b.RequiredRiskCodes,
			DiscountPercentage: b.DiscountPercentage,
			validityDoc:        toValidityDoc(b.Validity),
		})
}

func (r *SeedRepo) UpsertCountryDefaultRate(ctx context.Context, d core.CountryDefaultDayPremium) error {
	return r.upsert(ctx, ColCountryDefaultRates,
		bson.M{"country_iso_code": d.CountryISOCode, "valid_from": d.ValidFrom},
		countryDefaultRateDoc{
			CountryISOCode: d.CountryISOCode,
			Amount:         d.Amount,
			Currency:       d.Currency,
			validityDoc:    toValidityDoc(d.Validity),
		})
}

func (r *SeedRepo) UpsertConfigFlag(ctx context.Context, f core.ConfigFlag) error {
	return r.upsert(ctx, ColConfigFlags,
		bson.M{"key": f.Key, "valid_from": f.ValidFrom},
		configFlagDoc{
			Key:         f.Key,
			Value:       f.Value,
			validityDoc: toValidityDoc(f.Validity),
		})
}

func (r *SeedRepo) UpsertRuleParameter(ctx context.Context, p core.RuleParameter) error {
	return r.upsert(ctx, ColRuleParameters,
		bson.M{"rule_name": p.RuleName, "parameter_name": p.ParameterName, "valid_from": p.ValidFrom},
		ruleParameterDoc{
			RuleName:      p.RuleName,
			ParameterName: p.ParameterName,
			Value:         p.Value,
			validityDoc:   toValidityDoc(p.Validity),
		})
}
