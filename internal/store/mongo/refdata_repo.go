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

// RefRepo implements core.ReferenceDataPort over MongoDB. Every lookup is
// "first active match as of date", with more than one active match reported
// as a configuration error.
type RefRepo struct {
	db        *mongodrv.Database
	opTimeout time.Duration
}

func NewRefRepo(db *mongodrv.Database, opTimeout time.Duration) *RefRepo {
	return &RefRepo{db: db, opTimeout: opTimeout}
}

// validityFilter matches records active as of the given date. valid_to may be
// absent or null for open-ended records.
func validityFilter(asOf time.Time) bson.M {
	return bson.M{
		"valid_from": bson.M{"$lte": asOf},
		"$or": bson.A{
			bson.M{"valid_to": bson.M{"$exists": false}},
			bson.M{"valid_to": nil},
			bson.M{"valid_to": bson.M{"$gt": asOf}},
		},
	}
}

// findActive decodes at most one active document. Zero matches is
// core.ErrNotFound; two or more is core.ErrAmbiguousReference.
func findActive[T any](ctx context.Context, coll *mongodrv.Collection, filter bson.M, kind string) (T, error) {
	var zero T

	cur, err := coll.Find(ctx, filter, options.Find().SetLimit(2))
	if err != nil {
		return zero, fmt.Errorf("%s.find: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	var docs []T
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return zero, fmt.Errorf("%s.decode: %w", coll.Name(), err)
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return zero, fmt.Errorf("%s.cursor: %w", coll.Name(), err)
	}

	switch len(docs) {
	case 0:
		return zero, fmt.Errorf("%w: %s", core.ErrNotFound, kind)
	case 1:
		return docs[0], nil
	default:
		return zero, fmt.Errorf("%w: %s", core.ErrAmbiguousReference, kind)
	}
}

func (r *RefRepo) FindCountry(ctx context.Context, isoCode string, asOf time.Time) (core.Country, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["iso_code"] = isoCode
	doc, err := findActive[countryDoc](ctx, r.db.Collection(ColCountries), filter, "country "+isoCode)
	if err != nil {
		return core.Country{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindCoverageLevel(ctx context.Context, code string, asOf time.Time) (core.MedicalCoverageLevel, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["code"] = code
	doc, err := findActive[coverageLevelDoc](ctx, r.db.Collection(ColCoverageLevels), filter, "coverage level "+code)
	if err != nil {
		return core.MedicalCoverageLevel{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindRiskType(ctx context.Context, code string, asOf time.Time) (core.RiskType, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["code"] = code
	doc, err := findActive[riskTypeDoc](ctx, r.db.Collection(ColRiskTypes), filter, "risk type "+code)
	if err != nil {
		return core.RiskType{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindAgeCoefficient(ctx context.Context, age int, asOf time.Time) (core.AgeCoefficient, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["age_from"] = bson.M{"$lte": age}
	filter["age_to"] = bson.M{"$gte": age}
	doc, err := findActive[ageCoefficientDoc](ctx, r.db.Collection(ColAgeCoefficients), filter,
		fmt.Sprintf("age coefficient for age %d", age))
	if err != nil {
		return core.AgeCoefficient{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindDurationCoefficient(ctx context.Context, days int, asOf time.Time) (core.DurationCoefficient, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["days_from"] = bson.M{"$lte": days}
	filter["days_to"] = bson.M{"$gte": days}
	doc, err := findActive[durationCoefficientDoc](ctx, r.db.Collection(ColDurationCoefficients), filter,
		fmt.Sprintf("duration coefficient for %d days", days))
	if err != nil {
		return core.DurationCoefficient{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindAgeRiskModifier(ctx context.Context, riskCode string, age int, asOf time.Time) (core.AgeRiskModifier, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["risk_code"] = riskCode
	filter["age_from"] = bson.M{"$lte": age}
	filter["age_to"] = bson.M{"$gte": age}
	doc, err := findActive[ageRiskModifierDoc](ctx, r.db.Collection(ColAgeRiskModifiers), filter,
		"age risk modifier for "+riskCode)
	if err != nil {
		return core.AgeRiskModifier{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindAllActiveBundles(ctx context.Context, asOf time.Time) ([]core.RiskBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.db.Collection(ColRiskBundles).Find(ctx, validityFilter(asOf),
		options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("risk_bundles.find: %w", err)
	}
	defer cur.Close(ctx)

	var bundles []core.RiskBundle
	for cur.Next(ctx) {
		var doc riskBundleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("risk_bundles.decode: %w", err)
		}
		bundles = append(bundles, doc.toCore())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("risk_bundles.cursor: %w", err)
	}
	return bundles, nil
}

func (r *RefRepo) FindCountryDefaultRate(ctx context.Context, isoCode string, asOf time.Time) (core.CountryDefaultDayPremium, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["country_iso_code"] = isoCode
	doc, err := findActive[countryDefaultRateDoc](ctx, r.db.Collection(ColCountryDefaultRates), filter,
		"country default rate "+isoCode)
	if err != nil {
		return core.CountryDefaultDayPremium{}, err
	}
	return doc.toCore(), nil
}

func (r *RefRepo) FindBoolConfig(ctx context.Context, key string, asOf time.Time, def bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["key"] = key
	doc, err := findActive[configFlagDoc](ctx, r.db.Collection(ColConfigFlags), filter, "config flag "+key)
	if err != nil {
		if isNotFound(err) {
			return def, nil
		}
		return def, err
	}
	return doc.Value, nil
}

func (r *RefRepo) FindRuleParameter(ctx context.Context, ruleName, paramName string, asOf time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["rule_name"] = ruleName
	filter["parameter_name"] = paramName
	doc, err := findActive[ruleParameterDoc](ctx, r.db.Collection(ColRuleParameters), filter,
		fmt.Sprintf("rule parameter %s.%s", ruleName, paramName))
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
