package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes the temporal lookups rely on.
func EnsureIndexes(ctx context.Context, db *mongodrv.Database) error {
	specs := map[string][]mongodrv.IndexModel{
		ColCountries: {
			{Keys: bson.D{{Key: "iso_code", Value: 1}, {Key: "valid_from", Value: 1}}},
		},
		ColCoverageLevels: {
			{Keys: bson.D{{Key: "code", Value: 1}, {Key: "valid_from", Value: 1}}},
		},
		ColRiskTypes: {
			{Keys: bson.D{{Key: "code", Value: 1}, {Key: "valid_from", Value: 1}}},
		},
		ColAgeCoefficients: {
			{Keys: bson.D{{Key: "age_from", Value: 1}, {Key: "age_to", Value: 1}}},
		},
		ColDurationCoefficients: {
			{Keys: bson.D{{Key: "days_from", Value: 1}, {Key: "days_to", Value: 1}}},
		},
		ColAgeRiskModifiers: {
			{Keys: bson.D{{Key: "risk_code", Value: 1}, {Key: "age_from", Value: 1}}},
		},
		ColRiskBundles: {
			{Keys: bson.D{{Key: "code", Value: 1}, {Key: "valid_from", Value: 1}}},
		},
		ColCountryDefaultRates: {
			{Keys: bson.D{{Key: "country_iso_code", Value: 1}, {Key: "valid_from", Value: 1}}},
		},
		ColConfigFlags: {
			{Keys: bson.D{{Key: "key", Value: 1}, {Key: "valid_from", Value: 1}}},
		},
		ColRuleParameters: {
			{Keys: bson.D{{Key: "rule_name", Value: 1}, {Key: "parameter_name", Value: 1}}},
		},
		ColQuotes: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
	}

	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", col, err)
		}
	}
	return nil
}
