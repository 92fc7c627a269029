package main

import (
	"context"
	"fmt"
	"time"

	"github.com/apines/go-travelcover/internal/core"
	"github.com/apines/go-travelcover/internal/platform/config"
	"github.com/apines/go-travelcover/internal/platform/logging"
	"github.com/apines/go-travelcover/internal/store/dynamo"
	"github.com/apines/go-travelcover/internal/store/mongo"
)

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	data := referenceData()

	switch cfg.DBType {
	case "dynamodb":
		if err := seedDynamo(ctx, cfg, data); err != nil {
			log.Error("dynamo seed failed", "err", err)
			return
		}
	case "mongo":
		if err := seedMongo(ctx, cfg, data); err != nil {
			log.Error("mongo seed failed", "err", err)
			return
		}
	default:
		log.Error("unknown DB_TYPE", "db_type", cfg.DBType)
		return
	}

	log.Info("done seeding",
		"countries", len(data.countries),
		"coverage_levels", len(data.levels),
		"risk_types", len(data.risks),
		"promos", len(data.promos),
	)
}

// dataset is the full reference set shared by both backends.
type dataset struct {
	countries  []core.Country
	levels     []core.MedicalCoverageLevel
	risks      []core.RiskType
	ageBands   []core.AgeCoefficient
	durBands   []core.DurationCoefficient
	modifiers  []core.AgeRiskModifier
	bundles    []core.RiskBundle
	dayRates   []core.CountryDefaultDayPremium
	flags      []core.ConfigFlag
	ruleParams []core.RuleParameter
	promos     []core.PromoCode
}

func referenceData() dataset {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v := core.Validity{ValidFrom: from}
	limit := func(f float64) *float64 { return &f }

	return dataset{
		countries: []core.Country{
			{ISOCode: "ES", Name: "Spain", RiskCoefficient: 1.00, RiskGroup: core.RiskGroupLow, Validity: v},
			{ISOCode: "FR", Name: "France", RiskCoefficient: 1.00, RiskGroup: core.RiskGroupLow, Validity: v},
			{ISOCode: "JP", Name: "Japan", RiskCoefficient: 1.10, RiskGroup: core.RiskGroupLow, Validity: v},
			{ISOCode: "US", Name: "United States", RiskCoefficient: 1.40, RiskGroup: core.RiskGroupMedium, Validity: v},
			{ISOCode: "TH", Name: "Thailand", RiskCoefficient: 1.25, RiskGroup: core.RiskGroupHigh, Validity: v},
			{ISOCode: "EG", Name: "Egypt", RiskCoefficient: 1.35, RiskGroup: core.RiskGroupHigh, Validity: v},
		},
		levels: []core.MedicalCoverageLevel{
			{Code: "BASIC", DailyRate: 2.00, CoverageAmount: 30000, Currency: "EUR", Validity: v},
			{Code: "STANDARD", DailyRate: 3.20, CoverageAmount: 75000, Currency: "EUR", Validity: v},
			{Code: "PREMIUM", DailyRate: 5.00, CoverageAmount: 150000, Currency: "EUR", MaxPayoutAmount: limit(120000), Validity: v},
		},
		risks: []core.RiskType{
			{Code: core.BaseRiskCode, Name: "Base medical coverage", Coefficient: 0, IsMandatory: true, Validity: v},
			{Code: "SPORT_ACTIVITIES", Name: "Sport activities", Coefficient: 0.20, Validity: v},
			{Code: "ACCIDENT_COVERAGE", Name: "Accident coverage", Coefficient: 0.15, Validity: v},
			{Code: core.ExtremeSportRiskCode, Name: "Extreme sport", Coefficient: 0.50, Validity: v},
			{Code: "TRIP_CANCELLATION", Name: "Trip cancellation", Coefficient: 0.10, Validity: v},
			{Code: "LUGGAGE", Name: "Luggage protection", Coefficient: 0.05, Validity: v},
		},
		// Must stay numerically identical to the in-code fallback table.
		ageBands: []core.AgeCoefficient{
			{AgeFrom: 0, AgeTo: 5, Coefficient: 1.10, Validity: v},
			{AgeFrom: 6, AgeTo: 17, Coefficient: 0.90, Validity: v},
			{AgeFrom: 18, AgeTo: 30, Coefficient: 1.00, Validity: v},
			{AgeFrom: 31, AgeTo: 40, Coefficient: 1.10, Validity: v},
			{AgeFrom: 41, AgeTo: 50, Coefficient: 1.30, Validity: v},
			{AgeFrom: 51, AgeTo: 60, Coefficient: 1.60, Validity: v},
			{AgeFrom: 61, AgeTo: 70, Coefficient: 2.00, Validity: v},
			{AgeFrom: 71, AgeTo: 80, Coefficient: 2.50, Validity: v},
		},
		durBands: []core.DurationCoefficient{
			{DaysFrom: 1, DaysTo: 7, Coefficient: 1.00, Validity: v},
			{DaysFrom: 8, DaysTo: 14, Coefficient: 1.05, Validity: v},
			{DaysFrom: 15, DaysTo: 30, Coefficient: 1.10, Validity: v},
			{DaysFrom: 31, DaysTo: 90, Coefficient: 1.20, Validity: v},
			{DaysFrom: 91, DaysTo: 365, Coefficient: 1.40, Validity: v},
		},
		modifiers: []core.AgeRiskModifier{
			{RiskCode: core.ExtremeSportRiskCode, AgeFrom: 0, AgeTo: 40, Modifier: 1.00, Validity: v},
			{RiskCode: core.ExtremeSportRiskCode, AgeFrom: 41, AgeTo: 60, Modifier: 1.30, Validity: v},
			{RiskCode: core.ExtremeSportRiskCode, AgeFrom: 61, AgeTo: 80, Modifier: 1.80, Validity: v},
			{RiskCode: "SPORT_ACTIVITIES", AgeFrom: 61, AgeTo: 80, Modifier: 1.20, Validity: v},
		},
		bundles: []core.RiskBundle{
			{
				Code:               "ACTIVE_TRAVELER",
				Name:               "Active traveler",
				RequiredRiskCodes:  []string{"SPORT_ACTIVITIES", "ACCIDENT_COVERAGE"},
				DiscountPercentage: 15,
				Validity:           v,
			},
			{
				Code:               "FULL_PROTECTION",
				Name:               "Full protection",
				RequiredRiskCodes:  []string{"TRIP_CANCELLATION", "LUGGAGE", "ACCIDENT_COVERAGE"},
				DiscountPercentage: 10,
				Validity:           v,
			},
		},
		dayRates: []core.CountryDefaultDayPremium{
			{CountryISOCode: "ES", Amount: 2.50, Currency: "EUR", Validity: v},
			{CountryISOCode: "US", Amount: 4.00, Currency: "EUR", Validity: v},
			{CountryISOCode: "TH", Amount: 3.00, Currency: "EUR", Validity: v},
		},
		flags: []core.ConfigFlag{
			{Key: core.ConfigKeyAgeCoefficient, Value: true, Validity: v},
		},
		ruleParams: []core.RuleParameter{
			{RuleName: core.RuleNameApplicantAge, ParameterName: "maxAge", Value: 80, Validity: v},
			{RuleName: core.RuleNameApplicantAge, ParameterName: "reviewAge", Value: 70, Validity: v},
			{RuleName: core.RuleNameCoverageAmount, ParameterName: "seniorAge", Value: 70, Validity: v},
			{RuleName: core.RuleNameCoverageAmount, ParameterName: "seniorBlockAmount", Value: 200000, Validity: v},
			{RuleName: core.RuleNameCoverageAmount, ParameterName: "seniorReviewAmount", Value: 100000, Validity: v},
			{RuleName: core.RuleNameExtremeSport, ParameterName: "maxAge", Value: 70, Validity: v},
			{RuleName: core.RuleNameExtremeSport, ParameterName: "reviewAge", Value: 60, Validity: v},
			{RuleName: core.RuleNameTripDuration, ParameterName: "blockDays", Value: 365, Validity: v},
			{RuleName: core.RuleNameTripDuration, ParameterName: "reviewDays", Value: 180, Validity: v},
		},
		promos: []core.PromoCode{
			{Code: "WELCOME10", Percentage: 10, UsageLimit: 1000, Validity: v},
			{Code: "SUMMER15", Percentage: 15, UsageLimit: 0, Validity: v},
		},
	}
}

func seedMongo(ctx context.Context, cfg *config.Config, data dataset) error {
	client, err := mongo.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close(ctx)

	if err := mongo.EnsureIndexes(ctx, client.DB); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	opTimeout := 5 * time.Second
	repo := mongo.NewSeedRepo(client.DB, opTimeout)
	promos := mongo.NewPromoRepo(client.DB, opTimeout)

	for _, c := range data.countries {
		if err := repo.UpsertCountry(ctx, c); err != nil {
			return fmt.Errorf("country %s: %w", c.ISOCode, err)
		}
	}
	for _, l := range data.levels {
		if err := repo.UpsertCoverageLevel(ctx, l); err != nil {
			return fmt.Errorf("coverage level %s: %w", l.Code, err)
		}
	}
	for _, t := range data.risks {
		if err := repo.UpsertRiskType(ctx, t); err != nil {
			return fmt.Errorf("risk type %s: %w", t.Code, err)
		}
	}
	for _, b := range data.ageBands {
		if err := repo.UpsertAgeCoefficient(ctx, b); err != nil {
			return fmt.Errorf("age band %s: %w", b.Label(), err)
		}
	}
	for _, b := range data.durBands {
		if err := repo.UpsertDurationCoefficient(ctx, b); err != nil {
			return fmt.Errorf("duration band %d-%d: %w", b.DaysFrom, b.DaysTo, err)
		}
	}
	for _, m := range data.modifiers {
		if err := repo.UpsertAgeRiskModifier(ctx, m); err != nil {
			return fmt.Errorf("modifier %s %d-%d: %w", m.RiskCode, m.AgeFrom, m.AgeTo, err)
		}
	}
	for _, b := range data.bundles {
		if err := repo.UpsertBundle(ctx, b); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Code, err)
		}
	}
	for _, d := range data.dayRates {
		if err := repo.UpsertCountryDefaultRate(ctx, d); err != nil {
			return fmt.Errorf("day rate %s: %w", d.CountryISOCode, err)
		}
	}
	for _, f := range data.flags {
		if err := repo.UpsertConfigFlag(ctx, f); err != nil {
			return fmt.Errorf("config flag %s: %w", f.Key, err)
		}
	}
	for _, p := range data.ruleParams {
		if err := repo.UpsertRuleParameter(ctx, p); err != nil {
			return fmt.Errorf("rule param %s.%s: %w", p.RuleName, p.ParameterName, err)
		}
	}
	for _, p := range data.promos {
		if err := promos.Upsert(ctx, p); err != nil {
			return fmt.Errorf("promo %s: %w", p.Code, err)
		}
	}
	return nil
}

func seedDynamo(ctx context.Context, cfg *config.Config, data dataset) error {
	log := logging.New(cfg.Env)
	client, err := dynamo.NewClient(ctx, dynamo.Config{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.DynamoDBEndpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := dynamo.EnsureTables(ctx, client.DB, log); err != nil {
		return fmt.Errorf("ensure tables: %w", err)
	}

	repo := dynamo.NewRefRepo(client)
	promos := dynamo.NewPromoRepo(client)

	for _, c := range data.countries {
		if err := repo.PutCountry(ctx, c); err != nil {
			return fmt.Errorf("country %s: %w", c.ISOCode, err)
		}
	}
	for _, l := range data.levels {
		if err := repo.PutCoverageLevel(ctx, l); err != nil {
			return fmt.Errorf("coverage level %s: %w", l.Code, err)
		}
	}
	for _, t := range data.risks {
		if err := repo.PutRiskType(ctx, t); err != nil {
			return fmt.Errorf("risk type %s: %w", t.Code, err)
		}
	}
	for _, b := range data.ageBands {
		if err := repo.PutAgeCoefficient(ctx, b); err != nil {
			return fmt.Errorf("age band %s: %w", b.Label(), err)
		}
	}
	for _, b := range data.durBands {
		if err := repo.PutDurationCoefficient(ctx, b); err != nil {
			return fmt.Errorf("duration band %d-%d: %w", b.DaysFrom, b.DaysTo, err)
		}
	}
	for _, m := range data.modifiers {
		if err := repo.PutAgeRiskModifier(ctx, m); err != nil {
			return fmt.Errorf("modifier %s %d-%d: %w", m.RiskCode, m.AgeFrom, m.AgeTo, err)
		}
	}
	for _, b := range data.bundles {
		if err := repo.PutBundle(ctx, b); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Code, err)
		}
	}
	for _, d := range data.dayRates {
		if err := repo.PutCountryDefaultRate(ctx, d); err != nil {
			return fmt.Errorf("day rate %s: %w", d.CountryISOCode, err)
		}
	}
	for _, f := range data.flags {
		if err := repo.PutConfigFlag(ctx, f); err != nil {
			return fmt.Errorf("config flag %s: %w", f.Key, err)
		}
	}
	for _, p := range data.ruleParams {
		if err := repo.PutRuleParameter(ctx, p); err != nil {
			return fmt.Errorf("rule param %s.%s: %w", p.RuleName, p.ParameterName, err)
		}
	}
	for _, p := range data.promos {
		if err := promos.Put(ctx, p); err != nil {
			return fmt.Errorf("promo %s: %w", p.Code, err)
		}
	}
	return nil
}
