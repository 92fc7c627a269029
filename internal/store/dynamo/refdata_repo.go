package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/apines/go-travelcover/internal/core"
)

// RefRepo implements core.ReferenceDataPort over the single reference table.
// Temporal filtering happens in code after the keyed query: reference sets
// per code are tiny, and Dynamo cannot express the open-ended valid_to
// comparison in a key condition.
type RefRepo struct {
	client *dynamodb.Client
}

func NewRefRepo(client *Client) *RefRepo {
	return &RefRepo{client: client.DB}
}

type refMeta struct {
	Kind      string     `dynamodbav:"kind"`
	RecordKey string     `dynamodbav:"record_key"`
	ValidFrom time.Time  `dynamodbav:"valid_from"`
	ValidTo   *time.Time `dynamodbav:"valid_to,omitempty"`
}

func (m refMeta) validity() core.Validity {
	return core.Validity{ValidFrom: m.ValidFrom, ValidTo: m.ValidTo}
}

// recordKey builds the range key: "<code>#<valid_from date>".
func recordKey(code string, validFrom time.Time) string {
	return fmt.Sprintf("%s#%s", code, validFrom.Format("2006-01-02"))
}

type countryItem struct {
	refMeta
	ISOCode         string  `dynamodbav:"iso_code"`
	Name            string  `dynamodbav:"name"`
	RiskCoefficient float64 `dynamodbav:"risk_coefficient"`
	RiskGroup       string  `dynamodbav:"risk_group"`
}

type coverageLevelItem struct {
	refMeta
	Code            string   `dynamodbav:"code"`
	DailyRate       float64  `dynamodbav:"daily_rate"`
	CoverageAmount  float64  `dynamodbav:"coverage_amount"`
	Currency        string   `dynamodbav:"currency"`
	MaxPayoutAmount *float64 `dynamodbav:"max_payout_amount,omitempty"`
}

type riskTypeItem struct {
	refMeta
	Code        string  `dynamodbav:"code"`
	Name        string  `dynamodbav:"name"`
	Coefficient float64 `dynamodbav:"coefficient"`
	IsMandatory bool    `dynamodbav:"is_mandatory"`
}

type ageCoefficientItem struct {
	refMeta
	AgeFrom     int     `dynamodbav:"age_from"`
	AgeTo       int     `dynamodbav:"age_to"`
	Coefficient float64 `dynamodbav:"coefficient"`
}

type durationCoefficientItem struct {
	refMeta
	DaysFrom    int     `dynamodbav:"days_from"`
	DaysTo      int     `dynamodbav:"days_to"`
	Coefficient float64 `dynamodbav:"coefficient"`
}

type ageRiskModifierItem struct {
	refMeta
	RiskCode string  `dynamodbav:"risk_code"`
	AgeFrom  int     `dynamodbav:"age_from"`
	AgeTo    int     `dynamodbav:"age_to"`
	Modifier float64 `dynamodbav:"modifier"`
}

type riskBundleItem struct {
	refMeta
	Code               string   `dynamodbav:"code"`
	Name               string   `dynamodbav:"name"`
	RequiredRiskCodes  []string `dynamodbav:"required_risk_codes"`
	DiscountPercentage float64  `dynamodbav:"discount_percentage"`
}

type countryDefaultRateItem struct {
	refMeta
	CountryISOCode string  `dynamodbav:"country_iso_code"`
	Amount         float64 `dynamodbav:"amount"`
	Currency       string  `dynamodbav:"currency"`
}

type configFlagItem struct {
	refMeta
	Key   string `dynamodbav:"key"`
	Value bool   `dynamodbav:"value"`
}

type ruleParameterItem struct {
	refMeta
	RuleName      string  `dynamodbav:"rule_name"`
	ParameterName string  `dynamodbav:"parameter_name"`
	Value         float64 `dynamodbav:"value"`
}

// queryKind fetches all items of one entity kind, optionally narrowed by the
// record-key code prefix.
func queryKind[T any](ctx context.Context, client *dynamodb.Client, kind, codePrefix string) ([]T, error) {
	keyCond := expression.Key("kind").Equal(expression.Value(kind))
	if codePrefix != "" {
		keyCond = keyCond.And(expression.Key("record_key").BeginsWith(codePrefix + "#"))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("reference.buildexpr: %w", err)
	}

	out, err := client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(TableReference),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("reference.query %s: %w", kind, err)
	}

	var items []T
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("reference.unmarshal %s: %w", kind, err)
	}
	return items, nil
}

// one enforces the at-most-one-active contract after in-code filtering.
func one[T any](matches []T, kind string) (T, error) {
	var zero T
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%w: %s", core.ErrNotFound, kind)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%w: %s", core.ErrAmbiguousReference, kind)
	}
}

func (r *RefRepo) FindCountry(ctx context.Context, isoCode string, asOf time.Time) (core.Country, error) {
	items, err := queryKind[countryItem](ctx, r.client, KindCountry, isoCode)
	if err != nil {
		return core.Country{}, err
	}
	var active []countryItem
	for _, it := range items {
		if it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, "country "+isoCode)
	if err != nil {
		return core.Country{}, err
	}
	return core.Country{
		ISOCode:         it.ISOCode,
		Name:            it.Name,
		RiskCoefficient: it.RiskCoefficient,
		RiskGroup:       core.RiskGroup(it.RiskGroup),
		Validity:        it.validity(),
	}, nil
}

func (r *RefRepo) FindCoverageLevel(ctx context.Context, code string, asOf time.Time) (core.MedicalCoverageLevel, error) {
	items, err := queryKind[coverageLevelItem](ctx, r.client, KindCoverageLevel, code)
	if err != nil {
		return core.MedicalCoverageLevel{}, err
	}
	var active []coverageLevelItem
	for _, it := range items {
		if it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, "coverage level "+code)
	if err != nil {
		return core.MedicalCoverageLevel{}, err
	}
	return core.MedicalCoverageLevel{
		Code:            it.Code,
		DailyRate:       it.DailyRate,
		CoverageAmount:  it.CoverageAmount,
		Currency:        it.Currency,
		MaxPayoutAmount: it.MaxPayoutAmount,
		Validity:        it.validity(),
	}, nil
}

func (r *RefRepo) FindRiskType(ctx context.Context, code string, asOf time.Time) (core.RiskType, error) {
	items, err := queryKind[riskTypeItem](ctx, r.client, KindRiskType, code)
	if err != nil {
		return core.RiskType{}, err
	}
	var active []riskTypeItem
	for _, it := range items {
		if it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, "risk type "+code)
	if err != nil {
		return core.RiskType{}, err
	}
	return core.RiskType{
		Code:        it.Code,
		Name:        it.Name,
		Coefficient: it.Coefficient,
		IsMandatory: it.IsMandatory,
		Validity:    it.validity(),
	}, nil
}

func (r *RefRepo) FindAgeCoefficient(ctx context.Context, age int, asOf time.Time) (core.AgeCoefficient, error) {
	items, err := queryKind[ageCoefficientItem](ctx, r.client, KindAgeCoefficient, "")
	if err != nil {
		return core.AgeCoefficient{}, err
	}
	var active []ageCoefficientItem
	for _, it := range items {
		if age >= it.AgeFrom && age <= it.AgeTo && it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, fmt.Sprintf("age coefficient for age %d", age))
	if err != nil {
		return core.AgeCoefficient{}, err
	}
	return core.AgeCoefficient{
		AgeFrom:     it.AgeFrom,
		AgeTo:       it.AgeTo,
		Coefficient: it.Coefficient,
		Validity:    it.validity(),
	}, nil
}

func (r *RefRepo) FindDurationCoefficient(ctx context.Context, days int, asOf time.Time) (core.DurationCoefficient, error) {
	items, err := queryKind[durationCoefficientItem](ctx, r.client, KindDurationCoefficient, "")
	if err != nil {
		return core.DurationCoefficient{}, err
	}
	var active []durationCoefficientItem
	for _, it := range items {
		if days >= it.DaysFrom && days <= it.DaysTo && it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, fmt.Sprintf("duration coefficient for %d days", days))
	if err != nil {
		return core.DurationCoefficient{}, err
	}
	return core.DurationCoefficient{
		DaysFrom:    it.DaysFrom,
		DaysTo:      it.DaysTo,
		Coefficient: it.Coefficient,
		Validity:    it.validity(),
	}, nil
}

func (r *RefRepo) FindAgeRiskModifier(ctx context.Context, riskCode string, age int, asOf time.Time) (core.AgeRiskModifier, error) {
	items, err := queryKind[ageRiskModifierItem](ctx, r.client, KindAgeRiskModifier, riskCode)
	if err != nil {
		return core.AgeRiskModifier{}, err
	}
	var active []ageRiskModifierItem
	for _, it := range items {
		if age >= it.AgeFrom && age <= it.AgeTo && it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, "age risk modifier for "+riskCode)
	if err != nil {
		return core.AgeRiskModifier{}, err
	}
	return core.AgeRiskModifier{
		RiskCode: it.RiskCode,
		AgeFrom:  it.AgeFrom,
		AgeTo:    it.AgeTo,
		Modifier: it.Modifier,
		Validity: it.validity(),
	}, nil
}

func (r *RefRepo) FindAllActiveBundles(ctx context.Context, asOf time.Time) ([]core.RiskBundle, error) {
	items, err := queryKind[riskBundleItem](ctx, r.client, KindRiskBundle, "")
	if err != nil {
		return nil, err
	}
	var bundles []core.RiskBundle
	for _, it := range items {
		if !it.validity().ActiveAt(asOf) {
			continue
		}
		bundles = append(bundles, core.RiskBundle{
			Code:               it.Code,
			Name:               it.Name,
			RequiredRiskCodes:  it.RequiredRiskCodes,
			DiscountPercentage: it.DiscountPercentage,
			Validity:           it.validity(),
		})
	}
	return bundles, nil
}

func (r *RefRepo) FindCountryDefaultRate(ctx context.Context, isoCode string, asOf time.Time) (core.CountryDefaultDayPremium, error) {
	items, err := queryKind[countryDefaultRateItem](ctx, r.client, KindCountryDefaultRate, isoCode)
	if err != nil {
		return core.CountryDefaultDayPremium{}, err
	}
	var active []countryDefaultRateItem
	for _, it := range items {
		if it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, "country default rate "+isoCode)
	if err != nil {
		return core.CountryDefaultDayPremium{}, err
	}
	return core.CountryDefaultDayPremium{
		CountryISOCode: it.CountryISOCode,
		Amount:         it.Amount,
		Currency:       it.Currency,
		Validity:       it.validity(),
	}, nil
}

func (r *RefRepo) FindBoolConfig(ctx context.Context, key string, asOf time.Time, def bool) (bool, error) {
	items, err := queryKind[configFlagItem](ctx, r.client, KindConfigFlag, key)
	if err != nil {
		return def, err
	}
	var active []configFlagItem
	for _, it := range items {
		if it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	if len(active) == 0 {
		return def, nil
	}
	it, err := one(active, "config flag "+key)
	if err != nil {
		return def, err
	}
	return it.Value, nil
}

func (r *RefRepo) FindRuleParameter(ctx context.Context, ruleName, paramName string, asOf time.Time) (float64, error) {
	key := ruleName + "." + paramName
	items, err := queryKind[ruleParameterItem](ctx, r.client, KindRuleParameter, key)
	if err != nil {
		return 0, err
	}
	var active []ruleParameterItem
	for _, it := range items {
		if it.validity().ActiveAt(asOf) {
			active = append(active, it)
		}
	}
	it, err := one(active, "rule parameter "+key)
	if err != nil {
		return 0, err
	}
	return it.Value, nil
}

// PutCountry and friends write reference items; used by the seed command.
func (r *RefRepo) PutCountry(ctx context.Context, c core.Country) error {
	return r.put(ctx, countryItem{
		refMeta:         meta(KindCountry, c.ISOCode, c.Validity),
		ISOCode:         c.ISOCode,
		Name:            c.Name,
		RiskCoefficient: c.RiskCoefficient,
		RiskGroup:       string(c.RiskGroup),
	})
}

func (r *RefRepo) PutCoverageLevel(ctx context.Context, l core.MedicalCoverageLevel) error {
	return r.put(ctx, coverageLevelItem{
		refMeta:         meta(KindCoverageLevel, l.Code, l.Validity),
		Code:            l.Code,
		DailyRate:       l.DailyRate,
		CoverageAmount:  l.CoverageAmount,
		Currency:        l.Currency,
		MaxPayoutAmount: l.MaxPayoutAmount,
	})
}

func (r *RefRepo) PutRiskType(ctx context.Context, t core.RiskType) error {
	return r.put(ctx, riskTypeItem{
		refMeta:     meta(KindRiskType, t.Code, t.Validity),
		Code:        t.Code,
		Name:        t.Name,
		Coefficient: t.Coefficient,
		IsMandatory: t.IsMandatory,
	})
}

func (r *RefRepo) PutAgeCoefficient(ctx context.Context, b core.AgeCoefficient) error {
	return r.put(ctx, ageCoefficientItem{
		refMeta:     meta(KindAgeCoefficient, fmt.Sprintf("%03d", b.AgeFrom), b.Validity),
		AgeFrom:     b.AgeFrom,
		AgeTo:       b.AgeTo,
		Coefficient: b.Coefficient,
	})
}

func (r *RefRepo) PutDurationCoefficient(ctx context.Context, b core.DurationCoefficient) error {
	return r.put(ctx, durationCoefficientItem{
		refMeta:     meta(KindDurationCoefficient, fmt.Sprintf("%04d", b.DaysFrom), b.Validity),
		DaysFrom:    b.DaysFrom,
		DaysTo:      b.DaysTo,
		Coefficient: b.Coefficient,
	})
}

func (r *RefRepo) PutAgeRiskModifier(ctx context.Context, m core.AgeRiskModifier) error {
	return r.put(ctx, ageRiskModifierItem{
		refMeta:  meta(KindAgeRiskModifier, fmt.Sprintf("%s#%03d", m.RiskCode, m.AgeFrom), m.Validity),
		RiskCode: m.RiskCode,
		AgeFrom:  m.AgeFrom,
		AgeTo:    m.AgeTo,
		Modifier: m.Modifier,
	})
}

func (r *RefRepo) PutBundle(ctx context.Context, b core.RiskBundle) error {
	return r.put(ctx, riskBundleItem{
		refMeta:            meta(KindRiskBundle, b.Code, b.Validity),
		Code:               b.Code,
		Name:               b.Name,
		RequiredRiskCodes:  b.RequiredRiskCodes,
		DiscountPercentage: b.DiscountPercentage,
	})
}

func (r *RefRepo) PutCountryDefaultRate(ctx context.Context, d core.CountryDefaultDayPremium) error {
	return r.put(ctx, countryDefaultRateItem{
		refMeta:        meta(KindCountryDefaultRate, d.CountryISOCode, d.Validity),
		CountryISOCode: d.CountryISOCode,
		Amount:         d.Amount,
		Currency:       d.Currency,
	})
}

func (r *RefRepo) PutConfigFlag(ctx context.Context, f core.ConfigFlag) error {
	return r.put(ctx, configFlagItem{
		refMeta: meta(KindConfigFlag, f.Key, f.Validity),
		Key:     f.Key,
		Value:   f.Value,
	})
}

func (r *RefRepo) PutRuleParameter(ctx context.Context, p core.RuleParameter) error {
	return r.put(ctx, ruleParameterItem{
		refMeta:       meta(KindRuleParameter, p.RuleName+"."+p.ParameterName, p.Validity),
		RuleName:      p.RuleName,
		ParameterName: p.ParameterName,
		Value:         p.Value,
	})
}

func meta(kind, code string, v core.Validity) refMeta {
	return refMeta{
		Kind:      kind,
		RecordKey: recordKey(code, v.ValidFrom),
		ValidFrom: v.ValidFrom,
		ValidTo:   v.ValidTo,
	}
}

func (r *RefRepo) put(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("reference.marshal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(TableReference),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("reference.put: %w", err)
	}
	return nil
}
