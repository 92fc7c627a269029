package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/apines/go-travelcover/internal/core"
)

type PromoRepoDynamo struct {
	client *dynamodb.Client
}

func NewPromoRepo(client *Client) *PromoRepoDynamo {
	return &PromoRepoDynamo{client: client.DB}
}

type promoItem struct {
	Code       string     `dynamodbav:"code"`
	Percentage float64    `dynamodbav:"percentage"`
	UsageLimit int        `dynamodbav:"usage_limit"`
	UsedCount  int        `dynamodbav:"used_count"`
	ValidFrom  time.Time  `dynamodbav:"valid_from"`
	ValidTo    *time.Time `dynamodbav:"valid_to,omitempty"`
}

func (r *PromoRepoDynamo) FindActive(ctx context.Context, code string, asOf time.Time) (core.PromoCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(TablePromos),
		Key:       map[string]types.AttributeValue{"code": &types.AttributeValueMemberS{Value: code}},
	})
	if err != nil {
		return core.PromoCode{}, fmt.Errorf("promos.get: %w", err)
	}
	if out.Item == nil {
		return core.PromoCode{}, core.ErrPromoNotFound
	}

	var it promoItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return core.PromoCode{}, fmt.Errorf("promos.unmarshal: %w", err)
	}

	p := core.PromoCode{
		Code:       it.Code,
		Percentage: it.Percentage,
		UsageLimit: it.UsageLimit,
		UsedCount:  it.UsedCount,
		Validity:   core.Validity{ValidFrom: it.ValidFrom, ValidTo: it.ValidTo},
	}
	if !p.ActiveAt(asOf) {
		return core.PromoCode{}, core.ErrPromoNotFound
	}
	return p, nil
}

// Redeem increments used_count with the limit re-checked in the condition
// expression, so concurrent redemptions cannot exceed the cap.
func (r *PromoRepoDynamo) Redeem(ctx context.Context, code string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(TablePromos),
		Key:                 map[string]types.AttributeValue{"code": &types.AttributeValueMemberS{Value: code}},
		UpdateExpression:    aws.String("SET used_count = used_count + :one"),
		ConditionExpression: aws.String("attribute_exists(code) AND (usage_limit <= :zero OR used_count < usage_limit)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":  &types.AttributeValueMemberN{Value: "1"},
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.ErrPromoExhausted
		}
		return fmt.Errorf("promos.redeem: %w", err)
	}
	return nil
}

// Put writes a promo code; used by the seed command.
func (r *PromoRepoDynamo) Put(ctx context.Context, p core.PromoCode) error {
	av, err := attributevalue.MarshalMap(promoItem{
		Code:       p.Code,
		Percentage: p.Percentage,
		UsageLimit: p.UsageLimit,
		UsedCount:  p.UsedCount,
		ValidFrom:  p.ValidFrom,
		ValidTo:    p.ValidTo,
	})
	if err != nil {
		return fmt.Errorf("promos.marshal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(TablePromos),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("promos.put: %w", err)
	}
	return nil
}
