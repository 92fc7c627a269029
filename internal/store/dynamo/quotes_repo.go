package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/apines/go-travelcover/internal/core"
)

type QuoteRepoDynamo struct {
	client *dynamodb.Client
}

func NewQuoteRepo(client *Client) *QuoteRepoDynamo {
	return &QuoteRepoDynamo{client: client.DB}
}

type quoteItem struct {
	ID           string                  `dynamodbav:"id"`
	Request      core.QuoteRequest       `dynamodbav:"request"`
	Underwriting core.UnderwritingResult `dynamodbav:"underwriting"`
	Premium      *core.PremiumResult     `dynamodbav:"premium,omitempty"`

	PromoCode     string  `dynamodbav:"promo_code,omitempty"`
	PromoDiscount float64 `dynamodbav:"promo_discount,omitempty"`
	TotalPrice    float64 `dynamodbav:"total_price"`

	Status    string    `dynamodbav:"status"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	ExpiresAt time.Time `dynamodbav:"expires_at"`
}

func toQuoteItem(q core.Quote) quoteItem {
	return quoteItem{
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

func fromQuoteItem(it quoteItem) core.Quote {
	return core.Quote{
		ID:            it.ID,
		Request:       it.Request,
		Underwriting:  it.Underwriting,
		Premium:       it.Premium,
		PromoCode:     it.PromoCode,
		PromoDiscount: it.PromoDiscount,
		TotalPrice:    it.TotalPrice,
		Status:        core.QuoteStatus(it.Status),
		CreatedAt:     it.CreatedAt,
		ExpiresAt:     it.ExpiresAt,
	}
}

func (r *QuoteRepoDynamo) Create(ctx context.Context, q core.Quote) error {
	av, err := attributevalue.MarshalMap(toQuoteItem(q))
	if err != nil {
		return fmt.Errorf("quotes.marshal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(TableQuotes),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: quote %s", core.ErrConflict, q.ID)
		}
		return fmt.Errorf("quotes.put: %w", err)
	}
	return nil
}

func (r *QuoteRepoDynamo) Get(ctx context.Context, id string) (core.Quote, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(TableQuotes),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return core.Quote{}, fmt.Errorf("quotes.get: %w", err)
	}
	if out.Item == nil {
		return core.Quote{}, core.ErrQuoteNotFound
	}

	var it quoteItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return core.Quote{}, fmt.Errorf("quotes.unmarshal: %w", err)
	}
	return fromQuoteItem(it), nil
}

// FindExpired queries the status GSI for priced quotes past their validity.
func (r *QuoteRepoDynamo) FindExpired(ctx context.Context, now time.Time, limit int) ([]core.Quote, error) {
	keyCond := expression.Key("status").Equal(expression.Value(string(core.QuoteStatusPriced)))
	filter := expression.Name("expires_at").LessThan(expression.Value(now.Format(time.RFC3339)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("quotes.buildexpr: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(TableQuotes),
		IndexName:                 aws.String(GSIQuotesStatus),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("quotes.query: %w", err)
	}

	var items []quoteItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("quotes.unmarshal: %w", err)
	}

	quotes := make([]core.Quote, 0, len(items))
	for _, it := range items {
		quotes = append(quotes, fromQuoteItem(it))
	}
	return quotes, nil
}

func (r *QuoteRepoDynamo) UpdateStatus(ctx context.Context, id string, status core.QuoteStatus) error {
	update := expression.Set(expression.Name("status"), expression.Value(string(status)))
	cond := expression.AttributeExists(expression.Name("id"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("quotes.buildexpr: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(TableQuotes),
		Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.ErrQuoteNotFound
		}
		return fmt.Errorf("quotes.updateStatus: %w", err)
	}
	return nil
}
