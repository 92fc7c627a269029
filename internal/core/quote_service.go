package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apines/go-travelcover/internal/platform/ids"
)

// QuoteValidityDays is how long a priced quote can be accepted.
const QuoteValidityDays = 14

// QuoteService orchestrates a quote request: validation, underwriting,
// pricing, discount application, persistence.
type QuoteService interface {
	Price(ctx context.Context, in QuoteInput) (Quote, error)
	Get(ctx context.Context, id string) (Quote, error)
}

type quoteService struct {
	uw        *RuleEngine
	premiums  *PremiumEngine
	discounts *DiscountService
	quotes    QuoteRepo
	clock     func() time.Time
	log       *slog.Logger
}

func NewQuoteService(uw *RuleEngine, premiums *PremiumEngine, discounts *DiscountService, quotes QuoteRepo, log *slog.Logger) QuoteService {
	return &quoteService{
		uw:        uw,
		premiums:  premiums,
		discounts: discounts,
		quotes:    quotes,
		clock:     time.Now,
		log:       log,
	}
}

// Price runs the full quote pipeline. The premium engine is only ever
// invoked when underwriting approved the request; declined and referred
// requests are persisted without a price.
func (s *quoteService) Price(ctx context.Context, in QuoteInput) (Quote, error) {
	// 1) validate and parse
	req, err := in.ToRequest()
	if err != nil {
		return Quote{}, err
	}

	now := s.clock()
	q := Quote{
		ID:        ids.New(),
		Request:   req,
		CreatedAt: now,
	}

	// 2) underwrite
	q.Underwriting = s.uw.Underwrite(ctx, req, req.AsOf())
	if !q.Underwriting.Approved() {
		switch q.Underwriting.Decision {
		case UWDecisionDeclined:
			q.Status = QuoteStatusDeclined
		default:
			q.Status = QuoteStatusReferred
		}
		s.log.Info("quote not approved",
			"quote_id", q.ID,
			"decision", q.Underwriting.Decision,
			"reason", q.Underwriting.Reason)
		return s.persist(ctx, q)
	}

	// 3) price
	premium, err := s.premiums.Calculate(ctx, req)
	if err != nil {
		return Quote{}, err
	}
	q.Premium = &premium

	// 4) apply promo discount after pricing
	q.PromoCode = in.PromoCode
	q.PromoDiscount = s.discounts.Apply(ctx, in.PromoCode, premium.FinalPremium, req.AsOf())
	q.TotalPrice = round2(premium.FinalPremium - q.PromoDiscount)

	q.Status = QuoteStatusPriced
	q.ExpiresAt = now.AddDate(0, 0, QuoteValidityDays)

	// 5) persist
	return s.persist(ctx, q)
}

func (s *quoteService) persist(ctx context.Context, q Quote) (Quote, error) {
	if s.quotes != nil {
		if err := s.quotes.Create(ctx, q); err != nil {
			return Quote{}, err
		}
	}
	return q, nil
}

func (s *quoteService) Get(ctx context.Context, id string) (Quote, error) {
	if id == "" {
		return Quote{}, fmt.Errorf("%w: missing quote ID", ErrValidation)
	}
	return s.quotes.Get(ctx, id)
}
