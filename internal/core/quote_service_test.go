package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuoteRepo struct {
	created []Quote
	byID    map[string]Quote
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{byID: make(map[string]Quote)}
}

func (r *fakeQuoteRepo) Create(_ context.Context, q Quote) error {
	r.created = append(r.created, q)
	r.byID[q.ID] = q
	return nil
}

func (r *fakeQuoteRepo) Get(_ context.Context, id string) (Quote, error) {
	q, ok := r.byID[id]
	if !ok {
		return Quote{}, ErrQuoteNotFound
	}
	return q, nil
}

func (r *fakeQuoteRepo) FindExpired(_ context.Context, now time.Time, limit int) ([]Quote, error) {
	var out []Quote
	for _, q := range r.byID {
		if q.Status == QuoteStatusPriced && q.ExpiresAt.Before(now) {
			out = append(out, q)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeQuoteRepo) UpdateStatus(_ context.Context, id string, status QuoteStatus) error {
	q, ok := r.byID[id]
	if !ok {
		return ErrQuoteNotFound
	}
	q.Status = status
	r.byID[id] = q
	return nil
}

type fakePromoRepo struct {
	promo    PromoCode
	redeemed int
}

func (r *fakePromoRepo) FindActive(_ context.Context, code string, _ time.Time) (PromoCode, error) {
	if r.promo.Code != code {
		return PromoCode{}, ErrPromoNotFound
	}
	return r.promo, nil
}

func (r *fakePromoRepo) Redeem(_ context.Context, code string) error {
	if r.promo.Code != code {
		return ErrPromoNotFound
	}
	if r.promo.Exhausted() {
		return ErrPromoExhausted
	}
	r.promo.UsedCount++
	r.redeemed++
	return nil
}

func basicInput() QuoteInput {
	return QuoteInput{
		BirthDate:         "2001-01-01",
		DateFrom:          "2026-06-01",
		DateTo:            "2026-06-08",
		CountryISO:        "ES",
		CoverageLevelCode: "BASIC",
	}
}

func newTestService(ref ReferenceDataPort, promos PromoRepo, quotes QuoteRepo) QuoteService {
	log := testLogger()
	return NewQuoteService(
		NewRuleEngine(ref, log),
		NewPremiumEngine(ref, log),
		NewDiscountService(promos, log),
		quotes,
		log,
	)
}

func TestQuoteServicePrice(t *testing.T) {
	ctx := context.Background()

	t.Run("approved request is priced and persisted", func(t *testing.T) {
		repo := newFakeQuoteRepo()
		svc := newTestService(standardRef(), &fakePromoRepo{}, repo)

		q, err := svc.Price(ctx, basicInput())
		require.NoError(t, err)

		assert.Equal(t, QuoteStatusPriced, q.Status)
		require.NotNil(t, q.Premium)
		assert.Equal(t, 14.00, q.Premium.FinalPremium)
		assert.Equal(t, 14.00, q.TotalPrice)
		assert.NotEmpty(t, q.ID)
		assert.Equal(t, q.CreatedAt.AddDate(0, 0, QuoteValidityDays), q.ExpiresAt)
		require.Len(t, repo.created, 1)
	})

	t.Run("declined request is never priced", func(t *testing.T) {
		// Underwriting sees real data; the premium engine would blow up on
		// any lookup. A declined quote must come back cleanly anyway.
		poisoned := &fakeRef{failWith: errors.New("pricing must not run")}
		repo := newFakeQuoteRepo()
		log := testLogger()
		svc := NewQuoteService(
			NewRuleEngine(standardRef(), log),
			NewPremiumEngine(poisoned, log),
			NewDiscountService(&fakePromoRepo{}, log),
			repo,
			log,
		)

		in := basicInput()
		in.BirthDate = "1951-01-01"
		in.CoverageLevelCode = "PREMIUM"

		q, err := svc.Price(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, QuoteStatusDeclined, q.Status)
		assert.Nil(t, q.Premium)
		assert.Zero(t, q.TotalPrice)
		assert.Equal(t, UWDecisionDeclined, q.Underwriting.Decision)
		require.Len(t, repo.created, 1)
	})

	t.Run("referred request is persisted without a price", func(t *testing.T) {
		repo := newFakeQuoteRepo()
		svc := newTestService(standardRef(), &fakePromoRepo{}, repo)

		in := basicInput()
		in.BirthDate = "1954-01-01" // 72: review band

		q, err := svc.Price(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, QuoteStatusReferred, q.Status)
		assert.Nil(t, q.Premium)
	})

	t.Run("promo discount comes off the final premium", func(t *testing.T) {
		promos := &fakePromoRepo{promo: PromoCode{Code: "WELCOME10", Percentage: 10, UsageLimit: 100}}
		svc := newTestService(standardRef(), promos, newFakeQuoteRepo())

		in := basicInput()
		in.PromoCode = "WELCOME10"

		q, err := svc.Price(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 1.40, q.PromoDiscount)
		assert.Equal(t, 12.60, q.TotalPrice)
		assert.Equal(t, 1, promos.redeemed)
	})

	t.Run("unknown promo code prices without discount", func(t *testing.T) {
		svc := newTestService(standardRef(), &fakePromoRepo{}, newFakeQuoteRepo())

		in := basicInput()
		in.PromoCode = "NOPE"

		q, err := svc.Price(ctx, in)
		require.NoError(t, err)
		assert.Zero(t, q.PromoDiscount)
		assert.Equal(t, 14.00, q.TotalPrice)
	})

	t.Run("exhausted promo code prices without discount", func(t *testing.T) {
		promos := &fakePromoRepo{promo: PromoCode{Code: "GONE", Percentage: 10, UsageLimit: 5, UsedCount: 5}}
		svc := newTestService(standardRef(), promos, newFakeQuoteRepo())

		in := basicInput()
		in.PromoCode = "GONE"

		q, err := svc.Price(ctx, in)
		require.NoError(t, err)
		assert.Zero(t, q.PromoDiscount)
		assert.Zero(t, promos.redeemed)
	})

	t.Run("malformed input fails validation", func(t *testing.T) {
		svc := newTestService(standardRef(), &fakePromoRepo{}, newFakeQuoteRepo())

		in := basicInput()
		in.DateTo = "not-a-date"

		_, err := svc.Price(ctx, in)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestQuoteServiceGet(t *testing.T) {
	ctx := context.Background()
	repo := newFakeQuoteRepo()
	svc := newTestService(standardRef(), &fakePromoRepo{}, repo)

	created, err := svc.Price(ctx, basicInput())
	require.NoError(t, err)

	t.Run("returns the stored quote", func(t *testing.T) {
		got, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.TotalPrice, got.TotalPrice)
	})

	t.Run("missing ID fails validation", func(t *testing.T) {
		_, err := svc.Get(ctx, "")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown ID is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})
}
