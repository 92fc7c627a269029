package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apines/go-travelcover/internal/core"
)

func TestPromoStoreRedeem(t *testing.T) {
	ctx := context.Background()
	asOf := day(2026, time.June, 1)

	t.Run("redeem counts up to the limit", func(t *testing.T) {
		store := NewPromoStore()
		store.Add(core.PromoCode{Code: "WELCOME10", Percentage: 10, UsageLimit: 2})

		require.NoError(t, store.Redeem(ctx, "WELCOME10"))
		require.NoError(t, store.Redeem(ctx, "WELCOME10"))
		require.ErrorIs(t, store.Redeem(ctx, "WELCOME10"), core.ErrPromoExhausted)

		p, err := store.FindActive(ctx, "WELCOME10", asOf)
		require.NoError(t, err)
		assert.Equal(t, 2, p.UsedCount)
	})

	t.Run("unlimited codes never exhaust", func(t *testing.T) {
		store := NewPromoStore()
		store.Add(core.PromoCode{Code: "FOREVER", Percentage: 5, UsageLimit: 0})

		for i := 0; i < 50; i++ {
			require.NoError(t, store.Redeem(ctx, "FOREVER"))
		}
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		store := NewPromoStore()
		require.ErrorIs(t, store.Redeem(ctx, "NOPE"), core.ErrPromoNotFound)
		_, err := store.FindActive(ctx, "NOPE", asOf)
		require.ErrorIs(t, err, core.ErrPromoNotFound)
	})

	t.Run("expired code is not active", func(t *testing.T) {
		store := NewPromoStore()
		end := day(2025, time.January, 1)
		store.Add(core.PromoCode{
			Code: "OLD", Percentage: 10,
			Validity: core.Validity{ValidFrom: day(2024, time.January, 1), ValidTo: &end},
		})

		_, err := store.FindActive(ctx, "OLD", asOf)
		require.ErrorIs(t, err, core.ErrPromoNotFound)
	})

	t.Run("concurrent redemptions never exceed the limit", func(t *testing.T) {
		const limit = 50
		store := NewPromoStore()
		store.Add(core.PromoCode{Code: "RACE", Percentage: 10, UsageLimit: limit})

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if store.Redeem(ctx, "RACE") == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, succeeded)
		p, err := store.FindActive(ctx, "RACE", asOf)
		require.NoError(t, err)
		assert.Equal(t, limit, p.UsedCount)
	})
}

func TestQuoteStore(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.June, 1)

	quote := func(id string, status core.QuoteStatus, expires time.Time) core.Quote {
		return core.Quote{ID: id, Status: status, ExpiresAt: expires}
	}

	t.Run("create then get", func(t *testing.T) {
		store := NewQuoteStore()
		require.NoError(t, store.Create(ctx, quote("q1", core.QuoteStatusPriced, now.AddDate(0, 0, 14))))

		q, err := store.Get(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, core.QuoteStatusPriced, q.Status)
	})

	t.Run("duplicate ID conflicts", func(t *testing.T) {
		store := NewQuoteStore()
		require.NoError(t, store.Create(ctx, quote("q1", core.QuoteStatusPriced, now)))
		require.ErrorIs(t, store.Create(ctx, quote("q1", core.QuoteStatusPriced, now)), core.ErrConflict)
	})

	t.Run("find expired only sees stale priced quotes", func(t *testing.T) {
		store := NewQuoteStore()
		require.NoError(t, store.Create(ctx, quote("stale", core.QuoteStatusPriced, now.AddDate(0, 0, -1))))
		require.NoError(t, store.Create(ctx, quote("fresh", core.QuoteStatusPriced, now.AddDate(0, 0, 1))))
		require.NoError(t, store.Create(ctx, quote("declined", core.QuoteStatusDeclined, now.AddDate(0, 0, -1))))

		out, err := store.FindExpired(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "stale", out[0].ID)
	})

	t.Run("update status", func(t *testing.T) {
		store := NewQuoteStore()
		require.NoError(t, store.Create(ctx, quote("q1", core.QuoteStatusPriced, now)))
		require.NoError(t, store.UpdateStatus(ctx, "q1", core.QuoteStatusExpired))

		q, err := store.Get(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, core.QuoteStatusExpired, q.Status)

		require.ErrorIs(t, store.UpdateStatus(ctx, "missing", core.QuoteStatusExpired), core.ErrNotFound)
	})
}
