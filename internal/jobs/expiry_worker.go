package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/apines/go-travelcover/internal/core"
)

// ExpiryWorker marks priced quotes past their validity window as expired
// so clients cannot bind stale premiums.
type ExpiryWorker struct {
	BaseWorker
	quotes core.QuoteRepo
	clock  func() time.Time
}

// NewExpiryWorker creates a new quote-expiry worker.
func NewExpiryWorker(quotes core.QuoteRepo, interval time.Duration, log *slog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		BaseWorker: NewBaseWorker("quote-expiry", interval, log),
		quotes:     quotes,
		clock:      time.Now,
	}
}

// Start begins the worker polling loop.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.Poll(ctx, w.expireStale)
}

// Name returns the worker name.
func (w *ExpiryWorker) Name() string {
	return w.name
}

// expireStale finds priced quotes whose expires_at has passed (limit 50
// per poll) and flips them to expired.
func (w *ExpiryWorker) expireStale(ctx context.Context) error {
	stale, err := w.quotes.FindExpired(ctx, w.clock(), 50)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}

	w.log.Info("found stale quotes", "count", len(stale))

	for _, q := range stale {
		if err := w.quotes.UpdateStatus(ctx, q.ID, core.QuoteStatusExpired); err != nil {
			w.log.Error("failed to expire quote",
				"quote_id", q.ID,
				"err", err,
			)
			continue
		}

		w.log.Info("quote expired",
			"quote_id", q.ID,
			"expired_at", q.ExpiresAt,
		)
	}

	return nil
}
