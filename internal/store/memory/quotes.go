package memory

import (
	"context"
	"sync"
	"time"

	"github.com/apines/go-travelcover/internal/core"
)

// QuoteStore is an in-memory core.QuoteRepo.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]core.Quote
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]core.Quote)}
}

func (s *QuoteStore) Create(_ context.Context, q core.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quotes[q.ID]; exists {
		return core.ErrConflict
	}
	s.quotes[q.ID] = q
	return nil
}

func (s *QuoteStore) Get(_ context.Context, id string) (core.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[id]
	if !ok {
		return core.Quote{}, core.ErrQuoteNotFound
	}
	return q, nil
}

func (s *QuoteStore) FindExpired(_ context.Context, now time.Time, limit int) ([]core.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Quote
	for _, q := range s.quotes {
		if q.Status == core.QuoteStatusPriced && q.ExpiresAt.Before(now) {
			out = append(out, q)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *QuoteStore) UpdateStatus(_ context.Context, id string, status core.QuoteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return core.ErrQuoteNotFound
	}
	q.Status = status
	s.quotes[id] = q
	return nil
}
