package memory

import (
	"context"
	"sync"
	"time"

	"github.com/apines/go-travelcover/internal/core"
)

// PromoStore is an in-memory core.PromoRepo. Redeem holds the write lock
// while re-checking the usage limit, so concurrent redemptions cannot exceed
// it.
type PromoStore struct {
	mu     sync.Mutex
	promos map[string]core.PromoCode
}

func NewPromoStore() *PromoStore {
	return &PromoStore{promos: make(map[string]core.PromoCode)}
}

func (s *PromoStore) Add(p core.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[p.Code] = p
}

func (s *PromoStore) FindActive(_ context.Context, code string, asOf time.Time) (core.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[code]
	if !ok || !p.ActiveAt(asOf) {
		return core.PromoCode{}, core.ErrPromoNotFound
	}
	return p, nil
}

func (s *PromoStore) Redeem(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[code]
	if !ok {
		return core.ErrPromoNotFound
	}
	if p.Exhausted() {
		return core.ErrPromoExhausted
	}
	p.UsedCount++
	s.promos[code] = p
	return nil
}
