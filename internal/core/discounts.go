package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// PromoCode is a redeemable discount with an optional usage cap.
type PromoCode struct {
	Code       string  `json:"code"`
	Percentage float64 `json:"percentage"`
	UsageLimit int     `json:"usage_limit"` // 0 = unlimited
	UsedCount  int     `json:"used_count"`
	Validity   `json:"validity"`
}

// Exhausted reports whether the code has no redemptions left.
func (p PromoCode) Exhausted() bool {
	return p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit
}

// PromoRepo stores promo codes. Redeem must increment the usage counter
// atomically, re-checking the limit at write time, so concurrent requests
// cannot over-redeem.
type PromoRepo interface {
	FindActive(ctx context.Context, code string, asOf time.Time) (PromoCode, error)
	Redeem(ctx context.Context, code string) error
}

var (
	ErrPromoNotFound  = fmt.Errorf("%w: promo code not found", ErrNotFound)
	ErrPromoExhausted = fmt.Errorf("%w: promo code usage limit reached", ErrConflict)
)

// DiscountService applies a promo code to a computed premium. It runs after
// pricing and never touches the premium engines themselves.
type DiscountService struct {
	promos PromoRepo
	log    *slog.Logger
}

func NewDiscountService(promos PromoRepo, log *slog.Logger) *DiscountService {
	return &DiscountService{promos: promos, log: log}
}

// Apply redeems the code and returns the discount amount off the premium.
// An unknown or exhausted code is not an error for the quote as a whole; the
// quote simply carries no promo discount.
func (s *DiscountService) Apply(ctx context.Context, code string, premium float64, asOf time.Time) float64 {
	if code == "" {
		return 0
	}

	promo, err := s.promos.FindActive(ctx, code, asOf)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("promo lookup failed", "code", code, "err", err)
		}
		return 0
	}
	if err := s.promos.Redeem(ctx, code); err != nil {
		s.log.Warn("promo redemption refused", "code", code, "err", err)
		return 0
	}

	return round2(premium * promo.Percentage / 100)
}
