// Package cache provides a read-through TTL cache over the reference-data
// port. Entries are keyed by (kind, code, as-of date); callers tolerate
// staleness bounded by the TTL — there is no invalidation signal.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apines/go-travelcover/internal/core"
)

type entry struct {
	value     any
	err       error
	expiresAt time.Time
}

// RefCache wraps a core.ReferenceDataPort with a TTL cache. Both hits and
// misses (ErrNotFound) are cached; other errors are not.
type RefCache struct {
	next core.ReferenceDataPort
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]entry
	stopCh  chan struct{}
}

func New(next core.ReferenceDataPort, ttl time.Duration) *RefCache {
	c := &RefCache{
		next:    next,
		ttl:     ttl,
		entries: make(map[string]entry),
		stopCh:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Stop halts the background cleanup goroutine.
func (c *RefCache) Stop() {
	close(c.stopCh)
}

func (c *RefCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

func lookup[T any](c *RefCache, key string, load func() (T, error)) (T, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		if e.err != nil {
			var zero T
			return zero, e.err
		}
		return e.value.(T), nil
	}

	v, err := load()
	if err == nil || errors.Is(err, core.ErrNotFound) {
		c.mu.Lock()
		c.entries[key] = entry{value: v, err: err, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return v, err
}

func key(kind, code string, asOf time.Time) string {
	return fmt.Sprintf("%s|%s|%s", kind, code, asOf.Format("2006-01-02"))
}

func (c *RefCache) FindCountry(ctx context.Context, isoCode string, asOf time.Time) (core.Country, error) {
	return lookup(c, key("country", isoCode, asOf), func() (core.Country, error) {
		return c.next.FindCountry(ctx, isoCode, asOf)
	})
}

func (c *RefCache) FindCoverageLevel(ctx context.Context, code string, asOf time.Time) (core.MedicalCoverageLevel, error) {
	return lookup(c, key("coverage_level", code, asOf), func() (core.MedicalCoverageLevel, error) {
		return c.next.FindCoverageLevel(ctx, code, asOf)
	})
}

func (c *RefCache) FindRiskType(ctx context.Context, code string, asOf time.Time) (core.RiskType, error) {
	return lookup(c, key("risk_type", code, asOf), func() (core.RiskType, error) {
		return c.next.FindRiskType(ctx, code, asOf)
	})
}

func (c *RefCache) FindAgeCoefficient(ctx context.Context, age int, asOf time.Time) (core.AgeCoefficient, error) {
	return lookup(c, key("age_coefficient", fmt.Sprintf("%d", age), asOf), func() (core.AgeCoefficient, error) {
		return c.next.FindAgeCoefficient(ctx, age, asOf)
	})
}

func (c *RefCache) FindDurationCoefficient(ctx context.Context, days int, asOf time.Time) (core.DurationCoefficient, error) {
	return lookup(c, key("duration_coefficient", fmt.Sprintf("%d", days), asOf), func() (core.DurationCoefficient, error) {
		return c.next.FindDurationCoefficient(ctx, days, asOf)
	})
}

func (c *RefCache) FindAgeRiskModifier(ctx context.Context, riskCode string, age int, asOf time.Time) (core.AgeRiskModifier, error) {
	return lookup(c, key("age_risk_modifier", fmt.Sprintf("%s|%d", riskCode, age), asOf), func() (core.AgeRiskModifier, error) {
		return c.next.FindAgeRiskModifier(ctx, riskCode, age, asOf)
	})
}

func (c *RefCache) FindAllActiveBundles(ctx context.Context, asOf time.Time) ([]core.RiskBundle, error) {
	return lookup(c, key("bundles", "all", asOf), func() ([]core.RiskBundle, error) {
		return c.next.FindAllActiveBundles(ctx, asOf)
	})
}

func (c *RefCache) FindCountryDefaultRate(ctx context.Context, isoCode string, asOf time.Time) (core.CountryDefaultDayPremium, error) {
	return lookup(c, key("country_default_rate", isoCode, asOf), func() (core.CountryDefaultDayPremium, error) {
		return c.next.FindCountryDefaultRate(ctx, isoCode, asOf)
	})
}

func (c *RefCache) FindBoolConfig(ctx context.Context, cfgKey string, asOf time.Time, def bool) (bool, error) {
	return lookup(c, key("config", fmt.Sprintf("%s|%t", cfgKey, def), asOf), func() (bool, error) {
		return c.next.FindBoolConfig(ctx, cfgKey, asOf, def)
	})
}

func (c *RefCache) FindRuleParameter(ctx context.Context, ruleName, paramName string, asOf time.Time) (float64, error) {
	return lookup(c, key("rule_parameter", ruleName+"|"+paramName, asOf), func() (float64, error) {
		return c.next.FindRuleParameter(ctx, ruleName, paramName, asOf)
	})
}
