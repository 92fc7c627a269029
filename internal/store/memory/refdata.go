// Package memory provides in-process stores used by tests and dev mode. They
// implement the same contracts as the Mongo and DynamoDB stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apines/go-travelcover/internal/core"
)

// RefStore is an in-memory core.ReferenceDataPort. Safe for concurrent use.
type RefStore struct {
	mu sync.RWMutex

	countries    []core.Country
	levels       []core.MedicalCoverageLevel
	risks        []core.RiskType
	ageBands     []core.AgeCoefficient
	durBands     []core.DurationCoefficient
	modifiers    []core.AgeRiskModifier
	bundles      []core.RiskBundle
	defaultRates []core.CountryDefaultDayPremium
	flags        []core.ConfigFlag
	params       []core.RuleParameter
}

func NewRefStore() *RefStore { return &RefStore{} }

func (s *RefStore) AddCountry(v core.Country) { s.mu.Lock(); defer s.mu.Unlock(); s.countries = append(s.countries, v) }
func (s *RefStore) AddCoverageLevel(v core.MedicalCoverageLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, v)
}
func (s *RefStore) AddRiskType(v core.RiskType) { s.mu.Lock(); defer s.mu.Unlock(); s.risks = append(s.risks, v) }
func (s *RefStore) AddAgeCoefficient(v core.AgeCoefficient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ageBands = append(s.ageBands, v)
}
func (s *RefStore) AddDurationCoefficient(v core.DurationCoefficient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durBands = append(s.durBands, v)
}
func (s *RefStore) AddAgeRiskModifier(v core.AgeRiskModifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modifiers = append(s.modifiers, v)
}
func (s *RefStore) AddBundle(v core.RiskBundle) { s.mu.Lock(); defer s.mu.Unlock(); s.bundles = append(s.bundles, v) }
func (s *RefStore) AddCountryDefaultRate(v core.CountryDefaultDayPremium) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultRates = append(s.defaultRates, v)
}
func (s *RefStore) AddConfigFlag(v core.ConfigFlag) { s.mu.Lock(); defer s.mu.Unlock(); s.flags = append(s.flags, v) }
func (s *RefStore) AddRuleParameter(v core.RuleParameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = append(s.params, v)
}

// findOne enforces the at-most-one-active-record contract shared by all
// lookups: zero matches is ErrNotFound, more than one is a configuration
// error, never a silent pick.
func findOne[T any](items []T, match func(T) bool, kind string) (T, error) {
	var (
		found T
		n     int
	)
	for _, it := range items {
		if match(it) {
			found = it
			n++
		}
	}
	switch n {
	case 0:
		var zero T
		return zero, fmt.Errorf("%w: %s", core.ErrNotFound, kind)
	case 1:
		return found, nil
	default:
		var zero T
		return zero, fmt.Errorf("%w: %s", core.ErrAmbiguousReference, kind)
	}
}

func (s *RefStore) FindCountry(_ context.Context, isoCode string, asOf time.Time) (core.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.countries, func(c core.Country) bool {
		return c.ISOCode == isoCode && c.ActiveAt(asOf)
	}, "country "+isoCode)
}

func (s *RefStore) FindCoverageLevel(_ context.Context, code string, asOf time.Time) (core.MedicalCoverageLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.levels, func(l core.MedicalCoverageLevel) bool {
		return l.Code == code && l.ActiveAt(asOf)
	}, "coverage level "+code)
}

func (s *RefStore) FindRiskType(_ context.Context, code string, asOf time.Time) (core.RiskType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.risks, func(r core.RiskType) bool {
		return r.Code == code && r.ActiveAt(asOf)
	}, "risk type "+code)
}

func (s *RefStore) FindAgeCoefficient(_ context.Context, age int, asOf time.Time) (core.AgeCoefficient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.ageBands, func(b core.AgeCoefficient) bool {
		return age >= b.AgeFrom && age <= b.AgeTo && b.ActiveAt(asOf)
	}, fmt.Sprintf("age coefficient for age %d", age))
}

func (s *RefStore) FindDurationCoefficient(_ context.Context, days int, asOf time.Time) (core.DurationCoefficient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.durBands, func(b core.DurationCoefficient) bool {
		return days >= b.DaysFrom && days <= b.DaysTo && b.ActiveAt(asOf)
	}, fmt.Sprintf("duration coefficient for %d days", days))
}

func (s *RefStore) FindAgeRiskModifier(_ context.Context, riskCode string, age int, asOf time.Time) (core.AgeRiskModifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.modifiers, func(m core.AgeRiskModifier) bool {
		return m.RiskCode == riskCode && age >= m.AgeFrom && age <= m.AgeTo && m.ActiveAt(asOf)
	}, "age risk modifier for "+riskCode)
}

func (s *RefStore) FindAllActiveBundles(_ context.Context, asOf time.Time) ([]core.RiskBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RiskBundle
	for _, b := range s.bundles {
		if b.ActiveAt(asOf) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *RefStore) FindCountryDefaultRate(_ context.Context, isoCode string, asOf time.Time) (core.CountryDefaultDayPremium, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.defaultRates, func(r core.CountryDefaultDayPremium) bool {
		return r.CountryISOCode == isoCode && r.ActiveAt(asOf)
	}, "country default rate "+isoCode)
}

func (s *RefStore) FindBoolConfig(_ context.Context, key string, asOf time.Time, def bool) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flag, err := findOne(s.flags, func(f core.ConfigFlag) bool {
		return f.Key == key && f.ActiveAt(asOf)
	}, "config flag "+key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	return flag.Value, nil
}

func (s *RefStore) FindRuleParameter(_ context.Context, ruleName, paramName string, asOf time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := findOne(s.params, func(p core.RuleParameter) bool {
		return p.RuleName == ruleName && p.ParameterName == paramName && p.ActiveAt(asOf)
	}, fmt.Sprintf("rule parameter %s.%s", ruleName, paramName))
	if err != nil {
		return 0, err
	}
	return p.Value, nil
}

// CheckOverlaps verifies that no two records for the same code have
// intersecting validity windows. Tests use this to assert the configuration
// invariant the lookups rely on.
func (s *RefStore) CheckOverlaps() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.countries {
		for j := i + 1; j < len(s.countries); j++ {
			a, b := s.countries[i], s.countries[j]
			if a.ISOCode == b.ISOCode && a.Validity.Overlaps(b.Validity) {
				return fmt.Errorf("%w: country %s", core.ErrAmbiguousReference, a.ISOCode)
			}
		}
	}
	for i := range s.levels {
		for j := i + 1; j < len(s.levels); j++ {
			a, b := s.levels[i], s.levels[j]
			if a.Code == b.Code && a.Validity.Overlaps(b.Validity) {
				return fmt.Errorf("%w: coverage level %s", core.ErrAmbiguousReference, a.Code)
			}
		}
	}
	for i := range s.risks {
		for j := i + 1; j < len(s.risks); j++ {
			a, b := s.risks[i], s.risks[j]
			if a.Code == b.Code && a.Validity.Overlaps(b.Validity) {
				return fmt.Errorf("%w: risk type %s", core.ErrAmbiguousReference, a.Code)
			}
		}
	}
	return nil
}
