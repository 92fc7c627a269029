package core

import (
	"context"
	"fmt"
	"time"
)

type QuoteStatus string

const (
	QuoteStatusPriced   QuoteStatus = "priced"
	QuoteStatusReferred QuoteStatus = "referred" // awaiting manual review
	QuoteStatusDeclined QuoteStatus = "declined"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// QuoteInput is the raw quote request as received from the transport layer.
// Dates arrive as ISO strings and are parsed during validation.
type QuoteInput struct {
	BirthDate         string   `json:"birth_date"`
	DateFrom          string   `json:"date_from"`
	DateTo            string   `json:"date_to"`
	CountryISO        string   `json:"country_iso"`
	CoverageLevelCode string   `json:"coverage_level_code"`
	RiskCodes         []string `json:"risk_codes"`
	UseCountryDefault bool     `json:"use_country_default"`
	PromoCode         string   `json:"promo_code,omitempty"`

	AgeCoefficientOverride *bool `json:"age_coefficient_override,omitempty"`
}

const dateLayout = "2006-01-02"

// ToRequest validates the input and converts it to the engine request shape.
func (in QuoteInput) ToRequest() (QuoteRequest, error) {
	birth, err := parseDate("birth_date", in.BirthDate)
	if err != nil {
		return QuoteRequest{}, err
	}
	from, err := parseDate("date_from", in.DateFrom)
	if err != nil {
		return QuoteRequest{}, err
	}
	to, err := parseDate("date_to", in.DateTo)
	if err != nil {
		return QuoteRequest{}, err
	}

	req := QuoteRequest{
		BirthDate:              birth,
		DateFrom:               from,
		DateTo:                 to,
		CountryISO:             in.CountryISO,
		CoverageLevelCode:      in.CoverageLevelCode,
		RiskCodes:              in.RiskCodes,
		UseCountryDefault:      in.UseCountryDefault,
		AgeCoefficientOverride: in.AgeCoefficientOverride,
	}
	if err := req.Validate(); err != nil {
		return QuoteRequest{}, err
	}
	return req, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrValidation, field)
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrValidation, field)
	}
	return t, nil
}

// Quote is a priced (or refused) travel-insurance quotation.
type Quote struct {
	ID           string             `json:"id"`
	Request      QuoteRequest       `json:"request"`
	Underwriting UnderwritingResult `json:"underwriting"`
	Premium      *PremiumResult     `json:"premium,omitempty"`

	PromoCode     string  `json:"promo_code,omitempty"`
	PromoDiscount float64 `json:"promo_discount,omitempty"`
	TotalPrice    float64 `json:"total_price"`

	Status    QuoteStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type QuoteRepo interface {
	Create(ctx context.Context, q Quote) error
	Get(ctx context.Context, id string) (Quote, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]Quote, error)
	UpdateStatus(ctx context.Context, id string, status QuoteStatus) error
}

var ErrQuoteNotFound = fmt.Errorf("%w: quote not found", ErrNotFound)
