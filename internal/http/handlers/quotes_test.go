package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apines/go-travelcover/internal/core"
)

type stubQuoteService struct {
	priceFn func(core.QuoteInput) (core.Quote, error)
	getFn   func(string) (core.Quote, error)
}

func (s *stubQuoteService) Price(_ context.Context, in core.QuoteInput) (core.Quote, error) {
	return s.priceFn(in)
}

func (s *stubQuoteService) Get(_ context.Context, id string) (core.Quote, error) {
	return s.getFn(id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mountQuotes(svc core.QuoteService) http.Handler {
	r := chi.NewRouter()
	NewQuoteHandler(svc, discardLogger()).Mount(r)
	return r
}

func TestQuoteHandlerCreate(t *testing.T) {
	t.Run("returns 201 with the quote", func(t *testing.T) {
		svc := &stubQuoteService{
			priceFn: func(in core.QuoteInput) (core.Quote, error) {
				assert.Equal(t, "ES", in.CountryISO)
				return core.Quote{ID: "q-1", Status: core.QuoteStatusPriced, TotalPrice: 14.00}, nil
			},
		}

		body := `{"birth_date":"2001-01-01","date_from":"2026-06-01","date_to":"2026-06-08","country_iso":"ES","coverage_level_code":"BASIC"}`
		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got core.Quote
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "q-1", got.ID)
		assert.Equal(t, 14.00, got.TotalPrice)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		svc := &stubQuoteService{priceFn: func(core.QuoteInput) (core.Quote, error) {
			t.Fatal("service must not be called")
			return core.Quote{}, nil
		}}

		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		svc := &stubQuoteService{
			priceFn: func(core.QuoteInput) (core.Quote, error) {
				return core.Quote{}, core.ErrValidation
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing reference data maps to 404", func(t *testing.T) {
		svc := &stubQuoteService{
			priceFn: func(core.QuoteInput) (core.Quote, error) {
				return core.Quote{}, core.ErrCountryNotFound
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ambiguous reference data maps to 500", func(t *testing.T) {
		svc := &stubQuoteService{
			priceFn: func(core.QuoteInput) (core.Quote, error) {
				return core.Quote{}, core.ErrAmbiguousReference
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		// overlapping reference records are a server-side configuration
		// problem, never the caller's fault
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestQuoteHandlerGet(t *testing.T) {
	t.Run("returns the quote", func(t *testing.T) {
		svc := &stubQuoteService{
			getFn: func(id string) (core.Quote, error) {
				assert.Equal(t, "q-1", id)
				return core.Quote{ID: "q-1", Status: core.QuoteStatusPriced}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/quotes/q-1", nil)
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got core.Quote
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "q-1", got.ID)
	})

	t.Run("unknown quote is 404", func(t *testing.T) {
		svc := &stubQuoteService{
			getFn: func(string) (core.Quote, error) {
				return core.Quote{}, core.ErrQuoteNotFound
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/quotes/nope", nil)
		rec := httptest.NewRecorder()
		mountQuotes(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
