package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apines/go-travelcover/internal/core"
	"github.com/apines/go-travelcover/pkg/problem"
)

type QuoteHandler struct {
	Svc core.QuoteService
	Log *slog.Logger
}

func NewQuoteHandler(svc core.QuoteService, log *slog.Logger) *QuoteHandler {
	return &QuoteHandler{Svc: svc, Log: log}
}

func (h *QuoteHandler) Mount(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{quote_id}", h.Get)
	})
}

// Create prices a quote request: validation, underwriting, premium
// calculation, discount application.
// 201: JSON; 400: bad JSON/validation; 404: missing reference data; 500: internal error.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.QuoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid JSON", "Body could not be decoded.")
		return
	}

	q, err := h.Svc.Price(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(q); err != nil {
		h.Log.Error("failed to encode quote", "err", err)
	}
}

// Get retrieves a quote by ID.
// 200: JSON; 400: missing ID; 404: not found; 500: internal error.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quote_id")
	if id == "" {
		problem.Write(w, http.StatusBadRequest, "Missing Quote ID", "Path parameter quote_id is required.")
		return
	}

	q, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to get quote")
		return
	}

	if err := json.NewEncoder(w).Encode(q); err != nil {
		h.Log.Error("failed to encode quote", "quote_id", id, "err", err)
	}
}
