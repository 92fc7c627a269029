package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apines/go-travelcover/internal/core"
	"github.com/apines/go-travelcover/pkg/problem"
)

// ReferenceHandler exposes read-only reference-data lookups, mainly for
// operators verifying what the engines will see on a given date.
type ReferenceHandler struct {
	Ref core.ReferenceDataPort
	Log *slog.Logger
}

func NewReferenceHandler(ref core.ReferenceDataPort, log *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{Ref: ref, Log: log}
}

func (h *ReferenceHandler) Mount(r chi.Router) {
	r.Route("/reference", func(r chi.Router) {
		r.Get("/countries/{iso_code}", h.GetCountry)
		r.Get("/coverage-levels/{code}", h.GetCoverageLevel)
		r.Get("/risk-types/{code}", h.GetRiskType)
		r.Get("/bundles", h.ListBundles)
	})
}

// asOfParam reads the optional ?as_of=YYYY-MM-DD query, defaulting to today.
func asOfParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *ReferenceHandler) GetCountry(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfParam(r)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD.")
		return
	}

	c, err := h.Ref.FindCountry(r.Context(), chi.URLParam(r, "iso_code"), asOf)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to get country")
		return
	}
	if err := json.NewEncoder(w).Encode(c); err != nil {
		h.Log.Error("failed to encode country", "err", err)
	}
}

func (h *ReferenceHandler) GetCoverageLevel(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfParam(r)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD.")
		return
	}

	l, err := h.Ref.FindCoverageLevel(r.Context(), chi.URLParam(r, "code"), asOf)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to get coverage level")
		return
	}
	if err := json.NewEncoder(w).Encode(l); err != nil {
		h.Log.Error("failed to encode coverage level", "err", err)
	}
}

func (h *ReferenceHandler) GetRiskType(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfParam(r)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD.")
		return
	}

	t, err := h.Ref.FindRiskType(r.Context(), chi.URLParam(r, "code"), asOf)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to get risk type")
		return
	}
	if err := json.NewEncoder(w).Encode(t); err != nil {
		h.Log.Error("failed to encode risk type", "err", err)
	}
}

func (h *ReferenceHandler) ListBundles(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfParam(r)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD.")
		return
	}

	bundles, err := h.Ref.FindAllActiveBundles(r.Context(), asOf)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to list bundles")
		return
	}
	if bundles == nil {
		bundles = []core.RiskBundle{}
	}
	if err := json.NewEncoder(w).Encode(bundles); err != nil {
		h.Log.Error("failed to encode bundles", "err", err)
	}
}
