package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apines/go-travelcover/internal/core"
	"github.com/apines/go-travelcover/pkg/problem"
)

type UWHandler struct {
	Engine *core.RuleEngine
	Log    *slog.Logger
}

func NewUWHandler(engine *core.RuleEngine, log *slog.Logger) *UWHandler {
	return &UWHandler{Engine: engine, Log: log}
}

func (h *UWHandler) Mount(r chi.Router) {
	r.Route("/underwriting", func(r chi.Router) {
		r.Post("/evaluate", h.Evaluate)
	})
}

// Evaluate runs a dry-run underwriting assessment without pricing or
// persisting anything.
// 200: JSON; 400: bad JSON/validation; 500: internal error.
func (h *UWHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var in core.QuoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid JSON", "Body could not be decoded.")
		return
	}

	req, err := in.ToRequest()
	if err != nil {
		writeError(r.Context(), h.Log, w, err, err.Error())
		return
	}

	result := h.Engine.Underwrite(r.Context(), req, req.AsOf())
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Log.Error("failed to encode underwriting result", "err", err)
	}
}
