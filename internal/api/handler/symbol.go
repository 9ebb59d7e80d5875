package handler

import (
	"context"
	"net/http"

	"github.com/newthinker/moverscan/internal/api/response"
	"github.com/newthinker/moverscan/internal/scan"
)

// DefaultInspectRange is the lookback of a symbol detail request without a range.
const DefaultInspectRange = "1mo"

// Inspector analyses a single symbol on demand.
type Inspector interface {
	Inspect(ctx context.Context, symbol, rng, interval string) (scan.InstrumentReport, error)
}

// SymbolHandler serves the signal and indicator snapshot of one symbol.
type SymbolHandler struct {
	inspector Inspector
}

// NewSymbolHandler creates a new symbol handler.
func NewSymbolHandler(inspector Inspector) *SymbolHandler {
	return &SymbolHandler{inspector: inspector}
}

// Get handles GET /symbols/{symbol}
func (h *SymbolHandler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	q := r.URL.Query()
	rng := q.Get("range")
	if rng == "" {
		rng = DefaultInspectRange
	}
	interval := q.Get("interval")
	if interval == "" {
		interval = DefaultInterval
	}

	inst, err := h.inspector.Inspect(r.Context(), symbol, rng, interval)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, inst)
}
