package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/moverscan/internal/api/response"
	"github.com/newthinker/moverscan/internal/backtest"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/scan"
)

const backtestTimeout = 2 * time.Minute

// Defaults applied to on-demand backtests.
const (
	DefaultBacktestRange = "1y"
	DefaultInterval      = "1d"
)

// Backtester runs a single on-demand backtest.
type Backtester interface {
	Backtest(ctx context.Context, name, symbol, rng, interval string) (*backtest.Result, error)
}

// BacktestRequest is the request body for running a backtest.
type BacktestRequest struct {
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
	Range    string `json:"range,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	runner Backtester
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(runner Backtester) *BacktestHandler {
	return &BacktestHandler{runner: runner}
}

// Run executes the requested backtest synchronously and returns its report.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if req.Symbol == "" || req.Strategy == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, errors.New("symbol and strategy are required")))
		return
	}
	if req.Range == "" {
		req.Range = DefaultBacktestRange
	}
	if req.Interval == "" {
		req.Interval = DefaultInterval
	}

	ctx, cancel := context.WithTimeout(r.Context(), backtestTimeout)
	defer cancel()

	res, err := h.runner.Backtest(ctx, req.Strategy, req.Symbol, req.Range, req.Interval)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, scan.NewBacktestReport(res))
}
