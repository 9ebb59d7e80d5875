// Package handler implements the HTTP endpoints of the watch server.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/moverscan/internal/api/response"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/signal"
	"github.com/newthinker/moverscan/internal/storage/record"
)

// DefaultLimit caps signal listings without an explicit limit.
const DefaultLimit = 50

// SignalLister is the read side of the run recorder.
type SignalLister interface {
	ListSignals(ctx context.Context, filter record.ListFilter) ([]record.SignalRecord, error)
}

// signalView is the wire form of a recorded signal.
type signalView struct {
	RunID         string          `json:"run_id"`
	Symbol        string          `json:"symbol"`
	Action        core.Action     `json:"action"`
	PercentChange float64         `json:"percent_change"`
	LastClose     float64         `json:"last_close"`
	TargetPrice   float64         `json:"target_price"`
	Duration      signal.Duration `json:"estimated_duration_bars"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// SignalsHandler handles signal history requests.
type SignalsHandler struct {
	store SignalLister
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(store SignalLister) *SignalsHandler {
	return &SignalsHandler{store: store}
}

// List returns recorded signals matching query parameters.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	records, err := h.store.ListSignals(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]signalView, len(records))
	for i, rec := range records {
		views[i] = signalView{
			RunID:         rec.RunID,
			Symbol:        rec.Symbol,
			Action:        rec.Action,
			PercentChange: rec.PercentChange,
			LastClose:     rec.LastClose,
			TargetPrice:   rec.TargetPrice,
			Duration:      signal.Duration(rec.Duration),
			GeneratedAt:   rec.GeneratedAt,
		}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": views,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func parseFilter(r *http.Request) (record.ListFilter, error) {
	q := r.URL.Query()

	filter := record.ListFilter{
		RunID:  q.Get("run_id"),
		Symbol: q.Get("symbol"),
		Action: core.Action(q.Get("action")),
		Limit:  DefaultLimit,
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseInt(q.Get("limit"), DefaultLimit); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseInt(q.Get("offset"), 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid time %q", s))
}

func parseInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid number %q", s))
	}
	return n, nil
}
