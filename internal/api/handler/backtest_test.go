package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/moverscan/internal/api/response"
	"github.com/newthinker/moverscan/internal/backtest"
	"github.com/newthinker/moverscan/internal/core"
)

type stubBacktester struct {
	gotName, gotSymbol, gotRange, gotInterval string
}

func (s *stubBacktester) Backtest(ctx context.Context, name, symbol, rng, interval string) (*backtest.Result, error) {
	s.gotName, s.gotSymbol, s.gotRange, s.gotInterval = name, symbol, rng, interval
	switch {
	case name == "nope":
		return nil, core.WrapError(core.ErrUnknownStrategy, errors.New(name))
	case symbol == "MISSING":
		return nil, core.WrapError(core.ErrNoData, errors.New(symbol))
	}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		Strategy:       name,
		Symbol:         symbol,
		InitialBalance: 1000,
		FinalValue:     1004,
		Cash:           1004,
		Trades: []core.TradeEntry{
			{Time: at, Action: core.ActionBuy, Price: 100, BalanceAfter: 900},
			{Time: at.AddDate(0, 0, 1), Action: core.ActionSell, Price: 104, BalanceAfter: 1004},
		},
	}, nil
}

func postBacktest(h *BacktestHandler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Run(w, httptest.NewRequest("POST", "/backtest", strings.NewReader(body)))
	return w
}

func TestBacktestHandler_Run(t *testing.T) {
	stub := &stubBacktester{}
	h := NewBacktestHandler(stub)

	w := postBacktest(h, `{"symbol":"SPY","strategy":"threshold"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.gotRange != DefaultBacktestRange || stub.gotInterval != DefaultInterval {
		t.Errorf("expected default range and interval, got %q %q", stub.gotRange, stub.gotInterval)
	}

	var resp response.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	data := resp.Data.(map[string]any)
	if data["symbol"] != "SPY" || data["strategy"] != "threshold" {
		t.Errorf("unexpected identity: %v", data)
	}
	if data["final_value"] != 1004.0 {
		t.Errorf("expected final_value 1004, got %v", data["final_value"])
	}
	if trades := data["trades"].([]any); len(trades) != 2 {
		t.Errorf("expected 2 trades, got %d", len(trades))
	}
}

func TestBacktestHandler_RunPassesRange(t *testing.T) {
	stub := &stubBacktester{}
	h := NewBacktestHandler(stub)

	postBacktest(h, `{"symbol":"QQQ","strategy":"rsi_threshold","range":"6mo","interval":"1h"}`)
	if stub.gotName != "rsi_threshold" || stub.gotSymbol != "QQQ" || stub.gotRange != "6mo" || stub.gotInterval != "1h" {
		t.Errorf("unexpected call: %+v", stub)
	}
}

func TestBacktestHandler_RunErrors(t *testing.T) {
	h := NewBacktestHandler(&stubBacktester{})

	tests := []struct {
		name string
		body string
		want int
		code string
	}{
		{"malformed body", `{`, http.StatusBadRequest, "CONFIG_INVALID"},
		{"missing strategy", `{"symbol":"SPY"}`, http.StatusBadRequest, "CONFIG_MISSING"},
		{"unknown strategy", `{"symbol":"SPY","strategy":"nope"}`, http.StatusBadRequest, "UNKNOWN_STRATEGY"},
		{"unknown symbol", `{"symbol":"MISSING","strategy":"threshold"}`, http.StatusNotFound, "NO_DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postBacktest(h, tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			var resp response.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, resp.Error.Code)
			}
		})
	}
}
