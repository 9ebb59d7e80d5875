package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/moverscan/internal/api/response"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/storage/record"
)

func seededStore(t *testing.T) *record.Memory {
	t.Helper()
	store := record.NewMemory(100)
	at := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	store.RecordSignals(context.Background(), "run-1", []core.Signal{
		{Symbol: "SPY", Action: core.ActionBuy, PercentChange: 3, LastClose: 100, TargetPrice: 102, Duration: 4, GeneratedAt: at},
		{Symbol: "QQQ", Action: core.ActionShort, PercentChange: -3, LastClose: 90, TargetPrice: 88.2, Duration: math.Inf(1), GeneratedAt: at},
	})
	return store
}

func decodeSignals(t *testing.T, w *httptest.ResponseRecorder) []any {
	t.Helper()
	var resp response.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	data := resp.Data.(map[string]any)
	return data["signals"].([]any)
}

func TestSignalsHandler_List(t *testing.T) {
	handler := NewSignalsHandler(seededStore(t))

	req := httptest.NewRequest("GET", "/signals", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	signals := decodeSignals(t, w)
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	short := signals[1].(map[string]any)
	if short["estimated_duration_bars"] != nil {
		t.Errorf("unreachable duration should be null, got %v", short["estimated_duration_bars"])
	}
}

func TestSignalsHandler_ListWithFilters(t *testing.T) {
	handler := NewSignalsHandler(seededStore(t))

	req := httptest.NewRequest("GET", "/signals?symbol=SPY&from=2024-03-01&limit=10", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	signals := decodeSignals(t, w)
	if len(signals) != 1 {
		t.Errorf("expected 1 signal, got %d", len(signals))
	}
}

func TestSignalsHandler_BadQuery(t *testing.T) {
	handler := NewSignalsHandler(seededStore(t))

	for _, q := range []string{"limit=abc", "offset=-1", "from=yesterday"} {
		req := httptest.NewRequest("GET", "/signals?"+q, nil)
		w := httptest.NewRecorder()

		handler.List(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}
