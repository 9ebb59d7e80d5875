package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Init(t *testing.T) {
	tg := &Telegram{}
	err := tg.Init(notifier.Config{Params: map[string]any{
		"bot_token": "test-token",
		"chat_id":   "test-chat",
	}})
	require.NoError(t, err)

	assert.Equal(t, "test-token", tg.botToken)
	assert.Equal(t, "test-chat", tg.chatID)
	assert.Equal(t, defaultBaseURL, tg.baseURL)
}

func TestTelegram_Init_Missing(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"no token", map[string]any{"chat_id": "c"}},
		{"no chat", map[string]any{"bot_token": "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Telegram{}).Init(notifier.Config{Params: tt.params})
			assert.True(t, errors.Is(err, core.ErrConfigMissing))
		})
	}
}

func TestFormatSignal(t *testing.T) {
	at := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)

	msg := formatSignal(core.Signal{
		Symbol: "SPY", Action: core.ActionBuy, PercentChange: 2.5,
		LastClose: 500, TargetPrice: 510, Duration: 4, GeneratedAt: at,
	})
	assert.Contains(t, msg, "*SPY* - buy (+2.50%)")
	assert.Contains(t, msg, "Target: 510.0000")
	assert.Contains(t, msg, "Duration: 4.0 bars")
	assert.Contains(t, msg, "2024-03-01 15:04:05")

	msg = formatSignal(core.Signal{Symbol: "QQQ", Action: core.ActionShort, Duration: math.Inf(1), GeneratedAt: at})
	assert.Contains(t, msg, "📉")
	assert.Contains(t, msg, "unreachable")
}

func TestTelegram_SendBatch(t *testing.T) {
	var path string
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg := New("tok", "chat")
	tg.baseURL = server.URL

	err := tg.SendBatch(context.Background(), "run-1", []core.Signal{
		{Symbol: "SPY", Action: core.ActionBuy, Duration: 1},
		{Symbol: "QQQ", Action: core.ActionShort, Duration: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "chat", payload["chat_id"])
	assert.Contains(t, payload["text"], "2 movers")
	assert.Contains(t, payload["text"], "run-1")
}

func TestTelegram_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	tg := New("bad", "chat")
	tg.baseURL = server.URL

	err := tg.Send(context.Background(), core.Signal{Symbol: "SPY", Action: core.ActionBuy})
	assert.ErrorContains(t, err, "status 401")
}

func TestTelegram_SendBatch_Empty(t *testing.T) {
	tg := New("tok", "chat")
	assert.NoError(t, tg.SendBatch(context.Background(), "run-1", nil))
}
