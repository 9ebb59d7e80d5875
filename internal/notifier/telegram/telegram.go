package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if base, ok := cfg.Params["base_url"].(string); ok {
		t.baseURL = base
	}

	if t.botToken == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram: bot_token is required"))
	}
	if t.chatID == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram: chat_id is required"))
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, signal core.Signal) error {
	return t.sendMessage(ctx, formatSignal(signal))
}

func (t *Telegram) SendBatch(ctx context.Context, runID string, signals []core.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *%d movers* (run %s)\n\n", len(signals), runID)
	for i, signal := range signals {
		sb.WriteString(formatSignal(signal))
		if i < len(signals)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(ctx, sb.String())
}

func formatSignal(signal core.Signal) string {
	var sb strings.Builder

	emoji := "📈"
	if signal.Action == core.ActionShort {
		emoji = "📉"
	}

	fmt.Fprintf(&sb, "%s *%s* - %s (%+.2f%%)\n", emoji, signal.Symbol, signal.Action, signal.PercentChange)
	fmt.Fprintf(&sb, "Last: %.4f  Target: %.4f\n", signal.LastClose, signal.TargetPrice)
	if math.IsInf(signal.Duration, 1) || math.IsNaN(signal.Duration) {
		sb.WriteString("Duration: unreachable\n")
	} else {
		fmt.Fprintf(&sb, "Duration: %.1f bars\n", signal.Duration)
	}
	fmt.Fprintf(&sb, "⏰ %s", signal.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
