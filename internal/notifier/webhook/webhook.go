// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/notifier"
	"github.com/newthinker/moverscan/internal/signal"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

type signalPayload struct {
	Type          string          `json:"type"`
	Symbol        string          `json:"symbol"`
	Action        core.Action     `json:"action"`
	PercentChange float64         `json:"percent_change"`
	LastClose     float64         `json:"last_close"`
	TargetPrice   float64         `json:"target_price"`
	Duration      signal.Duration `json:"estimated_duration_bars"`
	GeneratedAt   string          `json:"generated_at"`
}

type batchPayload struct {
	Type    string          `json:"type"`
	RunID   string          `json:"run_id"`
	Count   int             `json:"count"`
	Signals []signalPayload `json:"signals"`
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	switch headers := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = headers
	case map[string]any:
		// viper decodes nested maps as map[string]any
		w.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			w.headers[k] = fmt.Sprint(v)
		}
	}

	if w.url == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook: url is required"))
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, sig core.Signal) error {
	return w.post(ctx, toPayload(sig))
}

func (w *Webhook) SendBatch(ctx context.Context, runID string, signals []core.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	batch := batchPayload{Type: "batch", RunID: runID, Count: len(signals)}
	for _, sig := range signals {
		batch.Signals = append(batch.Signals, toPayload(sig))
	}
	return w.post(ctx, batch)
}

func toPayload(sig core.Signal) signalPayload {
	return signalPayload{
		Type:          "signal",
		Symbol:        sig.Symbol,
		Action:        sig.Action,
		PercentChange: sig.PercentChange,
		LastClose:     sig.LastClose,
		TargetPrice:   sig.TargetPrice,
		Duration:      signal.Duration(sig.Duration),
		GeneratedAt:   sig.GeneratedAt.Format(time.RFC3339),
	}
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
