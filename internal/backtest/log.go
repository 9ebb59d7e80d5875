package backtest

import (
	"fmt"
	"io"
	"time"
)

// LogTimeLayout is the timestamp layout of trade log lines.
const LogTimeLayout = "2006-01-02 15:04:05"

// WriteLog renders the trade log of res, one fill per line:
//
//	2024-01-02 00:00:00, buy, Price: 102.00, Balance: 898.00
//
// followed by a summary line with the final portfolio value.
func WriteLog(w io.Writer, res *Result) error {
	if _, err := fmt.Fprintf(w, "# %s %s\n", res.Symbol, res.Strategy); err != nil {
		return err
	}
	for _, t := range res.Trades {
		if _, err := fmt.Fprintf(w, "%s, %s, Price: %.2f, Balance: %.2f\n",
			t.Time.UTC().Format(LogTimeLayout), t.Action, t.Price, t.BalanceAfter); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Final portfolio value: %.2f (position %d, cash %.2f)\n",
		res.FinalValue, res.Position, res.Cash)
	return err
}

// formatPeriod renders the simulated time range for summaries.
func formatPeriod(res *Result) string {
	if res.StartDate.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s..%s", res.StartDate.UTC().Format(time.DateOnly), res.EndDate.UTC().Format(time.DateOnly))
}

// Summary is a one-line description of a finished backtest.
func Summary(res *Result) string {
	return fmt.Sprintf("%s %-14s %s final=%.2f return=%.2f%% trades=%d win_rate=%.1f%% max_dd=%.2f%% sharpe=%.2f",
		res.Symbol, res.Strategy, formatPeriod(res), res.FinalValue, res.Stats.TotalReturn,
		res.Stats.TotalTrades, res.Stats.WinRate, res.Stats.MaxDrawdown, res.Stats.SharpeRatio)
}
