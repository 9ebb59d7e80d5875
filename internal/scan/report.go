package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"text/tabwriter"
	"time"

	"github.com/newthinker/moverscan/internal/backtest"
	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/signal"
	"github.com/newthinker/moverscan/internal/storage/archive"
	"github.com/newthinker/moverscan/internal/strategy"
)

// Report is the output of one scan run.
type Report struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Baskets     []BasketReport    `json:"baskets"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
}

// BasketReport holds the movers, signals and backtests of one basket.
type BasketReport struct {
	Name        string             `json:"name"`
	Class       core.AssetClass    `json:"class,omitempty"`
	Range       string             `json:"range"`
	Interval    string             `json:"interval"`
	Loaded      int                `json:"loaded"`
	Gainers     []core.Mover       `json:"gainers"`
	Losers      []core.Mover       `json:"losers"`
	Instruments []InstrumentReport `json:"instruments"`
	Backtests   []BacktestReport   `json:"backtests"`
}

// InstrumentReport is the per-instrument tuple handed to report writers.
type InstrumentReport struct {
	Symbol            string              `json:"symbol"`
	PercentChange     float64             `json:"percent_change"`
	Action            core.Action         `json:"action"`
	LastClose         float64             `json:"last_close"`
	TargetPrice       float64             `json:"target_price"`
	MaxProfitPercent  float64             `json:"max_profit_percent"`
	EstimatedDuration signal.Duration     `json:"estimated_duration_bars"` // null when unreachable
	PredictedPrice    *float64            `json:"predicted_price,omitempty"`
	Indicators        map[string]float64  `json:"indicators"`
	Decisions         []strategy.Decision `json:"decisions,omitempty"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// BacktestReport is the per-backtest tuple handed to report writers.
type BacktestReport struct {
	Symbol         string            `json:"symbol"`
	Strategy       string            `json:"strategy"`
	InitialBalance float64           `json:"initial_balance"`
	FinalValue     float64           `json:"final_value"`
	Trades         []core.TradeEntry `json:"trades"`
	Stats          backtest.Stats    `json:"stats"`

	result *backtest.Result
}

// NewBacktestReport converts a backtest result into its report form.
func NewBacktestReport(res *backtest.Result) BacktestReport {
	return BacktestReport{
		Symbol:         res.Symbol,
		Strategy:       res.Strategy,
		InitialBalance: res.InitialBalance,
		FinalValue:     res.FinalValue,
		Trades:         res.Trades,
		Stats:          res.Stats,
		result:         res,
	}
}

// InstrumentCount returns the number of instruments with a signal.
func (r *Report) InstrumentCount() int {
	n := 0
	for _, b := range r.Baskets {
		n += len(b.Instruments)
	}
	return n
}

// BacktestCount returns the number of completed backtests.
func (r *Report) BacktestCount() int {
	n := 0
	for _, b := range r.Baskets {
		n += len(b.Backtests)
	}
	return n
}

// Signals returns every instrument signal of the run in report order.
func (r *Report) Signals() []core.Signal {
	var out []core.Signal
	for _, b := range r.Baskets {
		for _, inst := range b.Instruments {
			out = append(out, core.Signal{
				Symbol:        inst.Symbol,
				Action:        inst.Action,
				PercentChange: inst.PercentChange,
				LastClose:     inst.LastClose,
				TargetPrice:   inst.TargetPrice,
				Duration:      float64(inst.EstimatedDuration),
				GeneratedAt:   inst.GeneratedAt,
			})
		}
	}
	return out
}

// WriteJSON writes the indented JSON form of the report.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable summary of the report.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Run %s  %s .. %s\n", r.RunID,
		r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339))

	for _, b := range r.Baskets {
		fmt.Fprintf(tw, "\n== %s (%s/%s) loaded %d ==\n", b.Name, b.Range, b.Interval, b.Loaded)

		fmt.Fprintln(tw, "Top gainers:")
		for _, m := range b.Gainers {
			fmt.Fprintf(tw, "  %s\t%+.2f%%\n", m.Symbol, m.PercentChange)
		}
		fmt.Fprintln(tw, "Top losers:")
		for _, m := range b.Losers {
			fmt.Fprintf(tw, "  %s\t%+.2f%%\n", m.Symbol, m.PercentChange)
		}

		if len(b.Instruments) > 0 {
			fmt.Fprintln(tw, "Signals:")
			fmt.Fprintln(tw, "  SYMBOL\tACTION\tCHANGE\tLAST\tTARGET\tMAX PROFIT\tDURATION\tPREDICTED")
			for _, inst := range b.Instruments {
				predicted := "-"
				if inst.PredictedPrice != nil {
					predicted = fmt.Sprintf("%.2f", *inst.PredictedPrice)
				}
				fmt.Fprintf(tw, "  %s\t%s\t%+.2f%%\t%.2f\t%.2f\t%.2f%%\t%s\t%s\n",
					inst.Symbol, inst.Action, inst.PercentChange, inst.LastClose, inst.TargetPrice,
					inst.MaxProfitPercent, inst.EstimatedDuration, predicted)
			}
		}

		if len(b.Backtests) > 0 {
			fmt.Fprintln(tw, "Backtests:")
			fmt.Fprintln(tw, "  SYMBOL\tSTRATEGY\tFINAL\tRETURN\tTRADES\tWIN RATE")
			for _, bt := range b.Backtests {
				fmt.Fprintf(tw, "  %s\t%s\t%.2f\t%+.2f%%\t%d\t%.1f%%\n",
					bt.Symbol, bt.Strategy, bt.FinalValue, bt.Stats.TotalReturn,
					bt.Stats.TotalTrades, bt.Stats.WinRate)
			}
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintf(tw, "\nDiagnostics (%d):\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			fmt.Fprintf(tw, "  [%s] %s: %s\n", d.Stage, d.Symbol, d.Message)
		}
	}

	return tw.Flush()
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// TradeLogName is the archive name of a backtest's trade log.
func TradeLogName(symbol, strategy string) string {
	return fmt.Sprintf("trades/%s_%s.log", unsafeName.ReplaceAllString(symbol, "_"), strategy)
}

// Artifacts renders the report into the files archived for a run: report.json,
// report.txt and one trade log per backtest.
func (r *Report) Artifacts() ([]archive.Artifact, error) {
	var js, txt bytes.Buffer
	if err := r.WriteJSON(&js); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("encode report: %w", err))
	}
	if err := r.WriteText(&txt); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("render report: %w", err))
	}

	out := []archive.Artifact{
		{Name: "report.json", Data: js.Bytes()},
		{Name: "report.txt", Data: txt.Bytes()},
	}
	for _, b := range r.Baskets {
		for _, bt := range b.Backtests {
			if bt.result == nil {
				continue
			}
			var buf bytes.Buffer
			if err := backtest.WriteLog(&buf, bt.result); err != nil {
				return nil, core.WrapError(core.ErrArchiveFailed, err)
			}
			out = append(out, archive.Artifact{Name: TradeLogName(bt.Symbol, bt.Strategy), Data: buf.Bytes()})
		}
	}
	return out, nil
}
