package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/newthinker/moverscan/internal/app"
	"github.com/newthinker/moverscan/internal/backtest"
	"github.com/newthinker/moverscan/internal/logger"
	"github.com/newthinker/moverscan/internal/strategy/factory"
	"github.com/spf13/cobra"
)

var (
	backtestSymbol   string
	backtestRange    string
	backtestInterval string
	backtestBalance  float64
	backtestLog      bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long: fmt.Sprintf(`Run a strategy against the history of one symbol and show performance statistics.

Available strategies: %v`, factory.Names()),
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestRange, "range", "1y", "Lookback range, e.g. 1mo, 1y")
	backtestCmd.Flags().StringVar(&backtestInterval, "interval", "1d", "Bar interval, e.g. 1d, 1h")
	backtestCmd.Flags().Float64Var(&backtestBalance, "balance", 0, "Initial balance (default from config)")
	backtestCmd.Flags().BoolVar(&backtestLog, "log", false, "Print the full trade log")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if backtestBalance > 0 {
		cfg.Backtest.InitialBalance = backtestBalance
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := a.Scanner().Backtest(ctx, args[0], backtestSymbol, backtestRange, backtestInterval)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== moverscan backtest ===")
	fmt.Fprintf(out, "Strategy: %s\n", res.Strategy)
	fmt.Fprintf(out, "Symbol:   %s (%s, %s bars)\n", res.Symbol, backtestRange, backtestInterval)
	fmt.Fprintln(out)
	fmt.Fprintln(out, backtest.Summary(res))

	if backtestLog {
		fmt.Fprintln(out)
		return backtest.WriteLog(out, res)
	}
	return nil
}
