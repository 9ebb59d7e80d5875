package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/moverscan/internal/api"
	"github.com/newthinker/moverscan/internal/app"
	"github.com/newthinker/moverscan/internal/logger"
	"github.com/newthinker/moverscan/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchRunNow bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan on a cron schedule and serve the latest report",
	Long: `Run scans on schedule.cron and serve /report, /report.txt, /signals, /stats,
/healthz and, when metrics are enabled, the Prometheus endpoint on metrics.addr.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchRunNow, "run-now", true, "scan immediately instead of waiting for the first tick")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	a, err := app.New(cfg, log, app.WithMetrics(reg))
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer a.Close()

	server, err := api.NewServer(api.Config{
		Addr:        cfg.Metrics.Addr,
		MetricsPath: cfg.Metrics.Path,
	}, api.Dependencies{
		Reports:   a,
		Signals:   a.Recorder(),
		Metrics:   reg,
		Backtests: a.Scanner(),
		Symbols:   a.Scanner(),
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = a.Start(ctx, watchRunNow)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		log.Warn("server shutdown", zap.Error(serr))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
