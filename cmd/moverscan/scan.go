package main

import (
	"fmt"
	"os/signal"
	"slices"
	"syscall"

	"github.com/newthinker/moverscan/internal/app"
	"github.com/newthinker/moverscan/internal/config"
	"github.com/newthinker/moverscan/internal/logger"
	"github.com/spf13/cobra"
)

var (
	scanBaskets []string
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan over the configured baskets",
	Long: `Fetch every basket, rank the top gainers and losers, derive signals and
backtest the enabled strategies on them. The report is printed, archived and
recorded according to the configuration.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVarP(&scanBaskets, "basket", "b", nil, "only scan the named baskets")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the report as JSON")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if cfg.Baskets, err = filterBaskets(cfg.Baskets, scanBaskets); err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := a.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if scanJSON {
		return report.WriteJSON(cmd.OutOrStdout())
	}
	return report.WriteText(cmd.OutOrStdout())
}

// filterBaskets keeps the baskets named in names, or all of them when names is empty.
func filterBaskets(baskets []config.BasketConfig, names []string) ([]config.BasketConfig, error) {
	if len(names) == 0 {
		return baskets, nil
	}
	var out []config.BasketConfig
	for _, name := range names {
		i := slices.IndexFunc(baskets, func(b config.BasketConfig) bool { return b.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown basket %q", name)
		}
		out = append(out, baskets[i])
	}
	return out, nil
}
