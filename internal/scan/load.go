package scan

import (
	"context"
	"fmt"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/series"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Load fetches every symbol of b into a new store. Symbols that fail to load are
// reported as fetch diagnostics, in basket order.
func (s *Scanner) Load(ctx context.Context, b Basket) (*series.Store, []core.Diagnostic) {
	store := series.NewStore()
	errs := make([]error, len(b.Symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, sym := range b.Symbols {
		g.Go(func() error {
			errs[i] = s.loadSymbol(gctx, store, sym, b)
			return nil
		})
	}
	_ = g.Wait()

	var diags []core.Diagnostic
	for i, err := range errs {
		if err != nil {
			diags = append(diags, core.NewDiagnostic(b.Symbols[i], core.StageFetch, err))
		}
	}

	s.logger.Debug("basket loaded",
		zap.String("basket", b.Name),
		zap.Int("requested", len(b.Symbols)),
		zap.Int("loaded", store.Len()),
	)
	return store, diags
}

func (s *Scanner) loadSymbol(ctx context.Context, store *series.Store, symbol string, b Basket) error {
	bars, err := s.collector.FetchRange(ctx, symbol, b.Range, b.Interval)
	if err != nil {
		return err
	}
	ser, err := series.FromUnsorted(symbol, bars)
	if err != nil {
		return err
	}
	if ser.Len() == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("%s: no usable bars", symbol))
	}
	store.Add(ser)
	return nil
}
