package bar_direction

import (
	"fmt"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/strategy"
)

// Reference prices the current close is compared with.
const (
	CompareOpen      = "open"       // the bar's own open
	ComparePrevClose = "prev_close" // the previous bar's close
)

// BarDirection follows the direction of the current bar: up bars buy, down bars short.
type BarDirection struct {
	warmUp  int
	compare string
}

// New creates a bar direction strategy that stays flat for the first warmUp bars.
func New(warmUp int) *BarDirection {
	return &BarDirection{warmUp: warmUp, compare: CompareOpen}
}

func (b *BarDirection) Name() string {
	return "bar_direction"
}

func (b *BarDirection) Description() string {
	if b.compare == ComparePrevClose {
		return fmt.Sprintf("Previous close vs close (warm-up %d)", b.warmUp)
	}
	return fmt.Sprintf("Open vs close (warm-up %d)", b.warmUp)
}

func (b *BarDirection) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{PriceHistory: b.warmUp + 1}
}

func (b *BarDirection) Init(cfg strategy.Config) error {
	if v, ok := strategy.IntParam(cfg.Params, "warm_up"); ok {
		b.warmUp = v
	}
	if b.warmUp < 0 {
		return fmt.Errorf("bar_direction: warm_up cannot be negative, got %d", b.warmUp)
	}
	if v, ok := cfg.Params["compare"]; ok {
		c, _ := v.(string)
		switch c {
		case CompareOpen, ComparePrevClose:
			b.compare = c
		default:
			return fmt.Errorf("bar_direction: compare must be %q or %q, got %v", CompareOpen, ComparePrevClose, v)
		}
	}
	return nil
}

func (b *BarDirection) Decide(ctx strategy.AnalysisContext) (core.Action, error) {
	if len(ctx.OHLCV) <= b.warmUp {
		return core.ActionHold, nil
	}

	bar := ctx.Current()
	ref := bar.Open
	if b.compare == ComparePrevClose {
		if len(ctx.OHLCV) < 2 {
			return core.ActionHold, nil
		}
		ref = ctx.OHLCV[len(ctx.OHLCV)-2].Close
	}

	switch {
	case bar.Close > ref:
		return core.ActionBuy, nil
	case bar.Close < ref:
		return core.ActionShort, nil
	default:
		return core.ActionHold, nil
	}
}
