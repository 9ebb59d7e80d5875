// Package factory builds configured strategies by name.
package factory

import (
	"fmt"
	"sort"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/strategy"
	"github.com/newthinker/moverscan/internal/strategy/bar_direction"
	"github.com/newthinker/moverscan/internal/strategy/ma_crossover"
	"github.com/newthinker/moverscan/internal/strategy/rsi_threshold"
	"github.com/newthinker/moverscan/internal/strategy/threshold"
)

var constructors = map[string]func() strategy.Strategy{
	"threshold":     func() strategy.Strategy { return threshold.New(2.0, 2.0) },
	"ma_crossover":  func() strategy.Strategy { return ma_crossover.New(40, 100) },
	"rsi_threshold": func() strategy.Strategy { return rsi_threshold.New(14, 30, 70) },
	"bar_direction": func() strategy.Strategy { return bar_direction.New(10) },
}

// Names returns the available strategy names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the strategy called name with its defaults, then applies cfg.
func New(name string, cfg strategy.Config) (strategy.Strategy, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, core.WrapError(core.ErrUnknownStrategy, fmt.Errorf("%q (available: %v)", name, Names()))
	}

	s := ctor()
	if err := s.Init(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return s, nil
}

// NewEngine builds an engine holding every enabled strategy in configs.
func NewEngine(configs map[string]strategy.Config, engine *strategy.Engine) error {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		if !cfg.Enabled {
			continue
		}
		s, err := New(name, cfg)
		if err != nil {
			return err
		}
		engine.Register(s)
	}
	return nil
}
