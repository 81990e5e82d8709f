package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/talgya/granary/internal/config"
	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/social"
	"github.com/talgya/granary/internal/steward"
)

// buildWorld rolls the opening market and city-states from the configured
// ranges. Load rejects fractional bounds, so the integer rolls cover them.
func buildWorld(cfg *config.Config, rng entropy.Source) *engine.World {
	market := economy.NewMarket(
		float64(entropy.IntRange(rng, int(cfg.Market.PriceMin), int(cfg.Market.PriceMax))),
		entropy.IntRange(rng, cfg.Market.UnitsMin, cfg.Market.UnitsMax),
	)
	w := engine.NewWorld(market, rng)
	for _, c := range cfg.Cities {
		city := social.New(c.Name,
			entropy.IntRange(rng, c.PopulationMin, c.PopulationMax),
			entropy.IntRange(rng, c.AcresMin, c.AcresMax),
			float64(entropy.IntRange(rng, int(c.BushelsMin), int(c.BushelsMax))),
		)
		w.AddCityState(city)
		slog.Info("city-state founded",
			"city", city.Name,
			"population", city.Population,
			"acres", city.Acres,
			"bushels", city.Bushels,
		)
	}
	slog.Info("land market opened", "price", market.Price, "units", market.Units)
	return w
}

// newDecider picks who decides for every city-state.
func newDecider(cfg config.DeciderConfig, in io.Reader, out io.Writer) (engine.Decider, error) {
	switch cfg.Mode {
	case config.ModeSteward:
		return steward.New(), nil
	case config.ModePrompt:
		return steward.NewPrompt(in, out), nil
	case config.ModeScript:
		s, err := steward.LoadScript(cfg.Script)
		if err != nil {
			return nil, err
		}
		s.Fallback = steward.New()
		return s, nil
	}
	return nil, fmt.Errorf("unknown decider mode %q", cfg.Mode)
}
