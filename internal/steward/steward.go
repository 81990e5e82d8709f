// Package steward supplies decisions for city-states: a heuristic Steward
// that plays on its own, a Script read from YAML, and a Prompt that asks a
// person at the console.
package steward

import (
	"context"
	"log/slog"
	"math"

	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

// Steward tends every city-state by rule of thumb. It observes the turn,
// keeps next year's food and seed in reserve, and spends what is left on
// land and soldiers.
type Steward struct {
	// ArmyShare is the fraction of the population kept under arms.
	ArmyShare float64
	// Margin is added to the attack threshold before picking a fight.
	Margin float64
	// Spend is the fraction of surplus bushels put into land.
	Spend float64
	// Premium moves bids above and asks below the market price so offers
	// survive price movement during settlement.
	Premium float64

	Rejections int
}

// New returns a steward with cautious defaults.
func New() *Steward {
	return &Steward{ArmyShare: 0.1, Margin: 0.25, Spend: 0.5, Premium: 0.1}
}

// surplus is what the granary holds beyond a year of food and seed.
func surplus(t engine.Turn) float64 {
	return t.Status.Bushels - float64(t.FoodRequired+t.SeedRequired)
}

// idleWorkers is how many more acres the population could work.
func idleWorkers(t engine.Turn) int {
	return t.Status.Population/social.AcresPerWorker - t.Status.Acres
}

func (s *Steward) LandDeal(_ context.Context, t engine.Turn) (engine.LandDeal, error) {
	price := t.MarketPrice
	if price <= 0 {
		return engine.LandDeal{}, nil
	}
	spare := surplus(t)
	idle := idleWorkers(t)

	switch {
	case spare > 0 && idle > 0:
		acres := min(idle, int(spare*s.Spend/price), int(t.MaxAcres/(1+s.Premium)))
		if acres <= 0 {
			return engine.LandDeal{}, nil
		}
		deal := engine.LandDeal{Acres: acres, Price: price * (1 + s.Premium)}
		slog.Debug("steward buys land", "city", t.Status.Name, "acres", deal.Acres, "price", deal.Price)
		return deal, nil
	case spare < 0 && idle < 0:
		ask := price * (1 - s.Premium)
		acres := min(-idle, int(math.Ceil(-spare/ask)), -t.MinAcres)
		if acres <= 0 {
			return engine.LandDeal{}, nil
		}
		deal := engine.LandDeal{Acres: -acres, Price: ask}
		slog.Debug("steward sells land", "city", t.Status.Name, "acres", acres, "price", deal.Price)
		return deal, nil
	}
	return engine.LandDeal{}, nil
}

// Plant sows every workable acre unless that would leave the people
// unfed, but never less than half the seed needed.
func (s *Steward) Plant(_ context.Context, t engine.Turn) (int, error) {
	stock := int(math.Max(t.Status.Bushels, 0))
	afterFood := max(stock-t.FoodRequired, t.SeedRequired/2)
	return max(min(t.SeedRequired, afterFood, stock), 0), nil
}

func (s *Steward) Feed(_ context.Context, t engine.Turn) (float64, error) {
	return float64(t.FoodRequired), nil
}

func (s *Steward) Recruit(_ context.Context, t engine.Turn) (int, error) {
	want := int(float64(t.Status.Population)*s.ArmyShare) - t.Status.Army
	afford := int(surplus(t) / social.SoldierCost)
	return max(min(want, afford), 0), nil
}

// Target picks the rival with the most land among those the army can beat
// with room to spare.
func (s *Steward) Target(_ context.Context, t engine.Turn) (string, error) {
	ratio := engine.AttackThreshold + s.Margin
	best := ""
	bestAcres := -1
	for _, r := range t.Rivals {
		if float64(t.Status.Army) <= float64(r.Army)*ratio {
			continue
		}
		if r.Acres > bestAcres {
			best, bestAcres = r.Name, r.Acres
		}
	}
	if best != "" {
		slog.Debug("steward attacks", "city", t.Status.Name, "target", best, "army", t.Status.Army)
	}
	return best, nil
}

func (s *Steward) Rejected(_ context.Context, t engine.Turn, err error) {
	s.Rejections++
	slog.Debug("steward decision rejected", "city", t.Status.Name, "year", t.Year, "error", err)
}
