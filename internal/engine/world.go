// World ties the market and the city-states together and drives the years.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/social"
)

// World owns the market and the registry of city-states. Registration order
// is turn order.
type World struct {
	Decider  Decider
	Reporter Reporter

	market *economy.Market
	rng    entropy.Source
	order  []string
	cities map[string]*social.CityState
	year   int
}

// NewWorld creates a world around a market and a shared random stream.
func NewWorld(market *economy.Market, rng entropy.Source) *World {
	return &World{
		market: market,
		rng:    rng,
		cities: make(map[string]*social.CityState),
		year:   1,
	}
}

// AddCityState registers c. A name that is already registered is ignored.
func (w *World) AddCityState(c *social.CityState) bool {
	if _, ok := w.cities[c.Name]; ok {
		slog.Warn("city-state already registered", "name", c.Name)
		return false
	}
	w.cities[c.Name] = c
	w.order = append(w.order, c.Name)
	return true
}

// CityState looks up a registered city-state by name.
func (w *World) CityState(name string) (*social.CityState, bool) {
	c, ok := w.cities[name]
	return c, ok
}

// CityStates returns the registered city-states in turn order.
func (w *World) CityStates() []*social.CityState {
	out := make([]*social.CityState, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.cities[name])
	}
	return out
}

// Names returns the registered names in turn order.
func (w *World) Names() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Market returns the shared land market.
func (w *World) Market() *economy.Market { return w.market }

// Year is the year currently being (or about to be) played.
func (w *World) Year() int { return w.year }

// Settle implements economy.Accounts over the registry.
func (w *World) Settle(party string, bushels float64, acres int) bool {
	c, ok := w.cities[party]
	if !ok {
		return false
	}
	c.Settle(bushels, acres)
	return true
}

// Summary returns the end-of-run score of every city-state in turn order.
func (w *World) Summary() []social.Score {
	scores := make([]social.Score, 0, len(w.order))
	for _, c := range w.CityStates() {
		scores = append(scores, c.Score())
	}
	return scores
}

func (w *World) reporter() Reporter {
	if w.Reporter == nil {
		return discard{}
	}
	return w.Reporter
}

func (w *World) decider() (Decider, error) {
	if w.Decider == nil {
		return nil, fmt.Errorf("world has no decider")
	}
	return w.Decider, nil
}
