// Package social models the city-states: their land, food, people and army,
// and every operation of a city-state's year.
package social

import (
	"math"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/errx"
)

// Agricultural and military constants.
const (
	BushelsPerAcre  = 40 // wheat yield per harvested acre
	SeedPerAcre     = 2  // bushels of seed per planted acre
	FoodPerPerson   = 3  // bushels to feed one person for a year
	FoodPerSoldier  = 5  // feeding hint only; soldiers are not fed separately
	SoldierCost     = 5  // bushels to recruit one soldier
	AcresPerWorker  = 2  // acres one person can tend
	DisasterChance  = 0.15
	LandPriceLow    = 15
	LandPriceHigh   = 25
	maxDeathRate    = 0.2
	minBirthRate    = 0.1
	maxBirthRate    = 3.0
	migrationShare  = 0.2
	plagueLowShare  = 0.4
	plagueHighShare = 0.6
)

// ratShares are the portions of the granary rats can destroy.
var ratShares = []float64{0.25, 0.5, 1.0}

// OfferBook is the part of the market a city-state trades through.
type OfferBook interface {
	MakeOffer(party string, dir economy.Direction, units int, price float64) error
	CurrentPrice() float64
}

// CityState is one polity's resources and demographics.
type CityState struct {
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	Population   int     `json:"population"`
	Army         int     `json:"army"`
	Bushels      float64 `json:"bushels"` // may run negative as debt
	Acres        int     `json:"acres"`
	PlantedAcres int     `json:"planted_acres"`
	Starved      int     `json:"starved"` // cumulative
	Born         int     `json:"born"`    // cumulative, seeded with the founding population
}

// New creates a city-state in its first year.
func New(name string, population, acres int, bushels float64) *CityState {
	return &CityState{
		Name:       name,
		Year:       1,
		Population: population,
		Bushels:    bushels,
		Acres:      acres,
		Born:       population,
	}
}

// WorkableAcres is the land the current population can cultivate.
func (c *CityState) WorkableAcres() int {
	return min(c.Acres, c.Population/AcresPerWorker)
}

// SeedRequired is the seed needed to plant every workable acre.
func (c *CityState) SeedRequired() int {
	return c.WorkableAcres() * SeedPerAcre
}

// FoodRequired is the suggested ration for people and soldiers.
func (c *CityState) FoodRequired() int {
	return c.Population*FoodPerPerson + c.Army*FoodPerSoldier
}

// LandBounds returns the smallest (most negative, a sale) and largest (a
// purchase) acreage delta a land deal may name at the given market price.
func (c *CityState) LandBounds(marketPrice float64) (minAcres int, maxAcres float64) {
	return -c.Acres, c.Bushels / marketPrice
}

// LandPrice quotes an advisory price. The market price is what settles.
func (c *CityState) LandPrice(rng entropy.Source) int {
	return entropy.IntRange(rng, LandPriceLow, LandPriceHigh)
}

// LandTransaction posts a land offer: negative acres sell, positive acres
// buy. Nothing is posted and nothing changes when the deal is out of bounds.
func (c *CityState) LandTransaction(acres int, price float64, book OfferBook) error {
	if acres == 0 {
		return nil
	}
	minAcres, maxAcres := c.LandBounds(book.CurrentPrice())
	if acres < minAcres || float64(acres) > maxAcres {
		return errx.ErrInvalidTransaction.
			WithMsg("acres must be between %d and %.2f", minAcres, maxAcres).
			WithData("city", c.Name).
			WithData("acres", acres)
	}
	if price <= 0 {
		return errx.ErrInvalidTransaction.
			WithMsg("price per acre must be positive").
			WithData("city", c.Name).
			WithData("price", price)
	}
	dir, units := economy.Buy, acres
	if acres < 0 {
		dir, units = economy.Sell, -acres
	}
	if err := book.MakeOffer(c.Name, dir, units, price); err != nil {
		return errx.ErrInvalidTransaction.WithData("city", c.Name).WithCause(err)
	}
	return nil
}

// Plant sows seed at two bushels per acre. The full amount is debited, so
// sowing more than the granary holds leaves it in debt, as recruiting does.
// Planted acres are capped by workable land at harvest, not here.
func (c *CityState) Plant(bushels int) error {
	if bushels < 0 {
		return errx.ErrInvalidDecision.WithMsg("cannot plant %d bushels", bushels).WithData("city", c.Name)
	}
	c.PlantedAcres = bushels / SeedPerAcre
	c.Bushels -= float64(bushels)
	return nil
}

// DistributeBushels feeds the population from the granary at three bushels a
// head. The ration is capped at the stock on hand. Returns how many starved.
func (c *CityState) DistributeBushels(bushels float64) int {
	if bushels > c.Bushels {
		bushels = c.Bushels
	}
	if bushels < 0 {
		bushels = 0
	}
	c.Bushels -= bushels

	fed := int(math.Ceil(bushels / FoodPerPerson))
	starved := c.Population - fed
	if starved <= 0 {
		return 0
	}
	c.Population = fed
	c.Starved += starved
	return starved
}

// Demography is the outcome of a year's population change.
type Demography struct {
	Starved   int `json:"starved"`
	Deaths    int `json:"deaths"`
	Births    int `json:"births"`
	Migration int `json:"migration"` // net arrivals; negative means departures
}

// ManagePopulation applies natural deaths, then births, then migration.
func (c *CityState) ManagePopulation(starved int, rng entropy.Source) Demography {
	d := Demography{Starved: starved}

	d.Deaths = int(float64(c.Population) * entropy.Uniform(rng, 0, maxDeathRate))
	c.Population -= d.Deaths

	d.Births = int(float64(c.Population) * entropy.Uniform(rng, minBirthRate, maxBirthRate))
	c.Born += d.Births
	c.Population += d.Births

	pop := float64(c.Population)
	d.Migration = int(entropy.Uniform(rng, -pop*migrationShare, pop*migrationShare))
	c.Population += d.Migration

	return d
}

// Yield is the crop reaped at harvest.
type Yield struct {
	Acres   int `json:"acres"`
	Bushels int `json:"bushels"`
}

// Harvest collects the crop and clears the fields.
func (c *CityState) Harvest() Yield {
	acres := min(c.PlantedAcres, c.WorkableAcres())
	h := Yield{Acres: acres, Bushels: acres * BushelsPerAcre}
	c.Bushels += float64(h.Bushels)
	c.PlantedAcres = 0
	return h
}

// Disasters records the year's rats and plague, if any.
type Disasters struct {
	Rats        bool    `json:"rats"`
	RatShare    float64 `json:"rat_share,omitempty"`
	BushelsLost int     `json:"bushels_lost"`
	Plague      bool    `json:"plague"`
	PeopleLost  int     `json:"people_lost"`
}

// Disaster rolls independently for rats and plague.
func (c *CityState) Disaster(rng entropy.Source) Disasters {
	var d Disasters
	if entropy.Chance(rng, DisasterChance) {
		d.Rats = true
		d.RatShare = entropy.Pick(rng, ratShares)
		if c.Bushels > 0 {
			d.BushelsLost = int(c.Bushels * d.RatShare)
		}
		c.Bushels -= float64(d.BushelsLost)
	}
	if entropy.Chance(rng, DisasterChance) {
		d.Plague = true
		d.PeopleLost = int(float64(c.Population) * entropy.Uniform(rng, plagueLowShare, plagueHighShare))
		c.Population -= d.PeopleLost
	}
	return d
}

// RaiseArmy recruits soldiers at five bushels each.
func (c *CityState) RaiseArmy(soldiers int) error {
	if soldiers < 0 {
		return errx.ErrInvalidDecision.WithMsg("cannot recruit %d soldiers", soldiers).WithData("city", c.Name)
	}
	c.Army += soldiers
	c.Bushels -= float64(soldiers * SoldierCost)
	return nil
}

// Settle applies a market trade to the granary and the land.
func (c *CityState) Settle(bushels float64, acres int) {
	c.Bushels += bushels
	c.Acres += acres
}

// ApplyBattle adds combat deltas. The army never drops below zero.
func (c *CityState) ApplyBattle(bushels float64, acres, army int) {
	c.Bushels += bushels
	c.Acres += acres
	c.Army = max(c.Army+army, 0)
}

// EndYear advances the turn counter.
func (c *CityState) EndYear() {
	c.Year++
}

// Status is a point-in-time view of a city-state.
type Status struct {
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	Population   int     `json:"population"`
	Army         int     `json:"army"`
	Bushels      float64 `json:"bushels"`
	Acres        int     `json:"acres"`
	PlantedAcres int     `json:"planted_acres"`
	Starved      int     `json:"starved"`
	Born         int     `json:"born"`
}

func (c *CityState) Status() Status {
	return Status{
		Name:         c.Name,
		Year:         c.Year,
		Population:   c.Population,
		Army:         c.Army,
		Bushels:      c.Bushels,
		Acres:        c.Acres,
		PlantedAcres: c.PlantedAcres,
		Starved:      c.Starved,
		Born:         c.Born,
	}
}

// Score is the end-of-run summary for a city-state.
type Score struct {
	Name    string  `json:"name"`
	Years   int     `json:"years"`
	Starved int     `json:"starved"`
	Born    int     `json:"born"`
	Percent float64 `json:"score"`
}

// Score rates the run by the share of everyone ever born who did not starve.
func (c *CityState) Score() Score {
	s := Score{Name: c.Name, Years: c.Year - 1, Starved: c.Starved, Born: c.Born}
	if c.Born > 0 {
		s.Percent = 100 * (1 - float64(c.Starved)/float64(c.Born))
	}
	return s
}
