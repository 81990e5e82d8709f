// The year pipeline: land offers from every city-state, one market
// settlement, then each city-state's economy and demographics in turn order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/granary/internal/errx"
	"github.com/talgya/granary/internal/social"
)

// Run plays the given number of years and reports the final scores.
func (w *World) Run(ctx context.Context, years int) error {
	if years <= 0 {
		return fmt.Errorf("years must be positive, got %d", years)
	}
	for i := 0; i < years; i++ {
		if err := w.RunYear(ctx); err != nil {
			return fmt.Errorf("year %d: %w", w.year, err)
		}
	}
	w.Finish()
	return nil
}

// Finish reports the end-of-run summary.
func (w *World) Finish() {
	scores := w.Summary()
	for _, s := range scores {
		slog.Info("final score",
			"city", s.Name,
			"years", s.Years,
			"starved", s.Starved,
			"born", s.Born,
			"score", fmt.Sprintf("%.2f%%", s.Percent),
		)
	}
	w.reporter().Summary(scores)
}

// RunYear plays one full year for every city-state.
func (w *World) RunYear(ctx context.Context) error {
	dec, err := w.decider()
	if err != nil {
		return err
	}

	for _, c := range w.CityStates() {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.reporter().Status(c.Status())
		if err := w.postLandDeal(ctx, dec, c); err != nil {
			return fmt.Errorf("%s land deal: %w", c.Name, err)
		}
	}

	w.settleMarket()

	for _, c := range w.CityStates() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.advance(ctx, dec, c); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}

	slog.Info("year complete",
		"year", w.year,
		"price", fmt.Sprintf("%.2f", w.market.Price),
		"market_units", w.market.Units,
	)
	w.year++
	return nil
}

func (w *World) turn(c *social.CityState) Turn {
	price := w.market.CurrentPrice()
	minAcres, maxAcres := c.LandBounds(price)
	rivals := make([]social.Status, 0, len(w.order))
	for _, name := range w.order {
		if name != c.Name {
			rivals = append(rivals, w.cities[name].Status())
		}
	}
	return Turn{
		Year:         w.year,
		Status:       c.Status(),
		MarketPrice:  price,
		MinAcres:     minAcres,
		MaxAcres:     maxAcres,
		SeedRequired: c.SeedRequired(),
		FoodRequired: c.FoodRequired(),
		Rivals:       rivals,
	}
}

func (w *World) postLandDeal(ctx context.Context, dec Decider, c *social.CityState) error {
	t := w.turn(c)
	t.LandQuote = c.LandPrice(w.rng)
	deal, err := dec.LandDeal(ctx, t)
	if err != nil {
		return err
	}
	err = c.LandTransaction(deal.Acres, deal.Price, w.market)
	if errors.Is(err, errx.ErrInvalidTransaction) {
		w.reject(ctx, dec, t, err)
		return nil
	}
	if err != nil {
		return err
	}
	if deal.Acres != 0 {
		w.notice(c, CategoryLand, fmt.Sprintf("offered to %s %d acres at %.2f", verb(deal.Acres), abs(deal.Acres), deal.Price))
	}
	return nil
}

func (w *World) settleMarket() {
	fills := w.market.SettleOffers(w, w.rng)
	for _, f := range fills {
		c := w.cities[f.Offer.Party]
		var xe *errx.Error
		switch {
		case errors.Is(f.Err, errx.ErrRejectedOffer) && errors.As(f.Err, &xe):
			w.noticeFor(f.Offer.Party, CategoryMarket, xe.Msg())
		case f.Err != nil:
			w.warn(f.Offer.Party, f.Err)
		case c != nil && f.Filled == 0:
			w.notice(c, CategoryMarket, fmt.Sprintf("%s of %d acres went unfilled, the market has no land", f.Offer.Direction, f.Offer.Units))
		case c != nil:
			w.notice(c, CategoryMarket, fmt.Sprintf("%s %d acres at %.2f", pastVerb(f.Offer.Direction.String()), f.Filled, f.Offer.Price))
		}
	}
	w.reporter().Market(w.year, w.market.Snapshot(), fills)
}

func (w *World) advance(ctx context.Context, dec Decider, c *social.CityState) error {
	t := w.turn(c)
	seed, err := dec.Plant(ctx, t)
	if err != nil {
		return err
	}
	if err := c.Plant(seed); err != nil {
		w.reject(ctx, dec, t, err)
	}

	t = w.turn(c)
	ration, err := dec.Feed(ctx, t)
	if err != nil {
		return err
	}
	starved := c.DistributeBushels(ration)
	if starved > 0 {
		w.notice(c, CategoryFamine, fmt.Sprintf("%s starved", people(starved)))
	}

	demo := c.ManagePopulation(starved, w.rng)
	w.notice(c, CategoryPopulation, describeDemography(demo))

	if y := c.Harvest(); y.Acres > 0 {
		w.notice(c, CategoryHarvest, fmt.Sprintf("harvested %d bushels from %d acres", y.Bushels, y.Acres))
	}

	d := c.Disaster(w.rng)
	if d.Rats {
		w.notice(c, CategoryDisaster, fmt.Sprintf("rats! %d bushels lost", d.BushelsLost))
	}
	if d.Plague {
		w.notice(c, CategoryDisaster, fmt.Sprintf("plague! %s lost", people(d.PeopleLost)))
	}

	t = w.turn(c)
	soldiers, err := dec.Recruit(ctx, t)
	if err != nil {
		return err
	}
	if err := c.RaiseArmy(soldiers); err != nil {
		w.reject(ctx, dec, t, err)
	} else if soldiers > 0 {
		w.notice(c, CategoryArmy, fmt.Sprintf("recruited %d soldiers", soldiers))
	}

	if c.Army > 0 {
		if err := w.maybeAttack(ctx, dec, c); err != nil {
			return err
		}
	}

	c.EndYear()
	return nil
}

func (w *World) maybeAttack(ctx context.Context, dec Decider, c *social.CityState) error {
	t := w.turn(c)
	target, err := dec.Target(ctx, t)
	if err != nil {
		return err
	}
	if target == "" {
		return nil
	}
	b, err := w.Attack(ctx, c.Name, target)
	switch {
	case errors.Is(err, errx.ErrUnregisteredParty), errors.Is(err, errx.ErrInvalidDecision):
		slog.Warn("attack aborted", "attacker", c.Name, "defender", target, "code", errx.CodeOf(err), "error", err)
		w.warn(c.Name, err)
		return nil
	case err != nil:
		return err
	}
	w.notice(c, CategoryWar, fmt.Sprintf("%s won the battle against %s", b.Victor, b.Loser))
	return nil
}

func (w *World) reject(ctx context.Context, dec Decider, t Turn, err error) {
	slog.Warn("decision rejected", "city", t.Status.Name, "year", t.Year, "code", errx.CodeOf(err), "error", err)
	w.warn(t.Status.Name, err)
	dec.Rejected(ctx, t, err)
}

func (w *World) notice(c *social.CityState, category, desc string) {
	w.noticeFor(c.Name, category, desc)
}

func (w *World) noticeFor(city, category, desc string) {
	w.reporter().Notice(Event{Year: w.year, City: city, Category: category, Description: desc})
}

func (w *World) warn(city string, err error) {
	w.reporter().Notice(Event{
		Year:        w.year,
		City:        city,
		Category:    CategoryWarning,
		Description: err.Error(),
		Code:        string(errx.CodeOf(err)),
	})
}

func describeDemography(d social.Demography) string {
	var moved string
	switch {
	case d.Migration < 0:
		moved = fmt.Sprintf("%s left", people(-d.Migration))
	case d.Migration > 0:
		moved = fmt.Sprintf("%s arrived", people(d.Migration))
	default:
		moved = "no one arrived or left"
	}
	return fmt.Sprintf("%s starved, %s died of natural causes, %s born, %s",
		people(d.Starved), people(d.Deaths), people(d.Births), moved)
}

func people(n int) string {
	if n == 1 {
		return "1 person"
	}
	return fmt.Sprintf("%d people", n)
}

func verb(acres int) string {
	if acres < 0 {
		return "sell"
	}
	return "buy"
}

func pastVerb(dir string) string {
	if dir == "sell" {
		return "sold"
	}
	return "bought"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
