// Package economy provides the shared land market: price discovery and
// settlement of buy and sell offers.
package economy

import (
	"fmt"
	"log/slog"

	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/errx"
)

// MinPrice keeps the market price strictly positive when a seller dumps land
// at or below zero.
const MinPrice = 0.01

// Price movement factors.
const (
	overshoot   = 1.1 // upward moves overshoot the target
	undershoot  = 0.9 // downward moves undershoot the target
	jitterBand  = 0.1 // post-move jitter is uniform in ±10%
	decayTarget = 0.8 // idle market drifts toward 80% of its price
	decayFloor  = 3.0 // idle market stops decaying at or below this price
)

// Direction is the side of an offer.
type Direction uint8

const (
	Buy Direction = iota + 1
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// MarshalText renders the direction as "buy" or "sell".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Offer is a pending order for land. Units is always positive; the direction
// says which way the land moves.
type Offer struct {
	Party     string    `json:"party"`
	Direction Direction `json:"direction"`
	Units     int       `json:"units"`
	Price     float64   `json:"price"`
}

// Accounts gives settlement write access to the parties' holdings.
type Accounts interface {
	// Settle adds bushels and acres (either may be negative) to the named
	// party. It returns false, changing nothing, when the party is unknown.
	Settle(party string, bushels float64, acres int) bool
}

// Fill is the outcome of settling one offer.
type Fill struct {
	Offer       Offer   `json:"offer"`
	Filled      int     `json:"filled"`
	PriceBefore float64 `json:"price_before"`
	PriceAfter  float64 `json:"price_after"`
	Reason      string  `json:"reason,omitempty"` // why a rejected offer was dropped
	Err         error   `json:"-"`
}

// Rejected reports whether the offer was dropped.
func (f Fill) Rejected() bool { return f.Err != nil }

// Market is the single land market shared by every city-state.
type Market struct {
	Price  float64 `json:"price"`
	Units  int     `json:"units"` // land held by the market itself
	offers []Offer
}

// NewMarket creates a market with a starting price and inventory.
func NewMarket(price float64, units int) *Market {
	if price < MinPrice {
		price = MinPrice
	}
	if units < 0 {
		units = 0
	}
	return &Market{Price: price, Units: units}
}

// MakeOffer queues an offer for the next settlement.
func (m *Market) MakeOffer(party string, dir Direction, units int, price float64) error {
	if dir != Buy && dir != Sell {
		return fmt.Errorf("make offer for %s: unknown direction %d", party, dir)
	}
	m.offers = append(m.offers, Offer{Party: party, Direction: dir, Units: units, Price: price})
	return nil
}

// CurrentPrice returns the price offers are settled against.
func (m *Market) CurrentPrice() float64 { return m.Price }

// Pending returns a copy of the queued offers in submission order.
func (m *Market) Pending() []Offer {
	out := make([]Offer, len(m.offers))
	copy(out, m.offers)
	return out
}

// AdjustPrice moves the price toward target, overshooting upward and
// undershooting downward, then jitters it within ±10%.
func (m *Market) AdjustPrice(target float64, rng entropy.Source) {
	if target > m.Price {
		percentGreater := 1 + (target-m.Price)/m.Price
		percentGreater *= overshoot
		m.Price *= percentGreater
	} else {
		percentLess := 1 - (m.Price-target)/m.Price
		percentLess *= undershoot
		m.Price *= percentLess
	}
	m.Price = entropy.Uniform(rng, m.Price*(1-jitterBand), m.Price*(1+jitterBand))
	if m.Price < MinPrice {
		m.Price = MinPrice
	}
}

// SettleOffers drains the queue in submission order. Each fill moves the
// price, so later offers in the batch see the adjusted price. An idle market
// above the decay floor drifts down instead.
func (m *Market) SettleOffers(accounts Accounts, rng entropy.Source) []Fill {
	if len(m.offers) == 0 {
		if m.Price > decayFloor {
			before := m.Price
			m.AdjustPrice(m.Price*decayTarget, rng)
			slog.Debug("market idle, price decayed", "from", before, "to", m.Price)
		}
		return nil
	}

	fills := make([]Fill, 0, len(m.offers))
	for len(m.offers) > 0 {
		offer := m.offers[0]
		m.offers = m.offers[1:]
		fills = append(fills, m.settle(offer, accounts, rng))
	}
	m.offers = nil
	return fills
}

func (m *Market) settle(o Offer, accounts Accounts, rng entropy.Source) Fill {
	fill := Fill{Offer: o, PriceBefore: m.Price, PriceAfter: m.Price}

	switch o.Direction {
	case Buy:
		if o.Price < m.Price {
			fill.Err = errx.ErrRejectedOffer.WithMsg("buy price %.2f is less than market price %.2f", o.Price, m.Price)
			break
		}
		filled := min(o.Units, m.Units)
		if !accounts.Settle(o.Party, -o.Price*float64(filled), filled) {
			fill.Err = errx.ErrUnregisteredParty.WithData("party", o.Party)
			break
		}
		m.Units -= filled
		fill.Filled = filled
		m.AdjustPrice(o.Price, rng)
	case Sell:
		if o.Price > m.Price {
			fill.Err = errx.ErrRejectedOffer.WithMsg("sale price %.2f is greater than market price %.2f", o.Price, m.Price)
			break
		}
		if !accounts.Settle(o.Party, o.Price*float64(o.Units), -o.Units) {
			fill.Err = errx.ErrUnregisteredParty.WithData("party", o.Party)
			break
		}
		m.Units += o.Units
		fill.Filled = o.Units
		m.AdjustPrice(o.Price, rng)
	default:
		fill.Err = errx.ErrRejectedOffer.WithMsg("unknown direction %d", o.Direction)
	}

	fill.PriceAfter = m.Price
	if fill.Err != nil {
		fill.Reason = fill.Err.Error()
	}
	slog.Debug("offer settled",
		"party", o.Party,
		"direction", o.Direction.String(),
		"units", o.Units,
		"limit", o.Price,
		"filled", fill.Filled,
		"price", m.Price,
		"rejected", fill.Rejected(),
	)
	return fill
}

// Snapshot is a read-only view of the market.
type Snapshot struct {
	Price   float64 `json:"price"`
	Units   int     `json:"units"`
	Pending int     `json:"pending"`
}

func (m *Market) Snapshot() Snapshot {
	return Snapshot{Price: m.Price, Units: m.Units, Pending: len(m.offers)}
}
