package engine

import (
	"context"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/social"
)

// Turn is what a decider sees before each decision of a city-state's year.
type Turn struct {
	Year         int             `json:"year"`
	Status       social.Status   `json:"status"`
	MarketPrice  float64         `json:"market_price"`
	LandQuote    int             `json:"land_quote"` // advisory only
	MinAcres     int             `json:"min_acres"`
	MaxAcres     float64         `json:"max_acres"`
	SeedRequired int             `json:"seed_required"`
	FoodRequired int             `json:"food_required"`
	Rivals       []social.Status `json:"rivals"`
}

// LandDeal is a signed acreage delta (negative sells) and a price per acre.
type LandDeal struct {
	Acres int     `json:"acres" yaml:"acres"`
	Price float64 `json:"price" yaml:"price"`
}

// Decider supplies a city-state's choices for the year.
type Decider interface {
	LandDeal(ctx context.Context, t Turn) (LandDeal, error)
	Plant(ctx context.Context, t Turn) (int, error)
	Feed(ctx context.Context, t Turn) (float64, error)
	Recruit(ctx context.Context, t Turn) (int, error)
	// Target names a city-state to attack, or "" for peace. Only asked when
	// the city-state has an army.
	Target(ctx context.Context, t Turn) (string, error)
	// Rejected tells the decider one of its choices failed validation.
	Rejected(ctx context.Context, t Turn, err error)
}

// Event categories.
const (
	CategoryLand       = "land"
	CategoryMarket     = "market"
	CategoryFamine     = "famine"
	CategoryPopulation = "population"
	CategoryHarvest    = "harvest"
	CategoryDisaster   = "disaster"
	CategoryArmy       = "army"
	CategoryWar        = "war"
	CategoryWarning    = "warning"
)

// Event is a notable occurrence in a city-state's year.
type Event struct {
	Year        int    `json:"year"`
	City        string `json:"city,omitempty"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"` // error code behind a warning
}

// BattleReport is a battle's outcome with both sides' post-battle status.
type BattleReport struct {
	Battle Battle        `json:"battle"`
	Victor social.Status `json:"victor"`
	Loser  social.Status `json:"loser"`
}

// Reporter receives everything worth showing. It must not change the world.
type Reporter interface {
	Status(s social.Status)
	Notice(e Event)
	Market(year int, snap economy.Snapshot, fills []economy.Fill)
	Battle(b BattleReport)
	Summary(scores []social.Score)
}

type discard struct{}

func (discard) Status(social.Status)                         {}
func (discard) Notice(Event)                                 {}
func (discard) Market(int, economy.Snapshot, []economy.Fill) {}
func (discard) Battle(BattleReport)                          {}
func (discard) Summary([]social.Score)                       {}
