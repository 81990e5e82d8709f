package steward

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/social"
)

func turn(pop, acres, army int, bushels float64, food, seed int, price float64) engine.Turn {
	return engine.Turn{
		Year:         1,
		Status:       social.Status{Name: "Sumer", Population: pop, Acres: acres, Army: army, Bushels: bushels},
		MarketPrice:  price,
		MinAcres:     -acres,
		MaxAcres:     bushels / price,
		FoodRequired: food,
		SeedRequired: seed,
	}
}

func TestStewardFeedsWhatIsRequired(t *testing.T) {
	got, err := New().Feed(context.Background(), turn(20, 20, 0, 75, 60, 20, 15))
	require.NoError(t, err)
	assert.Equal(t, 60.0, got)
}

func TestStewardPlant(t *testing.T) {
	s := New()
	ctx := context.Background()
	tests := []struct {
		name    string
		bushels float64
		want    int
	}{
		{"plenty", 100, 20},
		{"food comes first", 65, 10},
		{"in debt", -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Plant(ctx, turn(20, 20, 0, tt.bushels, 60, 20, 15))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStewardBuysLandForIdleWorkers(t *testing.T) {
	deal, err := New().LandDeal(context.Background(), turn(100, 20, 0, 1000, 300, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, 16, deal.Acres)
	assert.InDelta(t, 22.0, deal.Price, 1e-9)
}

func TestStewardSellsSurplusLandWhenShort(t *testing.T) {
	deal, err := New().LandDeal(context.Background(), turn(20, 30, 0, 10, 60, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, -4, deal.Acres)
	assert.InDelta(t, 18.0, deal.Price, 1e-9)
}

func TestStewardHoldsLandWhenBalanced(t *testing.T) {
	deal, err := New().LandDeal(context.Background(), turn(40, 20, 0, 100, 60, 40, 15))
	require.NoError(t, err)
	assert.Zero(t, deal)
}

func TestStewardRecruitsWhatItCanAfford(t *testing.T) {
	s := New()
	got, err := s.Recruit(context.Background(), turn(100, 20, 2, 500, 310, 40, 15))
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	got, err = s.Recruit(context.Background(), turn(100, 20, 2, 200, 310, 40, 15))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestStewardTargetsRichestBeatableRival(t *testing.T) {
	tr := turn(100, 20, 10, 100, 0, 0, 15)
	tr.Rivals = []social.Status{
		{Name: "Ur", Army: 5, Acres: 100},
		{Name: "Asher", Army: 4, Acres: 10},
		{Name: "Kish", Army: 0, Acres: 30},
	}
	got, err := New().Target(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, "Kish", got)

	tr.Rivals = tr.Rivals[:1]
	got, err = New().Target(context.Background(), tr)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStewardCountsRejections(t *testing.T) {
	s := New()
	s.Rejected(context.Background(), engine.Turn{}, errors.New("no"))
	assert.Equal(t, 1, s.Rejections)
}

func TestStewardPlaysAWholeRun(t *testing.T) {
	w := engine.NewWorld(economy.NewMarket(15, 200), entropy.NewStream(7))
	w.AddCityState(social.New("Sumer", 20, 20, 75))
	w.AddCityState(social.New("Asher", 20, 20, 75))
	s := New()
	w.Decider = s

	require.NoError(t, w.Run(context.Background(), 10))
	assert.Equal(t, 11, w.Year())
	for _, score := range w.Summary() {
		assert.Equal(t, 10, score.Years)
	}
}
