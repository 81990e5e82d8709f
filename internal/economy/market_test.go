package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/errx"
)

type holding struct {
	bushels float64
	acres   int
}

type fakeAccounts map[string]*holding

func (f fakeAccounts) Settle(party string, bushels float64, acres int) bool {
	h, ok := f[party]
	if !ok {
		return false
	}
	h.bushels += bushels
	h.acres += acres
	return true
}

// mid is a replay draw that lands the jitter exactly on the pre-jitter price.
var mid = entropy.NewReplay(0.5)

func TestAdjustPrice_UpwardOvershoots(t *testing.T) {
	m := NewMarket(10, 100)
	m.AdjustPrice(20, entropy.NewReplay(0.5))
	assert.InDelta(t, 22.0, m.Price, 1e-9)
}

func TestAdjustPrice_DownwardUndershoots(t *testing.T) {
	m := NewMarket(20, 100)
	m.AdjustPrice(10, entropy.NewReplay(0.5))
	assert.InDelta(t, 9.0, m.Price, 1e-9)

	m = NewMarket(20, 100)
	m.AdjustPrice(20, entropy.NewReplay(0.5))
	assert.InDelta(t, 18.0, m.Price, 1e-9, "equal target takes the downward branch")
}

func TestAdjustPrice_JitterBand(t *testing.T) {
	rng := entropy.NewStream(99)
	for i := 0; i < 500; i++ {
		start := 5 + float64(i%40)
		target := float64(i%60) + 1

		m := NewMarket(start, 0)
		m.AdjustPrice(target, entropy.NewReplay(0.5))
		pre := m.Price

		m = NewMarket(start, 0)
		m.AdjustPrice(target, rng)

		if target > start {
			require.Greater(t, pre, start)
		} else {
			require.LessOrEqual(t, pre, start)
		}
		require.GreaterOrEqual(t, m.Price, pre*0.9-1e-9)
		require.LessOrEqual(t, m.Price, pre*1.1+1e-9)
	}
}

func TestAdjustPrice_NeverNonPositive(t *testing.T) {
	m := NewMarket(10, 0)
	m.AdjustPrice(0, entropy.NewReplay(0.5))
	assert.Equal(t, MinPrice, m.Price)
}

func TestSettleOffers_IdleMarketDecays(t *testing.T) {
	rng := entropy.NewStream(3)
	for i := 0; i < 100; i++ {
		m := NewMarket(15, 200)
		fills := m.SettleOffers(fakeAccounts{}, rng)
		assert.Empty(t, fills)
		require.Less(t, m.Price, 15.0)
		assert.Equal(t, 200, m.Units)
	}

	m := NewMarket(3, 200)
	m.SettleOffers(fakeAccounts{}, rng)
	assert.Equal(t, 3.0, m.Price, "no decay at or below the floor")
}

func TestSettleOffers_BuyBelowPriceRejected(t *testing.T) {
	accts := fakeAccounts{"Sumer": {bushels: 100, acres: 10}}
	m := NewMarket(15, 200)
	require.NoError(t, m.MakeOffer("Sumer", Buy, 5, 14.99))

	fills := m.SettleOffers(accts, mid)
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Rejected())
	assert.ErrorIs(t, fills[0].Err, errx.ErrRejectedOffer)
	assert.Equal(t, 100.0, accts["Sumer"].bushels)
	assert.Equal(t, 10, accts["Sumer"].acres)
	assert.Equal(t, 200, m.Units)
	assert.Equal(t, 15.0, m.Price)
	assert.Empty(t, m.Pending())
}

func TestSettleOffers_BuyCappedByInventory(t *testing.T) {
	accts := fakeAccounts{"Sumer": {bushels: 500, acres: 10}}
	m := NewMarket(15, 4)
	require.NoError(t, m.MakeOffer("Sumer", Buy, 10, 20))

	fills := m.SettleOffers(accts, mid)
	require.Len(t, fills, 1)
	assert.Equal(t, 4, fills[0].Filled)
	assert.Equal(t, 500.0-20*4, accts["Sumer"].bushels)
	assert.Equal(t, 14, accts["Sumer"].acres)
	assert.Equal(t, 0, m.Units)
	assert.InDelta(t, 22.0, m.Price, 1e-9)
}

func TestSettleOffers_SellAlwaysFillsFully(t *testing.T) {
	accts := fakeAccounts{"Asher": {bushels: 0, acres: 30}}
	m := NewMarket(15, 0)
	require.NoError(t, m.MakeOffer("Asher", Sell, 25, 10))

	fills := m.SettleOffers(accts, mid)
	require.Len(t, fills, 1)
	assert.False(t, fills[0].Rejected())
	assert.Equal(t, 25, fills[0].Filled)
	assert.Equal(t, 250.0, accts["Asher"].bushels)
	assert.Equal(t, 5, accts["Asher"].acres)
	assert.Equal(t, 25, m.Units)
	assert.InDelta(t, 9.0, m.Price, 1e-9)
}

func TestSettleOffers_SellAbovePriceRejected(t *testing.T) {
	accts := fakeAccounts{"Asher": {bushels: 0, acres: 30}}
	m := NewMarket(15, 0)
	require.NoError(t, m.MakeOffer("Asher", Sell, 5, 16))

	fills := m.SettleOffers(accts, mid)
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Rejected())
	assert.Equal(t, 30, accts["Asher"].acres)
	assert.Equal(t, 0.0, accts["Asher"].bushels)
}

func TestSettleOffers_FIFOAndPriceCarriesOver(t *testing.T) {
	accts := fakeAccounts{
		"Sumer": {bushels: 1000, acres: 10},
		"Asher": {bushels: 1000, acres: 10},
	}
	m := NewMarket(15, 100)
	require.NoError(t, m.MakeOffer("Sumer", Buy, 5, 20))
	require.NoError(t, m.MakeOffer("Asher", Buy, 5, 20))

	fills := m.SettleOffers(accts, mid)
	require.Len(t, fills, 2)
	assert.Equal(t, "Sumer", fills[0].Offer.Party)
	assert.False(t, fills[0].Rejected())
	assert.InDelta(t, 22.0, fills[0].PriceAfter, 1e-9)

	// Price moved to 22, so Asher's 20 no longer clears.
	assert.Equal(t, "Asher", fills[1].Offer.Party)
	assert.True(t, fills[1].Rejected())
	assert.Equal(t, 1000.0, accts["Asher"].bushels)
}

func TestSettleOffers_UnknownPartyRejected(t *testing.T) {
	m := NewMarket(15, 100)
	require.NoError(t, m.MakeOffer("Ghost", Buy, 5, 20))
	fills := m.SettleOffers(fakeAccounts{}, mid)
	require.Len(t, fills, 1)
	assert.ErrorIs(t, fills[0].Err, errx.ErrUnregisteredParty)
	assert.Equal(t, 100, m.Units)
	assert.Equal(t, 15.0, m.Price)
}

func TestMakeOffer_ValidatesDirection(t *testing.T) {
	m := NewMarket(15, 100)
	assert.Error(t, m.MakeOffer("Sumer", Direction(9), 1, 1))
	assert.Empty(t, m.Pending())
}
