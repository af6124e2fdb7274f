package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotebook/engine"
	"quotebook/market"
	"quotebook/money"
)

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser("ABC")
	require.NoError(t, err)

	for _, bad := range []string{"", "AB", "ABCD", "abc", "A1C"} {
		_, err := NewUser(bad)
		assert.ErrorIs(t, err, engine.ErrInvalidArgument, "id %q", bad)
	}
}

func TestStoreSkipsInvalidIDs(t *testing.T) {
	store := NewStore(nil, "AAA", "bad", "BBB")

	_, err := store.Get("AAA")
	assert.NoError(t, err)
	_, err = store.Get("BBB")
	assert.NoError(t, err)
	_, err = store.Get("bad")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestRecordTradable(t *testing.T) {
	store := NewStore(nil, "AAA")

	snap := engine.TradableSnapshot{
		ID:              "id-1",
		User:            "AAA",
		Product:         "TGT",
		Price:           money.FromCents(1000),
		OriginalVolume:  100,
		RemainingVolume: 60,
		FilledVolume:    40,
	}
	require.NoError(t, store.RecordTradable("AAA", snap))

	// Latest snapshot wins.
	snap.RemainingVolume = 0
	snap.FilledVolume = 100
	require.NoError(t, store.RecordTradable("AAA", snap))

	user, err := store.Get("AAA")
	require.NoError(t, err)
	got := user.Tradables()
	require.Len(t, got, 1)
	assert.Equal(t, 100, got["id-1"].FilledVolume)
}

func TestRecordTradableUnknownUser(t *testing.T) {
	store := NewStore(nil, "AAA")
	err := store.RecordTradable("ZZZ", engine.TradableSnapshot{ID: "id-1"})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestUserTracksCurrentMarkets(t *testing.T) {
	user, err := NewUser("AAA")
	require.NoError(t, err)

	user.OnMarketUpdate("TGT",
		market.Side{Price: money.FromCents(995), Volume: 10},
		market.Side{Price: money.FromCents(1005), Volume: 20})
	user.OnMarketUpdate("TGT",
		market.Side{Price: money.FromCents(990), Volume: 5},
		market.Side{Price: money.FromCents(1010), Volume: 15})

	markets := user.CurrentMarkets()
	require.Len(t, markets, 1)
	assert.Equal(t, int64(990), markets["TGT"].Buy.Price.Cents())
	assert.Equal(t, 15, markets["TGT"].Sell.Volume)

	// Accessors hand out copies.
	markets["TGT"] = MarketPair{}
	assert.Equal(t, int64(990), user.CurrentMarkets()["TGT"].Buy.Price.Cents())
}

func TestAddExistingUserReturnsSame(t *testing.T) {
	store := NewStore(nil)
	first, err := store.Add("AAA")
	require.NoError(t, err)
	second, err := store.Add("AAA")
	require.NoError(t, err)
	assert.Same(t, first, second)
}
