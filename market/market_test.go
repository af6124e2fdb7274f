package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"quotebook/money"
)

func TestSideString(t *testing.T) {
	assert.Equal(t, "$10.00x40", Side{Price: money.FromCents(1000), Volume: 40}.String())
	assert.Equal(t, "$0.00x0", Side{}.String())
}

func trackerWithObserver() (*Tracker, *Publisher, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	pub := NewPublisher()
	return NewTracker(pub, zap.New(core)), pub, logs
}

func widthOf(t *testing.T, logs *observer.ObservedLogs) string {
	t.Helper()
	entries := logs.FilterMessage("current market").All()
	require.NotEmpty(t, entries)
	fields := entries[len(entries)-1].ContextMap()
	width, ok := fields["width"].(string)
	require.True(t, ok, "width field missing: %v", fields)
	return width
}

func TestUpdateMarketWidth(t *testing.T) {
	tracker, pub, logs := trackerWithObserver()
	sub := &testSubscriber{name: "watcher"}
	pub.Subscribe("TGT", sub)

	tracker.UpdateMarket("TGT", money.FromCents(995), 40, money.FromCents(1005), 60)

	assert.Equal(t, "0.10", widthOf(t, logs))
	require.Len(t, sub.updates, 1)
	assert.Equal(t, int64(995), sub.updates[0].buy.Price.Cents())
	assert.Equal(t, 60, sub.updates[0].sell.Volume)
}

func TestUpdateMarketWidthZeroWhenSideMissing(t *testing.T) {
	tracker, _, logs := trackerWithObserver()

	// Empty sides are published with a zero price; the width must be
	// reported as zero, not as a negative spread.
	tracker.UpdateMarket("TGT", money.FromCents(1000), 40, money.FromCents(0), 0)
	assert.Equal(t, "0.00", widthOf(t, logs))

	tracker.UpdateMarket("TGT", money.FromCents(0), 0, money.FromCents(1005), 10)
	assert.Equal(t, "0.00", widthOf(t, logs))

	tracker.UpdateMarket("TGT", money.Money{}, 0, money.Money{}, 0)
	assert.Equal(t, "0.00", widthOf(t, logs))
}

func TestUpdateMarketPublishesEveryCall(t *testing.T) {
	tracker, pub, _ := trackerWithObserver()
	sub := &testSubscriber{name: "watcher"}
	pub.Subscribe("TGT", sub)

	for i := 0; i < 3; i++ {
		tracker.UpdateMarket("TGT", money.FromCents(1000), 10+i, money.FromCents(1010), 20)
	}
	assert.Len(t, sub.updates, 3)
	assert.Equal(t, 12, sub.updates[2].buy.Volume)
}
