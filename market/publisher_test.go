package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotebook/money"
)

type recordedUpdate struct {
	symbol string
	buy    Side
	sell   Side
}

type testSubscriber struct {
	name    string
	updates []recordedUpdate
	order   *[]string
}

func (s *testSubscriber) OnMarketUpdate(symbol string, buy, sell Side) {
	s.updates = append(s.updates, recordedUpdate{symbol, buy, sell})
	if s.order != nil {
		*s.order = append(*s.order, s.name)
	}
}

func TestPublishReachesOnlySymbolSubscribers(t *testing.T) {
	pub := NewPublisher()
	a := &testSubscriber{name: "a"}
	b := &testSubscriber{name: "b"}
	pub.Subscribe("TGT", a)
	pub.Subscribe("OTH", b)

	pub.Publish("TGT", Side{Price: money.FromCents(1000), Volume: 10}, Side{Price: money.FromCents(1010), Volume: 5})

	require.Len(t, a.updates, 1)
	assert.Equal(t, "TGT", a.updates[0].symbol)
	assert.Equal(t, int64(1000), a.updates[0].buy.Price.Cents())
	assert.Empty(t, b.updates)
}

func TestPublishInRegistrationOrder(t *testing.T) {
	pub := NewPublisher()
	var order []string
	first := &testSubscriber{name: "first", order: &order}
	second := &testSubscriber{name: "second", order: &order}
	pub.Subscribe("TGT", first)
	pub.Subscribe("TGT", second)

	pub.Publish("TGT", Side{}, Side{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDuplicateSubscriptionsEachNotified(t *testing.T) {
	pub := NewPublisher()
	sub := &testSubscriber{name: "dup"}
	pub.Subscribe("TGT", sub)
	pub.Subscribe("TGT", sub)

	pub.Publish("TGT", Side{}, Side{})
	assert.Len(t, sub.updates, 2)
}

func TestUnsubscribeRemovesOneRegistration(t *testing.T) {
	pub := NewPublisher()
	sub := &testSubscriber{name: "dup"}
	pub.Subscribe("TGT", sub)
	pub.Subscribe("TGT", sub)

	pub.Unsubscribe("TGT", sub)
	assert.Equal(t, 1, pub.SubscriberCount("TGT"))

	pub.Publish("TGT", Side{}, Side{})
	assert.Len(t, sub.updates, 1)

	// Dropping the last registration removes the symbol entry entirely.
	pub.Unsubscribe("TGT", sub)
	assert.Equal(t, 0, pub.SubscriberCount("TGT"))

	pub.Publish("TGT", Side{}, Side{})
	assert.Len(t, sub.updates, 1)
}

func TestUnsubscribedBeforeMutationSeesNothing(t *testing.T) {
	pub := NewPublisher()
	stays := &testSubscriber{name: "stays"}
	leaves := &testSubscriber{name: "leaves"}
	pub.Subscribe("TGT", stays)
	pub.Subscribe("TGT", leaves)

	pub.Unsubscribe("TGT", leaves)
	pub.Publish("TGT", Side{}, Side{})

	assert.Len(t, stays.updates, 1)
	assert.Empty(t, leaves.updates)
}
