package market

import "sync"

// Subscriber receives current-market snapshots for symbols it subscribed to.
// Callbacks run on the goroutine of the mutation that produced the update
// and must not call back into that instrument's book.
type Subscriber interface {
	OnMarketUpdate(symbol string, buy, sell Side)
}

// Publisher fans current-market updates out to per-symbol subscribers in
// registration order. Duplicate subscriptions are permitted and each
// receives its own notification.
type Publisher struct {
	mu   sync.RWMutex
	subs map[string][]Subscriber
}

// NewPublisher builds an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[string][]Subscriber)}
}

// Subscribe registers sub for the symbol's updates.
func (p *Publisher) Subscribe(symbol string, sub Subscriber) {
	if sub == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[symbol] = append(p.subs[symbol], sub)
}

// Unsubscribe removes one registration of sub for the symbol. When none
// remain the symbol's entry is dropped entirely.
func (p *Publisher) Unsubscribe(symbol string, sub Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subs[symbol]
	for i, cur := range subs {
		if cur == sub {
			p.subs[symbol] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(p.subs[symbol]) == 0 {
		delete(p.subs, symbol)
	}
}

// Publish notifies every current subscriber for the symbol, in registration
// order. Subscribers added or removed while a publish is in flight are not
// guaranteed to observe or miss it.
func (p *Publisher) Publish(symbol string, buy, sell Side) {
	p.mu.RLock()
	subs := make([]Subscriber, len(p.subs[symbol]))
	copy(subs, p.subs[symbol])
	p.mu.RUnlock()

	for _, sub := range subs {
		sub.OnMarketUpdate(symbol, buy, sell)
	}
}

// SubscriberCount returns the number of registrations for a symbol.
func (p *Publisher) SubscriberCount(symbol string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs[symbol])
}
