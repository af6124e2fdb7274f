package sim

import (
	"context"
	"math/rand"
	"time"

	"quotebook/engine"
)

// RandomBidBot places short-lived bids a few ticks under the mid price.
type RandomBidBot struct {
	User       string
	Interval   time.Duration
	Lifetime   time.Duration
	Volume     int
	RangeTicks int64
	rand       *rand.Rand
}

func NewRandomBidBot(user string) *RandomBidBot {
	return &RandomBidBot{
		User:       user,
		Interval:   200 * time.Millisecond,
		Lifetime:   2 * time.Second,
		Volume:     5,
		RangeTicks: 5,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *RandomBidBot) Start(ctx context.Context, s *Session) {
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.placeBid(ctx, s)
		}
	}
}

func (b *RandomBidBot) placeBid(ctx context.Context, s *Session) {
	mid, ok := s.Mid()
	if !ok {
		return
	}

	delta := b.rand.Int63n(b.RangeTicks+1) * s.TickCents()
	price := mid - delta
	if price <= 0 {
		price = s.TickCents()
	}

	id, err := s.Place(ctx, b.User, price, b.Volume, engine.Buy)
	if err != nil {
		return
	}

	go b.cancelAfter(ctx, s, id)
}

func (b *RandomBidBot) cancelAfter(ctx context.Context, s *Session, id string) {
	timer := time.NewTimer(b.Lifetime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		_ = s.Cancel(context.Background(), id)
	}
}
