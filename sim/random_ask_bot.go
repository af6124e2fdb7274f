package sim

import (
	"context"
	"math/rand"
	"time"

	"quotebook/engine"
)

// RandomAskBot places short-lived offers a few ticks over the mid price.
type RandomAskBot struct {
	User       string
	Interval   time.Duration
	Lifetime   time.Duration
	Volume     int
	RangeTicks int64
	rand       *rand.Rand
}

func NewRandomAskBot(user string) *RandomAskBot {
	return &RandomAskBot{
		User:       user,
		Interval:   200 * time.Millisecond,
		Lifetime:   2 * time.Second,
		Volume:     5,
		RangeTicks: 5,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *RandomAskBot) Start(ctx context.Context, s *Session) {
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.placeAsk(ctx, s)
		}
	}
}

func (b *RandomAskBot) placeAsk(ctx context.Context, s *Session) {
	mid, ok := s.Mid()
	if !ok {
		return
	}

	delta := b.rand.Int63n(b.RangeTicks+1) * s.TickCents()
	price := mid + delta
	if price <= 0 {
		price = s.TickCents()
	}

	id, err := s.Place(ctx, b.User, price, b.Volume, engine.Sell)
	if err != nil {
		return
	}

	go b.cancelAfter(ctx, s, id)
}

func (b *RandomAskBot) cancelAfter(ctx context.Context, s *Session, id string) {
	timer := time.NewTimer(b.Lifetime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		_ = s.Cancel(context.Background(), id)
	}
}
