package sim

import (
	"context"
	"time"
)

// QuoterBot keeps a two-sided quote around the mid and re-prices when the
// market drifts past a threshold. Replacing the quote implicitly cancels the
// previous one, so the bot only ever has one pair of legs resting.
type QuoterBot struct {
	User           string
	Interval       time.Duration
	Lifetime       time.Duration
	ThresholdTicks int64
	Volume         int
}

type restingQuote struct {
	anchorMid int64
	placedAt  time.Time
}

func NewQuoterBot(user string) *QuoterBot {
	return &QuoterBot{
		User:           user,
		Interval:       300 * time.Millisecond,
		Lifetime:       3 * time.Second,
		ThresholdTicks: 3,
		Volume:         10,
	}
}

func (b *QuoterBot) Start(ctx context.Context, s *Session) {
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	var resting *restingQuote
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resting = b.refresh(ctx, s, resting)
		}
	}
}

func (b *QuoterBot) refresh(ctx context.Context, s *Session, resting *restingQuote) *restingQuote {
	mid, ok := s.Mid()
	if !ok {
		return b.pull(ctx, s, resting)
	}
	threshold := b.ThresholdTicks * s.TickCents()

	if resting != nil {
		if time.Since(resting.placedAt) > b.Lifetime {
			resting = b.pull(ctx, s, resting)
		} else if absInt64(mid-resting.anchorMid) >= threshold {
			resting = nil
		}
	}
	if resting != nil {
		return resting
	}

	buyPrice := mid - s.TickCents()
	if buyPrice <= 0 {
		buyPrice = s.TickCents()
	}
	sellPrice := buyPrice + 2*s.TickCents()

	if err := s.Quote(ctx, b.User, buyPrice, b.Volume, sellPrice, b.Volume); err != nil {
		return nil
	}
	return &restingQuote{anchorMid: mid, placedAt: time.Now()}
}

func (b *QuoterBot) pull(ctx context.Context, s *Session, resting *restingQuote) *restingQuote {
	if resting == nil {
		return nil
	}
	_ = s.PullQuote(ctx, b.User)
	return nil
}
