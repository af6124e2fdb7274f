// Package sim provides a small swarm of trading agents that drive a book
// registry in-process, useful for demos and soak-style exercising of the
// matching path.
package sim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quotebook/engine"
	"quotebook/money"
)

// Bot represents a trading agent that can be run under a supervisor.
type Bot interface {
	Start(ctx context.Context, s *Session)
}

// Session gives bots a rate-limited view of one instrument's book. It keeps
// track of which resting tradables each bot placed so they can be cancelled
// later without knowing the side.
type Session struct {
	registry  *engine.Registry
	symbol    string
	tickCents int64
	throttle  <-chan time.Time
	log       *zap.Logger

	mu    sync.Mutex
	sides map[string]engine.Side
}

// NewSession wraps a registry for one symbol. A nil throttle channel disables
// rate limiting.
func NewSession(registry *engine.Registry, symbol string, tickCents int64, throttle <-chan time.Time, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		registry:  registry,
		symbol:    symbol,
		tickCents: tickCents,
		throttle:  throttle,
		log:       log,
		sides:     make(map[string]engine.Side),
	}
}

// Symbol returns the instrument this session trades.
func (s *Session) Symbol() string { return s.symbol }

// TickCents returns the price increment bots quote in.
func (s *Session) TickCents() int64 { return s.tickCents }

func (s *Session) waitThrottle(ctx context.Context) error {
	if s.throttle == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.throttle:
		return nil
	}
}

// Place submits a limit tradable and remembers its side for later cancels.
// Prices are snapped down to the tick grid.
func (s *Session) Place(ctx context.Context, user string, priceCents int64, volume int, side engine.Side) (string, error) {
	if err := s.waitThrottle(ctx); err != nil {
		return "", err
	}
	if s.tickCents > 0 && priceCents%s.tickCents != 0 {
		priceCents = (priceCents / s.tickCents) * s.tickCents
	}
	order, err := engine.NewOrder(user, s.symbol, money.FromCents(priceCents), volume, side)
	if err != nil {
		return "", err
	}
	snap, err := s.registry.AddTradable(order)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sides[snap.ID] = side
	s.mu.Unlock()
	return snap.ID, nil
}

// Cancel pulls a tradable previously placed through this session. Unknown or
// already-gone IDs are silently ignored.
func (s *Session) Cancel(ctx context.Context, id string) error {
	if err := s.waitThrottle(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	side, ok := s.sides[id]
	delete(s.sides, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	_, _, err := s.registry.Cancel(s.symbol, side, id)
	return err
}

// Quote replaces the user's two-sided quote on the book.
func (s *Session) Quote(ctx context.Context, user string, buyCents int64, buyVolume int, sellCents int64, sellVolume int) error {
	if err := s.waitThrottle(ctx); err != nil {
		return err
	}
	quote, err := engine.NewQuote(user, s.symbol, money.FromCents(buyCents), buyVolume, money.FromCents(sellCents), sellVolume)
	if err != nil {
		return err
	}
	_, err = s.registry.AddQuote(quote)
	return err
}

// PullQuote removes both legs of the user's quote.
func (s *Session) PullQuote(ctx context.Context, user string) error {
	if err := s.waitThrottle(ctx); err != nil {
		return err
	}
	_, err := s.registry.CancelQuote(s.symbol, user)
	return err
}

// Mid returns the midpoint of the current market in cents. With only one side
// present it returns that side's price; with an empty book ok is false.
func (s *Session) Mid() (int64, bool) {
	return midCents(s.top(engine.Buy), s.top(engine.Sell))
}

func (s *Session) top(side engine.Side) int64 {
	top, ok, err := s.registry.TopOfBook(s.symbol, side)
	if err != nil || !ok {
		return 0
	}
	return top.Price.Cents()
}
