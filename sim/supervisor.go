package sim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quotebook/engine"
	"quotebook/users"
)

// Supervisor runs a default swarm of bots against one book through a shared
// throttled session and periodically logs each bot's fill totals.
type Supervisor struct {
	bots     []Bot
	session  *Session
	store    *users.Store
	userIDs  []string
	log      *zap.Logger
	throttle *time.Ticker
}

// NewSupervisor builds the swarm: two bid bots, two ask bots, and a quoter.
// The three user codes identify the bid, ask, and quoting accounts in the
// store.
func NewSupervisor(registry *engine.Registry, store *users.Store, symbol string, tickCents int64, orderInterval time.Duration, log *zap.Logger, bidUser, askUser, quoteUser string) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	throttle := time.NewTicker(orderInterval)
	session := NewSession(registry, symbol, tickCents, throttle.C, log)
	bots := []Bot{
		NewRandomBidBot(bidUser),
		NewRandomAskBot(askUser),
		NewRandomBidBot(bidUser),
		NewRandomAskBot(askUser),
		NewQuoterBot(quoteUser),
	}
	return &Supervisor{
		bots:     bots,
		session:  session,
		store:    store,
		userIDs:  []string{bidUser, askUser, quoteUser},
		log:      log,
		throttle: throttle,
	}
}

// Start launches all bots and blocks until the context is cancelled.
func (s *Supervisor) Start(ctx context.Context) {
	logTicker := time.NewTicker(2 * time.Second)
	defer logTicker.Stop()
	defer s.throttle.Stop()

	for _, bot := range s.bots {
		b := bot
		go b.Start(ctx, s.session)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-logTicker.C:
			s.logPositions()
		}
	}
}

// logPositions reports each bot account's net position and notional traded,
// derived from the fill totals the store has recorded.
func (s *Supervisor) logPositions() {
	for _, id := range s.userIDs {
		user, err := s.store.Get(id)
		if err != nil {
			continue
		}
		var position int
		var notionalCents int64
		for _, snap := range user.Tradables() {
			filled := snap.FilledVolume
			if filled == 0 {
				continue
			}
			if snap.Side == engine.Buy {
				position += filled
				notionalCents -= snap.Price.Cents() * int64(filled)
			} else {
				position -= filled
				notionalCents += snap.Price.Cents() * int64(filled)
			}
		}
		s.log.Info("bot position",
			zap.String("user", id),
			zap.Int("position", position),
			zap.Int64("notional_cents", notionalCents),
		)
	}
}
