// Package users is the bookkeeping collaborator: it records the latest
// snapshot of every tradable it is notified about, per user, plus the latest
// current market per symbol. It holds copies only and never touches live
// book state.
package users

import (
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"quotebook/engine"
	"quotebook/market"
)

var userPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// MarketPair is the latest published market for one symbol.
type MarketPair struct {
	Buy  market.Side
	Sell market.Side
}

// User tracks one user's tradables and the markets they watch. A User is a
// market.Subscriber.
type User struct {
	id string

	mu        sync.Mutex
	tradables map[string]engine.TradableSnapshot
	markets   map[string]MarketPair
}

// NewUser validates the user code and builds an empty record.
func NewUser(id string) (*User, error) {
	if !userPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: user must be a 3-letter uppercase code, got %q", engine.ErrInvalidArgument, id)
	}
	return &User{
		id:        id,
		tradables: make(map[string]engine.TradableSnapshot),
		markets:   make(map[string]MarketPair),
	}, nil
}

// ID returns the user code.
func (u *User) ID() string { return u.id }

// recordTradable stores the latest snapshot, keyed by tradable id.
func (u *User) recordTradable(snap engine.TradableSnapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tradables[snap.ID] = snap
}

// OnMarketUpdate stores the latest market for the symbol.
func (u *User) OnMarketUpdate(symbol string, buy, sell market.Side) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.markets[symbol] = MarketPair{Buy: buy, Sell: sell}
}

// Tradables returns a copy of the user's latest tradable snapshots.
func (u *User) Tradables() map[string]engine.TradableSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]engine.TradableSnapshot, len(u.tradables))
	for id, snap := range u.tradables {
		out[id] = snap
	}
	return out
}

// CurrentMarkets returns a copy of the latest market seen per symbol.
func (u *User) CurrentMarkets() map[string]MarketPair {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]MarketPair, len(u.markets))
	for symbol, pair := range u.markets {
		out[symbol] = pair
	}
	return out
}

// Store holds every known user. It implements engine.TradableRecorder; an
// update for an unknown user is an error the engine surfaces to its caller.
type Store struct {
	mu    sync.RWMutex
	users map[string]*User
	log   *zap.Logger
}

// NewStore builds a store preloaded with the given user codes. Invalid codes
// are skipped with a log line rather than failing the whole set.
func NewStore(log *zap.Logger, ids ...string) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{users: make(map[string]*User), log: log}
	for _, id := range ids {
		if _, err := s.Add(id); err != nil {
			log.Warn("skipping invalid user id", zap.String("user", id), zap.Error(err))
		}
	}
	return s
}

// Add registers a new user.
func (s *Store) Add(id string) (*User, error) {
	user, err := NewUser(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[id]; ok {
		return existing, nil
	}
	s.users[id] = user
	return user, nil
}

// Get returns the user with the given code.
func (s *Store) Get(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", engine.ErrNotFound, id)
	}
	return user, nil
}

// RecordTradable stores the latest snapshot of a tradable for a user.
func (s *Store) RecordTradable(user string, snap engine.TradableSnapshot) error {
	u, err := s.Get(user)
	if err != nil {
		return err
	}
	u.recordTradable(snap)
	return nil
}

var (
	_ engine.TradableRecorder = (*Store)(nil)
	_ market.Subscriber       = (*User)(nil)
)
