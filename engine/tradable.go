package engine

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"quotebook/money"
)

var (
	userPattern    = regexp.MustCompile(`^[A-Z]{3}$`)
	productPattern = regexp.MustCompile(`^[A-Z0-9.]{1,5}$`)
)

const (
	minVolume = 1
	maxVolume = 9999
)

// Tradable is one piece of resting interest: a single-sided order or one leg
// of a two-sided quote, discriminated by Kind. A Tradable is owned by the
// book side it rests on; external parties only ever see snapshots.
//
// Invariant after every mutation:
// original == remaining + cancelled + filled.
type Tradable struct {
	id        string
	user      string
	product   string
	price     money.Money
	side      Side
	kind      Kind
	original  int
	remaining int
	cancelled int
	filled    int
}

// NewOrder builds a resting order after validating all fields.
func NewOrder(user, product string, price money.Money, volume int, side Side) (*Tradable, error) {
	return newTradable(user, product, price, volume, side, KindOrder)
}

func newTradable(user, product string, price money.Money, volume int, side Side, kind Kind) (*Tradable, error) {
	if !userPattern.MatchString(user) {
		return nil, fmt.Errorf("%w: user must be a 3-letter uppercase code, got %q", ErrInvalidArgument, user)
	}
	if !productPattern.MatchString(product) {
		return nil, fmt.Errorf("%w: product symbol must be 1-5 characters of [A-Z0-9.], got %q", ErrInvalidArgument, product)
	}
	if !price.Valid() {
		return nil, fmt.Errorf("%w: tradable requires a price", money.ErrInvalidMoney)
	}
	if !validSide(side) {
		return nil, fmt.Errorf("%w: side must be Buy or Sell", ErrInvalidArgument)
	}
	if volume < minVolume || volume > maxVolume {
		return nil, fmt.Errorf("%w: volume must be in [%d, %d], got %d", ErrInvalidArgument, minVolume, maxVolume, volume)
	}
	return &Tradable{
		id:        newTradableID(user, product, price),
		user:      user,
		product:   product,
		price:     price,
		side:      side,
		kind:      kind,
		original:  volume,
		remaining: volume,
	}, nil
}

// newTradableID builds a process-unique identifier. The uuid suffix rules
// out collisions between tradables sharing user, product, and price.
func newTradableID(user, product string, price money.Money) string {
	return fmt.Sprintf("%s-%s-%d-%s", user, product, price.Cents(), uuid.NewString())
}

// ID returns the tradable's unique identifier. Identity, equality, and
// hashing are id-based, not structural.
func (t *Tradable) ID() string { return t.id }

// User returns the owning user code.
func (t *Tradable) User() string { return t.user }

// Product returns the instrument symbol.
func (t *Tradable) Product() string { return t.product }

// Price returns the limit price.
func (t *Tradable) Price() money.Money { return t.price }

// Side returns the book side the tradable rests on.
func (t *Tradable) Side() Side { return t.side }

// Kind reports whether this is an order or a quote leg.
func (t *Tradable) Kind() Kind { return t.kind }

// RemainingVolume returns the volume still resting on the book.
func (t *Tradable) RemainingVolume() int { return t.remaining }

// fill moves qty from remaining to filled. Callers cap qty at remaining so
// the volume accounting invariant is preserved.
func (t *Tradable) fill(qty int) {
	t.remaining -= qty
	t.filled += qty
}

// cancelRemaining moves the entire remaining volume to cancelled.
func (t *Tradable) cancelRemaining() {
	t.cancelled += t.remaining
	t.remaining = 0
}

// Snapshot returns an immutable copy of the tradable's current state.
func (t *Tradable) Snapshot() TradableSnapshot {
	return TradableSnapshot{
		ID:              t.id,
		User:            t.user,
		Product:         t.product,
		Price:           t.price,
		Side:            t.side,
		Kind:            t.kind,
		OriginalVolume:  t.original,
		RemainingVolume: t.remaining,
		CancelledVolume: t.cancelled,
		FilledVolume:    t.filled,
	}
}

func (t *Tradable) String() string { return t.Snapshot().String() }

// Quote pairs one buy-side and one sell-side quote leg for a user on one
// instrument. The Quote itself never rests on the book, only its legs do.
// Both legs are validated before either is constructed, so inserting a quote
// is all-or-nothing.
type Quote struct {
	user    string
	product string
	buy     *Tradable
	sell    *Tradable
}

// NewQuote builds both quote legs after validating all fields of both.
func NewQuote(user, product string, buyPrice money.Money, buyVolume int, sellPrice money.Money, sellVolume int) (*Quote, error) {
	buy, err := newTradable(user, product, buyPrice, buyVolume, Buy, KindQuoteLeg)
	if err != nil {
		return nil, fmt.Errorf("buy side: %w", err)
	}
	sell, err := newTradable(user, product, sellPrice, sellVolume, Sell, KindQuoteLeg)
	if err != nil {
		return nil, fmt.Errorf("sell side: %w", err)
	}
	return &Quote{user: user, product: product, buy: buy, sell: sell}, nil
}

// User returns the quoting user code.
func (q *Quote) User() string { return q.user }

// Symbol returns the quoted instrument symbol.
func (q *Quote) Symbol() string { return q.product }

// Leg returns the quote leg for the given side.
func (q *Quote) Leg(side Side) *Tradable {
	if side == Buy {
		return q.buy
	}
	return q.sell
}
