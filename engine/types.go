package engine

import (
	"errors"
	"fmt"

	"quotebook/money"
)

// Common engine errors. Callers dispatch with errors.Is.
var (
	// ErrInvalidArgument reports a malformed user code, product symbol,
	// side, or volume.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports an unknown symbol or user.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports a composite business-rule violation, e.g. a
	// nil tradable or quote handed to the registry.
	ErrValidation = errors.New("validation failure")
)

// Side represents the direction of resting interest.
type Side int

const (
	// Buy indicates bid-side interest.
	Buy Side = iota
	// Sell indicates ask-side interest.
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

func validSide(s Side) bool { return s == Buy || s == Sell }

// Kind discriminates the two tradable variants.
type Kind int

const (
	// KindOrder is a single-sided resting order.
	KindOrder Kind = iota
	// KindQuoteLeg is one leg of a two-sided quote.
	KindQuoteLeg
)

func (k Kind) String() string {
	switch k {
	case KindOrder:
		return "order"
	case KindQuoteLeg:
		return "quote"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// TradableSnapshot is an immutable copy of a tradable's state, safe to hand
// to external collaborators. Book entries remain the source of truth.
type TradableSnapshot struct {
	ID              string
	User            string
	Product         string
	Price           money.Money
	Side            Side
	Kind            Kind
	OriginalVolume  int
	RemainingVolume int
	CancelledVolume int
	FilledVolume    int
}

func (s TradableSnapshot) String() string {
	return fmt.Sprintf("%s %s %s for %s: %s, Orig Vol: %d, Rem Vol: %d, Fill Vol: %d, CXL Vol: %d, ID: %s",
		s.User, s.Side, s.Kind, s.Product, s.Price,
		s.OriginalVolume, s.RemainingVolume, s.FilledVolume, s.CancelledVolume, s.ID)
}

// TopOfBook is the best price level of one side and the aggregate remaining
// volume resting there.
type TopOfBook struct {
	Price  money.Money
	Volume int
}

// LevelSnapshot is one price level of a book view.
type LevelSnapshot struct {
	Price     money.Money
	Volume    int
	Tradables []TradableSnapshot
}

// BookSnapshot is a full copy of both sides of a book, levels in priority
// order (best first).
type BookSnapshot struct {
	Symbol string
	Buy    []LevelSnapshot
	Sell   []LevelSnapshot
}

// TradableRecorder receives the latest snapshot of a tradable after every
// mutation. Implementations are the user bookkeeping collaborator; a failure
// (unknown user) is surfaced to the engine's caller, never swallowed.
type TradableRecorder interface {
	RecordTradable(user string, snap TradableSnapshot) error
}

// MarketUpdater receives both tops of book after every public book mutation.
type MarketUpdater interface {
	UpdateMarket(symbol string, buyPrice money.Money, buyVolume int, sellPrice money.Money, sellVolume int)
}
