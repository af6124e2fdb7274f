package engine

import (
	"errors"
	"fmt"

	"github.com/google/btree"
	"go.uber.org/zap"

	"quotebook/money"
)

const priceLevelsBTreeDegree = 16

// bookLevel is one price level: a FIFO queue of tradables resting at the
// same price. Queue order is arrival order.
type bookLevel struct {
	price money.Money
	queue []*Tradable
}

func (l *bookLevel) volume() int {
	total := 0
	for _, t := range l.queue {
		total += t.remaining
	}
	return total
}

// BookSide holds one side of an instrument's book. Price levels live in a
// btree whose comparator is chosen at construction so that Min() is always
// the top of book: descending for the buy side, ascending for the sell side.
// An empty level is deleted the moment its queue drains.
//
// BookSide is not safe for concurrent use; the owning Book serializes access.
type BookSide struct {
	side     Side
	levels   *btree.BTreeG[*bookLevel]
	recorder TradableRecorder
	log      *zap.Logger
}

// NewBookSide builds an empty side. A nil recorder disables bookkeeping
// notifications; a nil logger is replaced with a no-op logger.
func NewBookSide(side Side, recorder TradableRecorder, log *zap.Logger) *BookSide {
	if log == nil {
		log = zap.NewNop()
	}
	less := func(a, b *bookLevel) bool { return a.price.Cents() < b.price.Cents() }
	if side == Buy {
		less = func(a, b *bookLevel) bool { return a.price.Cents() > b.price.Cents() }
	}
	return &BookSide{
		side:     side,
		levels:   btree.NewG(priceLevelsBTreeDegree, less),
		recorder: recorder,
		log:      log,
	}
}

// Add appends t to the tail of the queue at its price, creating the level if
// absent, and notifies the bookkeeping collaborator. The returned snapshot
// reflects the tradable as inserted.
func (s *BookSide) Add(t *Tradable) (TradableSnapshot, error) {
	level, ok := s.levels.Get(&bookLevel{price: t.price})
	if !ok {
		level = &bookLevel{price: t.price}
		s.levels.ReplaceOrInsert(level)
	}
	level.queue = append(level.queue, t)
	return t.Snapshot(), s.record(t)
}

// Cancel looks for the tradable with the given id, scanning levels in
// priority order and each queue in FIFO order. On a hit the entire remaining
// volume moves to cancelled and the entry (and, if emptied, its level) is
// removed. A miss is not an error: found is false and the caller may report
// it.
func (s *BookSide) Cancel(id string) (snap TradableSnapshot, found bool, err error) {
	var hit *Tradable
	var hitLevel *bookLevel
	s.levels.Ascend(func(l *bookLevel) bool {
		for _, t := range l.queue {
			if t.id == id {
				hit, hitLevel = t, l
				return false
			}
		}
		return true
	})
	if hit == nil {
		return TradableSnapshot{}, false, nil
	}

	hit.cancelRemaining()
	s.removeFromLevel(hitLevel, hit)
	s.log.Info("cancelled tradable",
		zap.String("id", hit.id),
		zap.String("user", hit.user),
		zap.Stringer("side", s.side),
		zap.Stringer("kind", hit.kind),
		zap.Int("cancelledVolume", hit.cancelled))
	return hit.Snapshot(), true, s.record(hit)
}

// RemoveQuotesForUser cancels the first tradable owned by user, in priority
// then FIFO order. Only the first match is removed: each user is expected to
// hold at most one resting quote leg per side at a time.
func (s *BookSide) RemoveQuotesForUser(user string) (TradableSnapshot, bool, error) {
	var hit *Tradable
	s.levels.Ascend(func(l *bookLevel) bool {
		for _, t := range l.queue {
			if t.user == user {
				hit = t
				return false
			}
		}
		return true
	})
	if hit == nil {
		return TradableSnapshot{}, false, nil
	}
	return s.Cancel(hit.id)
}

// TopOfBookPrice returns the best price level's price. ok is false when the
// side is empty.
func (s *BookSide) TopOfBookPrice() (price money.Money, ok bool) {
	best, ok := s.levels.Min()
	if !ok {
		return money.Money{}, false
	}
	return best.price, true
}

// TopOfBookVolume returns the sum of remaining volumes at the best price
// level, or 0 when the side is empty.
func (s *BookSide) TopOfBookVolume() int {
	best, ok := s.levels.Min()
	if !ok {
		return 0
	}
	return best.volume()
}

// TradeOut allocates volumeToTrade against the best price level. It is a
// no-op when the side is empty or its best price is worse than price.
//
// When the incoming volume covers the whole level, every resting tradable is
// fully filled and the level is removed. Otherwise volume is split pro-rata
// in FIFO order: each tradable gets ceil(remaining/levelVolume *
// volumeToTrade), capped by its own remaining volume and by what is left to
// distribute, so ceiling rounding favors earlier arrivals and the last
// tradable processed may receive less than its proportional share.
func (s *BookSide) TradeOut(price money.Money, volumeToTrade int) error {
	best, ok := s.levels.Min()
	if !ok {
		return nil
	}
	worse, err := s.worseThan(best.price, price)
	if err != nil {
		// A price comparison can only fail here if a tradable rested
		// without a price, which construction rules out. Report and
		// leave the book untouched.
		s.log.Error("trade-out price comparison failed", zap.Stringer("side", s.side), zap.Error(err))
		return nil
	}
	if worse {
		return nil
	}

	levelVolume := best.volume()
	var errs []error

	if volumeToTrade >= levelVolume {
		for _, t := range best.queue {
			qty := t.remaining
			t.fill(qty)
			s.logFill("full fill", t, qty)
			if err := s.record(t); err != nil {
				errs = append(errs, err)
			}
		}
		best.queue = nil
		s.levels.Delete(best)
		return errors.Join(errs...)
	}

	remainder := volumeToTrade
	survivors := best.queue[:0]
	for _, t := range best.queue {
		if remainder == 0 {
			survivors = append(survivors, t)
			continue
		}
		qty := ceilDiv(t.remaining*volumeToTrade, levelVolume)
		if qty > remainder {
			qty = remainder
		}
		if qty > t.remaining {
			qty = t.remaining
		}
		t.fill(qty)
		remainder -= qty
		if t.remaining == 0 {
			s.logFill("full fill", t, qty)
		} else {
			s.logFill("partial fill", t, qty)
			survivors = append(survivors, t)
		}
		if err := s.record(t); err != nil {
			errs = append(errs, err)
		}
	}
	best.queue = survivors
	if len(best.queue) == 0 {
		s.levels.Delete(best)
	}
	return errors.Join(errs...)
}

// worseThan reports whether a resting price is worse than the trade price
// for this side: lower for buys, higher for sells.
func (s *BookSide) worseThan(resting, price money.Money) (bool, error) {
	if s.side == Buy {
		return resting.LessThan(price)
	}
	return resting.GreaterThan(price)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func (s *BookSide) logFill(event string, t *Tradable, qty int) {
	s.log.Info(event,
		zap.String("user", t.user),
		zap.Stringer("side", t.side),
		zap.Stringer("kind", t.kind),
		zap.String("product", t.product),
		zap.Stringer("price", t.price),
		zap.Int("fillVolume", qty),
		zap.Int("remainingVolume", t.remaining),
		zap.Int("filledVolume", t.filled),
		zap.String("id", t.id))
}

func (s *BookSide) record(t *Tradable) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.RecordTradable(t.user, t.Snapshot()); err != nil {
		s.log.Warn("tradable bookkeeping failed",
			zap.String("user", t.user),
			zap.String("id", t.id),
			zap.Error(err))
		return fmt.Errorf("record tradable %s: %w", t.id, err)
	}
	return nil
}

func (s *BookSide) removeFromLevel(level *bookLevel, t *Tradable) {
	for i, cur := range level.queue {
		if cur == t {
			level.queue = append(level.queue[:i], level.queue[i+1:]...)
			break
		}
	}
	if len(level.queue) == 0 {
		s.levels.Delete(level)
	}
}

// levelSnapshots copies every level, best first.
func (s *BookSide) levelSnapshots() []LevelSnapshot {
	var out []LevelSnapshot
	s.levels.Ascend(func(l *bookLevel) bool {
		snap := LevelSnapshot{Price: l.price, Volume: l.volume()}
		for _, t := range l.queue {
			snap.Tradables = append(snap.Tradables, t.Snapshot())
		}
		out = append(out, snap)
		return true
	})
	return out
}
