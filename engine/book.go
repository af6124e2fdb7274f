package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quotebook/money"
)

type requestType int

const (
	requestAdd requestType = iota
	requestAddQuote
	requestCancel
	requestRemoveQuotes
	requestTop
	requestSnapshot
	requestStop
)

type bookRequest struct {
	typ      requestType
	tradable *Tradable
	quote    *Quote
	side     Side
	id       string
	user     string
	resp     chan bookResponse
}

type bookResponse struct {
	snap  TradableSnapshot
	snaps []TradableSnapshot
	found bool
	top   TopOfBook
	view  BookSnapshot
	err   error
}

// Book owns both sides of one instrument's order book. All operations are
// serialized by a single worker goroutine, so the read-then-mutate trade
// loop never observes interleaved mutation; different instruments run fully
// in parallel. After every public mutation the current market is recomputed
// and pushed to the market updater, so subscribers never observe a stale top
// of book once a call returns.
//
// Market subscribers must not call back into the same Book from their
// notification callback.
type Book struct {
	symbol string
	buy    *BookSide
	sell   *BookSide
	market MarketUpdater
	log    *zap.Logger
	reqCh  chan bookRequest
}

// NewBook validates the symbol, builds both sides, and launches the worker
// loop. recorder and market may be nil to disable the respective
// notifications.
func NewBook(symbol string, recorder TradableRecorder, market MarketUpdater, log *zap.Logger) (*Book, error) {
	if !productPattern.MatchString(symbol) {
		return nil, fmt.Errorf("%w: product symbol must be 1-5 characters of [A-Z0-9.], got %q", ErrInvalidArgument, symbol)
	}
	if log == nil {
		log = zap.NewNop()
	}
	b := &Book{
		symbol: symbol,
		buy:    NewBookSide(Buy, recorder, log),
		sell:   NewBookSide(Sell, recorder, log),
		market: market,
		log:    log,
		reqCh:  make(chan bookRequest),
	}
	go b.run()
	return b, nil
}

// Symbol returns the instrument symbol this book trades.
func (b *Book) Symbol() string { return b.symbol }

// Add inserts a tradable, runs the trade loop, and republishes the market.
// The returned snapshot is of the submitted tradable and already reflects
// any fills applied by the trade loop.
func (b *Book) Add(t *Tradable) (TradableSnapshot, error) {
	r := b.send(bookRequest{typ: requestAdd, tradable: t})
	return r.snap, r.err
}

// AddQuote first removes the user's existing resting quote legs on both
// sides, then inserts both new legs, runs the trade loop once, and
// republishes the market. Both post-trade snapshots are returned.
func (b *Book) AddQuote(q *Quote) ([]TradableSnapshot, error) {
	r := b.send(bookRequest{typ: requestAddQuote, quote: q})
	return r.snaps, r.err
}

// Cancel cancels the tradable with the given id on the given side. The
// market is republished whether or not the id was found; a miss is reported
// through found, not an error.
func (b *Book) Cancel(side Side, id string) (snap TradableSnapshot, found bool, err error) {
	r := b.send(bookRequest{typ: requestCancel, side: side, id: id})
	return r.snap, r.found, r.err
}

// RemoveQuotesForUser cancels the user's resting quote leg on each side and
// republishes the market. The returned snapshots cover the legs actually
// cancelled (possibly none). An empty user name is a reportable no-op.
func (b *Book) RemoveQuotesForUser(user string) ([]TradableSnapshot, error) {
	r := b.send(bookRequest{typ: requestRemoveQuotes, user: user})
	return r.snaps, r.err
}

// TopOfBook returns the best price and aggregate volume for one side. ok is
// false when the side is empty.
func (b *Book) TopOfBook(side Side) (top TopOfBook, ok bool) {
	r := b.send(bookRequest{typ: requestTop, side: side})
	return r.top, r.found
}

// Snapshot returns a full copy of both sides, levels in priority order.
func (b *Book) Snapshot() BookSnapshot {
	return b.send(bookRequest{typ: requestSnapshot}).view
}

// Stop terminates the worker loop. The book must not be used afterwards.
func (b *Book) Stop() {
	b.reqCh <- bookRequest{typ: requestStop}
}

func (b *Book) send(req bookRequest) bookResponse {
	req.resp = make(chan bookResponse, 1)
	b.reqCh <- req
	return <-req.resp
}

func (b *Book) run() {
	for req := range b.reqCh {
		switch req.typ {
		case requestAdd:
			req.resp <- b.processAdd(req.tradable)
		case requestAddQuote:
			req.resp <- b.processAddQuote(req.quote)
		case requestCancel:
			req.resp <- b.processCancel(req.side, req.id)
		case requestRemoveQuotes:
			req.resp <- b.processRemoveQuotes(req.user)
		case requestTop:
			side := b.sideFor(req.side)
			price, ok := side.TopOfBookPrice()
			req.resp <- bookResponse{top: TopOfBook{Price: price, Volume: side.TopOfBookVolume()}, found: ok}
		case requestSnapshot:
			req.resp <- bookResponse{view: b.snapshotView()}
		case requestStop:
			close(b.reqCh)
			return
		}
	}
}

func (b *Book) sideFor(side Side) *BookSide {
	if side == Buy {
		return b.buy
	}
	return b.sell
}

func (b *Book) processAdd(t *Tradable) bookResponse {
	if t == nil {
		return bookResponse{err: fmt.Errorf("%w: nil tradable", ErrValidation)}
	}
	if t.product != b.symbol {
		return bookResponse{err: fmt.Errorf("%w: tradable symbol %s does not match book %s", ErrValidation, t.product, b.symbol)}
	}

	var errs []error
	if _, err := b.sideFor(t.side).Add(t); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, b.tryTrade()...)
	b.updateMarket()
	return bookResponse{snap: t.Snapshot(), err: errors.Join(errs...)}
}

func (b *Book) processAddQuote(q *Quote) bookResponse {
	if q == nil {
		return bookResponse{err: fmt.Errorf("%w: nil quote", ErrValidation)}
	}
	if q.product != b.symbol {
		return bookResponse{err: fmt.Errorf("%w: quote symbol %s does not match book %s", ErrValidation, q.product, b.symbol)}
	}

	var errs []error
	if _, _, err := b.buy.RemoveQuotesForUser(q.user); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := b.sell.RemoveQuotesForUser(q.user); err != nil {
		errs = append(errs, err)
	}
	if _, err := b.buy.Add(q.buy); err != nil {
		errs = append(errs, err)
	}
	if _, err := b.sell.Add(q.sell); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, b.tryTrade()...)
	b.updateMarket()
	return bookResponse{
		snaps: []TradableSnapshot{q.buy.Snapshot(), q.sell.Snapshot()},
		err:   errors.Join(errs...),
	}
}

func (b *Book) processCancel(side Side, id string) bookResponse {
	snap, found, err := b.sideFor(side).Cancel(id)
	if !found {
		b.log.Info("cancel miss", zap.String("symbol", b.symbol), zap.Stringer("side", side), zap.String("id", id))
	}
	b.updateMarket()
	return bookResponse{snap: snap, found: found, err: err}
}

func (b *Book) processRemoveQuotes(user string) bookResponse {
	if user == "" {
		b.log.Info("quote removal for empty user ignored", zap.String("symbol", b.symbol))
		return bookResponse{}
	}

	var snaps []TradableSnapshot
	var errs []error
	for _, side := range []*BookSide{b.buy, b.sell} {
		snap, found, err := side.RemoveQuotesForUser(user)
		if found {
			snaps = append(snaps, snap)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(snaps) == 0 {
		b.log.Info("no resting quotes for user", zap.String("symbol", b.symbol), zap.String("user", user))
	}
	b.updateMarket()
	return bookResponse{snaps: snaps, err: errors.Join(errs...)}
}

// tryTrade is the cross-detection loop. While the best sell price is at or
// below the best buy price it trades min(buyTopVolume, sellTopVolume) out of
// both sides at the buy side's top price. Each iteration strictly reduces
// resting volume at the crossing levels, so the loop terminates.
func (b *Book) tryTrade() []error {
	var errs []error
	for {
		buyTop, okBuy := b.buy.TopOfBookPrice()
		sellTop, okSell := b.sell.TopOfBookPrice()
		if !okBuy || !okSell {
			return errs
		}
		crossed, err := sellTop.LessOrEqual(buyTop)
		if err != nil {
			// Defensive: a vanished price mid-loop aborts the loop
			// rather than corrupting book state.
			b.log.Error("cross detection failed", zap.String("symbol", b.symbol), zap.Error(err))
			return errs
		}
		if !crossed {
			return errs
		}

		volume := min(b.buy.TopOfBookVolume(), b.sell.TopOfBookVolume())
		if err := b.buy.TradeOut(buyTop, volume); err != nil {
			errs = append(errs, err)
		}
		if err := b.sell.TradeOut(buyTop, volume); err != nil {
			errs = append(errs, err)
		}
	}
}

func (b *Book) updateMarket() {
	if b.market == nil {
		return
	}
	buyPrice, ok := b.buy.TopOfBookPrice()
	if !ok {
		buyPrice = money.FromCents(0)
	}
	sellPrice, ok := b.sell.TopOfBookPrice()
	if !ok {
		sellPrice = money.FromCents(0)
	}
	b.market.UpdateMarket(b.symbol, buyPrice, b.buy.TopOfBookVolume(), sellPrice, b.sell.TopOfBookVolume())
}

func (b *Book) snapshotView() BookSnapshot {
	return BookSnapshot{
		Symbol: b.symbol,
		Buy:    b.buy.levelSnapshots(),
		Sell:   b.sell.levelSnapshots(),
	}
}
