package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps instrument symbols to their books and routes every
// caller-facing request to the right one. Lookups may run concurrently;
// adding a product is serialized against them.
type Registry struct {
	mu       sync.RWMutex
	books    map[string]*Book
	recorder TradableRecorder
	market   MarketUpdater
	log      *zap.Logger
}

// NewRegistry builds an empty registry. Every book it creates shares the
// given recorder and market updater.
func NewRegistry(recorder TradableRecorder, market MarketUpdater, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		books:    make(map[string]*Book),
		recorder: recorder,
		market:   market,
		log:      log,
	}
}

// AddProduct creates a book for the symbol. Adding an existing symbol is a
// no-op.
func (r *Registry) AddProduct(symbol string) error {
	if !productPattern.MatchString(symbol) {
		return fmt.Errorf("%w: product symbol must be 1-5 characters of [A-Z0-9.], got %q", ErrInvalidArgument, symbol)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.books[symbol]; exists {
		return nil
	}
	book, err := NewBook(symbol, r.recorder, r.market, r.log)
	if err != nil {
		return err
	}
	r.books[symbol] = book
	r.log.Info("product added", zap.String("symbol", symbol))
	return nil
}

func (r *Registry) book(symbol string) (*Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: product %q", ErrNotFound, symbol)
	}
	return book, nil
}

// Symbols returns every registered symbol, sorted.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.books))
	for symbol := range r.books {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// AddTradable routes a tradable to its book and forwards the resulting
// snapshot to the bookkeeping collaborator.
func (r *Registry) AddTradable(t *Tradable) (TradableSnapshot, error) {
	if t == nil {
		return TradableSnapshot{}, fmt.Errorf("%w: nil tradable", ErrValidation)
	}
	book, err := r.book(t.Product())
	if err != nil {
		return TradableSnapshot{}, err
	}
	snap, err := book.Add(t)
	return snap, errors.Join(err, r.forward(snap))
}

// AddQuote routes a quote to its book and forwards both leg snapshots to the
// bookkeeping collaborator.
func (r *Registry) AddQuote(q *Quote) ([]TradableSnapshot, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil quote", ErrValidation)
	}
	book, err := r.book(q.Symbol())
	if err != nil {
		return nil, err
	}
	snaps, err := book.AddQuote(q)
	errs := []error{err}
	for _, snap := range snaps {
		errs = append(errs, r.forward(snap))
	}
	return snaps, errors.Join(errs...)
}

// Cancel cancels a tradable by symbol, side, and id. A miss is reported
// through found, not an error.
func (r *Registry) Cancel(symbol string, side Side, id string) (snap TradableSnapshot, found bool, err error) {
	book, err := r.book(symbol)
	if err != nil {
		return TradableSnapshot{}, false, err
	}
	snap, found, err = book.Cancel(side, id)
	if !found {
		return snap, false, err
	}
	return snap, true, errors.Join(err, r.forward(snap))
}

// CancelQuote removes the user's resting quote legs from both sides of the
// symbol's book.
func (r *Registry) CancelQuote(symbol, user string) ([]TradableSnapshot, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: empty user", ErrValidation)
	}
	book, err := r.book(symbol)
	if err != nil {
		return nil, err
	}
	snaps, err := book.RemoveQuotesForUser(user)
	errs := []error{err}
	for _, snap := range snaps {
		errs = append(errs, r.forward(snap))
	}
	return snaps, errors.Join(errs...)
}

// TopOfBook returns the best price level for one side of a symbol's book.
func (r *Registry) TopOfBook(symbol string, side Side) (TopOfBook, bool, error) {
	book, err := r.book(symbol)
	if err != nil {
		return TopOfBook{}, false, err
	}
	top, ok := book.TopOfBook(side)
	return top, ok, nil
}

// BookSnapshot returns a full copy of a symbol's book.
func (r *Registry) BookSnapshot(symbol string) (BookSnapshot, error) {
	book, err := r.book(symbol)
	if err != nil {
		return BookSnapshot{}, err
	}
	return book.Snapshot(), nil
}

// Close stops every book's worker loop.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, book := range r.books {
		book.Stop()
	}
	r.books = make(map[string]*Book)
}

func (r *Registry) forward(snap TradableSnapshot) error {
	if r.recorder == nil {
		return nil
	}
	return r.recorder.RecordTradable(snap.User, snap)
}
