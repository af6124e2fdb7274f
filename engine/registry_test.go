package engine

import (
	"errors"
	"testing"
)

func newTestRegistry(t *testing.T) (*Registry, *captureRecorder, *captureMarket) {
	t.Helper()
	rec := &captureRecorder{}
	mkt := &captureMarket{}
	reg := NewRegistry(rec, mkt, nil)
	t.Cleanup(reg.Close)
	return reg, rec, mkt
}

func TestAddProduct(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	if err := reg.AddProduct("TGT"); err != nil {
		t.Fatalf("add product: %v", err)
	}
	// Idempotent.
	if err := reg.AddProduct("TGT"); err != nil {
		t.Fatalf("re-add product: %v", err)
	}
	if err := reg.AddProduct("toolong"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	if got := reg.Symbols(); len(got) != 1 || got[0] != "TGT" {
		t.Fatalf("unexpected symbols %v", got)
	}
}

func TestUnknownSymbolIsNotFound(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	if _, err := reg.AddTradable(mustOrder("AAA", "NOPE", cents(1000), 10, Buy)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := reg.Cancel("NOPE", Buy, "id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := reg.CancelQuote("NOPE", "AAA"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := reg.TopOfBook("NOPE", Buy); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := reg.BookSnapshot("NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNilArgumentsRejected(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	if _, err := reg.AddTradable(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := reg.AddQuote(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := reg.CancelQuote("TGT", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRegistryRoutesToRightBook(t *testing.T) {
	reg, rec, _ := newTestRegistry(t)
	for _, sym := range []string{"AAA", "BBB"} {
		if err := reg.AddProduct(sym); err != nil {
			t.Fatalf("add product %s: %v", sym, err)
		}
	}

	snap, err := reg.AddTradable(mustOrder("USR", "AAA", cents(1000), 10, Buy))
	if err != nil {
		t.Fatalf("add tradable: %v", err)
	}
	if snap.Product != "AAA" {
		t.Fatalf("routed to wrong book: %+v", snap)
	}

	if top, ok, _ := reg.TopOfBook("AAA", Buy); !ok || top.Volume != 10 {
		t.Fatalf("AAA top wrong: %+v (ok=%t)", top, ok)
	}
	if _, ok, _ := reg.TopOfBook("BBB", Buy); ok {
		t.Fatal("BBB book should be empty")
	}

	// Both the book side and the registry forward snapshots; bookkeeping
	// saw at least the routed add.
	if rec.count() == 0 {
		t.Fatal("no bookkeeping notifications")
	}
	if last := rec.last(); last.Product != "AAA" {
		t.Fatalf("unexpected forwarded snapshot %+v", last)
	}
}

func TestRegistryQuoteLifecycle(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	if err := reg.AddProduct("TGT"); err != nil {
		t.Fatalf("add product: %v", err)
	}

	q, err := NewQuote("MMA", "TGT", cents(990), 30, cents(1010), 30)
	if err != nil {
		t.Fatalf("new quote: %v", err)
	}
	snaps, err := reg.AddQuote(q)
	if err != nil {
		t.Fatalf("add quote: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 leg snapshots, got %d", len(snaps))
	}

	cancelled, err := reg.CancelQuote("TGT", "MMA")
	if err != nil {
		t.Fatalf("cancel quote: %v", err)
	}
	if len(cancelled) != 2 {
		t.Fatalf("expected both legs cancelled, got %d", len(cancelled))
	}
	if _, ok, _ := reg.TopOfBook("TGT", Buy); ok {
		t.Fatal("buy side should be empty after quote cancel")
	}

	// Cancelling again is a reported miss, not an error.
	cancelled, err = reg.CancelQuote("TGT", "MMA")
	if err != nil {
		t.Fatalf("second cancel quote: %v", err)
	}
	if len(cancelled) != 0 {
		t.Fatalf("expected no legs, got %v", cancelled)
	}
}

func TestRegistryCancelMiss(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	if err := reg.AddProduct("TGT"); err != nil {
		t.Fatalf("add product: %v", err)
	}

	_, found, err := reg.Cancel("TGT", Sell, "missing")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if found {
		t.Fatal("expected a miss")
	}
}
