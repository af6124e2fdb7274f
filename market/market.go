// Package market computes and distributes best-bid/best-offer snapshots.
// The Tracker turns both tops of book into display-side snapshots plus a
// market-width metric; the Publisher fans those out to per-symbol
// subscribers.
package market

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quotebook/money"
)

// Side is a transient snapshot of one side of the current market: the best
// price and the aggregate volume resting there. It is recomputed after every
// book mutation, never stored as authoritative state.
type Side struct {
	Price  money.Money
	Volume int
}

func (s Side) String() string {
	price := "$0.00"
	if s.Price.Valid() {
		price = s.Price.String()
	}
	return fmt.Sprintf("%sx%d", price, s.Volume)
}

// Tracker computes the published market for a symbol and hands it to the
// publisher. It implements the engine's MarketUpdater.
type Tracker struct {
	pub *Publisher
	log *zap.Logger
}

// NewTracker wires a tracker to a publisher.
func NewTracker(pub *Publisher, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{pub: pub, log: log}
}

// UpdateMarket builds both side snapshots, computes the market width, and
// forwards to the publisher's fan-out. The width is sellPrice - buyPrice
// only when both prices are present and strictly positive; otherwise it is
// reported as zero.
func (t *Tracker) UpdateMarket(symbol string, buyPrice money.Money, buyVolume int, sellPrice money.Money, sellVolume int) {
	width := decimal.Zero
	if buyPrice.Valid() && sellPrice.Valid() && buyPrice.Cents() > 0 && sellPrice.Cents() > 0 {
		if diff, err := sellPrice.Subtract(buyPrice); err == nil {
			width = diff.ToDecimal()
		}
	}

	buy := Side{Price: buyPrice, Volume: buyVolume}
	sell := Side{Price: sellPrice, Volume: sellVolume}

	t.log.Info("current market",
		zap.String("symbol", symbol),
		zap.Stringer("buy", buy),
		zap.Stringer("sell", sell),
		zap.String("width", width.StringFixed(2)))

	t.pub.Publish(symbol, buy, sell)
}
