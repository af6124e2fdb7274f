// Command bookdemo wires the full engine together and runs a scripted
// trading session: a two-sided quote, crossing orders with a pro-rata split,
// cancels, and a quote replacement, printing the book and per-user state as
// it goes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"quotebook/engine"
	"quotebook/logutil"
	"quotebook/market"
	"quotebook/money"
	"quotebook/sim"
	"quotebook/users"
)

func main() {
	_ = godotenv.Load()

	symbol := flag.String("symbol", getEnv("SYMBOL", "TGT"), "instrument symbol to trade")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "zap log level")
	userList := flag.String("users", getEnv("USERS", "ANN,BOB,MMA"), "comma-separated 3-letter user codes")
	simFor := flag.Duration("sim", 0, "run the bot simulation for this long after the scripted session (0 disables)")
	flag.Parse()

	logger, err := logutil.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ids := strings.Split(*userList, ",")
	store := users.NewStore(logger, ids...)

	pub := market.NewPublisher()
	tracker := market.NewTracker(pub, logger)
	registry := engine.NewRegistry(store, tracker, logger)
	defer registry.Close()

	if err := registry.AddProduct(*symbol); err != nil {
		fmt.Fprintf(os.Stderr, "add product: %v\n", err)
		os.Exit(1)
	}
	for _, id := range ids {
		if user, err := store.Get(id); err == nil {
			pub.Subscribe(*symbol, user)
		}
	}

	run(registry, store, *symbol, ids)

	if *simFor > 0 {
		runSim(registry, store, *symbol, *simFor, logger)
		printBook(registry, *symbol)
	}
}

func runSim(registry *engine.Registry, store *users.Store, symbol string, d time.Duration, logger *zap.Logger) {
	for _, id := range []string{"BID", "ASK", "QUO"} {
		if _, err := store.Add(id); err != nil {
			fmt.Fprintf(os.Stderr, "add sim user: %v\n", err)
			return
		}
	}
	sup := sim.NewSupervisor(registry, store, symbol, 5, 20*time.Millisecond, logger, "BID", "ASK", "QUO")
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	sup.Start(ctx)
}

func run(registry *engine.Registry, store *users.Store, symbol string, ids []string) {
	// Market maker posts a two-sided quote.
	quote := mustQuote("MMA", symbol, "$9.95", 50, "$10.05", 50)
	if _, err := registry.AddQuote(quote); err != nil {
		fmt.Fprintf(os.Stderr, "add quote: %v\n", err)
	}
	printBook(registry, symbol)

	// A resting buy, then a crossing sell that fills immediately.
	buy := mustOrder("ANN", symbol, "$10.00", 100, engine.Buy)
	if _, err := registry.AddTradable(buy); err != nil {
		fmt.Fprintf(os.Stderr, "add buy: %v\n", err)
	}
	sellSnap, err := registry.AddTradable(mustOrder("BOB", symbol, "$9.50", 60, engine.Sell))
	if err != nil {
		fmt.Fprintf(os.Stderr, "add sell: %v\n", err)
	}
	fmt.Printf("crossing sell after trade: %s\n", sellSnap)
	printBook(registry, symbol)

	// Three resting sells at one price, then a buy that triggers the
	// pro-rata split.
	for _, vol := range []int{100, 50, 50} {
		if _, err := registry.AddTradable(mustOrder("BOB", symbol, "$10.10", vol, engine.Sell)); err != nil {
			fmt.Fprintf(os.Stderr, "add sell: %v\n", err)
		}
	}
	if _, err := registry.AddTradable(mustOrder("ANN", symbol, "$10.10", 150, engine.Buy)); err != nil {
		fmt.Fprintf(os.Stderr, "add pro-rata buy: %v\n", err)
	}
	printBook(registry, symbol)

	// Cancel the remaining resting buy, replace the quote, then pull it.
	if _, found, err := registry.Cancel(symbol, engine.Buy, buy.ID()); err != nil || !found {
		fmt.Fprintf(os.Stderr, "cancel buy: found=%t err=%v\n", found, err)
	}
	replacement := mustQuote("MMA", symbol, "$9.90", 75, "$10.20", 75)
	if _, err := registry.AddQuote(replacement); err != nil {
		fmt.Fprintf(os.Stderr, "replace quote: %v\n", err)
	}
	if _, err := registry.CancelQuote(symbol, "MMA"); err != nil {
		fmt.Fprintf(os.Stderr, "cancel quote: %v\n", err)
	}
	printBook(registry, symbol)

	for _, id := range ids {
		printUser(store, id)
	}
}

func printBook(registry *engine.Registry, symbol string) {
	view, err := registry.BookSnapshot(symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "book snapshot: %v\n", err)
		return
	}
	fmt.Printf("---- book %s ----\n", view.Symbol)
	printSide("BUY", view.Buy)
	printSide("SELL", view.Sell)
}

func printSide(name string, levels []engine.LevelSnapshot) {
	fmt.Printf("  %s:\n", name)
	if len(levels) == 0 {
		fmt.Println("    <empty>")
		return
	}
	for _, lvl := range levels {
		fmt.Printf("    %s x %d\n", lvl.Price, lvl.Volume)
		for _, snap := range lvl.Tradables {
			fmt.Printf("      %s\n", snap)
		}
	}
}

func printUser(store *users.Store, id string) {
	user, err := store.Get(id)
	if err != nil {
		return
	}
	fmt.Printf("---- user %s ----\n", id)
	for _, snap := range user.Tradables() {
		fmt.Printf("  %s\n", snap)
	}
	for symbol, pair := range user.CurrentMarkets() {
		fmt.Printf("  market %s: %s - %s\n", symbol, pair.Buy, pair.Sell)
	}
}

func mustOrder(user, symbol, price string, volume int, side engine.Side) *engine.Tradable {
	m, err := money.Parse(price)
	if err != nil {
		panic(err)
	}
	order, err := engine.NewOrder(user, symbol, m, volume, side)
	if err != nil {
		panic(err)
	}
	return order
}

func mustQuote(user, symbol, buyPrice string, buyVolume int, sellPrice string, sellVolume int) *engine.Quote {
	bp, err := money.Parse(buyPrice)
	if err != nil {
		panic(err)
	}
	sp, err := money.Parse(sellPrice)
	if err != nil {
		panic(err)
	}
	quote, err := engine.NewQuote(user, symbol, bp, buyVolume, sp, sellVolume)
	if err != nil {
		panic(err)
	}
	return quote
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
