package server

import (
	"fmt"
	"log/slog"
	"time"

	"riskgate/config"
	"riskgate/core/state"
	"riskgate/native/asset"
	"riskgate/native/common"
	"riskgate/native/comptroller"
	"riskgate/native/oracle"
	"riskgate/storage"
)

// Node is the wired risk engine with its reference markets and price feed,
// all sharing one state manager.
type Node struct {
	State  *state.Manager
	Engine *comptroller.Engine
	Feed   *oracle.Feed
	Assets *asset.Registry
}

// NodeOptions tunes Bootstrap.
type NodeOptions struct {
	OracleMaxAge  time.Duration
	PausedModules []string
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Bootstrap wires a node over db. A store without a schema version is
// initialised from genesis and committed; an existing store is reused as is.
func Bootstrap(db storage.Database, genesis *config.Genesis, opts NodeOptions) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("bootstrap: database required")
	}
	if genesis == nil {
		return nil, fmt.Errorf("bootstrap: genesis required")
	}
	if err := genesis.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pauses := make(common.StaticPauses, len(opts.PausedModules))
	for _, module := range opts.PausedModules {
		pauses[module] = true
	}

	mgr := state.NewManager(db)
	fresh, err := state.EnsureStateVersion(mgr)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	engine := comptroller.NewEngine(genesis.Engine)
	engine.SetLogger(logger)
	engine.SetState(mgr)

	feedOpts := []oracle.Option{
		oracle.WithMaxAge(opts.OracleMaxAge),
		oracle.WithLogger(logger),
		oracle.WithPauses(pauses),
	}
	if opts.Clock != nil {
		feedOpts = append(feedOpts, oracle.WithClock(opts.Clock))
	}
	feed := oracle.NewFeed(mgr, genesis.OraclePoster, feedOpts...)
	engine.SetOracle(feed)

	registry := asset.NewRegistry()
	for _, declared := range genesis.Assets {
		book := asset.NewBook(declared.Address, declared.Symbol, engine, mgr)
		book.SetPauses(pauses)
		book.SetLogger(logger)
		if err := registry.Register(book); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}
	engine.SetAssets(registry)

	node := &Node{State: mgr, Engine: engine, Feed: feed, Assets: registry}
	if !fresh {
		mgr.Discard()
		logger.Info("risk store reopened", slog.String("engine", genesis.Engine.String()))
		return node, nil
	}

	for _, declared := range genesis.Assets {
		if declared.Price.IsZero() {
			continue
		}
		if err := feed.Seed(declared.Address, declared.Price); err != nil {
			mgr.Discard()
			return nil, fmt.Errorf("bootstrap: seed %s: %w", declared.Symbol, err)
		}
	}
	if err := engine.ApplyGenesis(&genesis.Comptroller, feed); err != nil {
		mgr.Discard()
		return nil, fmt.Errorf("bootstrap: apply genesis: %w", err)
	}
	if err := mgr.Commit(); err != nil {
		return nil, fmt.Errorf("bootstrap: commit genesis: %w", err)
	}
	logger.Info("risk store initialised from genesis",
		slog.String("engine", genesis.Engine.String()),
		slog.Int("markets", len(genesis.Comptroller.Markets)))
	return node, nil
}

// Book resolves a market by bech32 address or symbol.
func (n *Node) Book(ref string) (*asset.Book, bool) {
	if book, ok := n.Assets.BySymbol(ref); ok {
		return book, true
	}
	addr, err := parseAddress(ref)
	if err != nil {
		return nil, false
	}
	return n.Assets.Book(addr)
}
