package upstream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"depth-feed/internal/config"
	"depth-feed/internal/logger"
	"depth-feed/internal/orderbook"
	"depth-feed/internal/upstream/binance"
	"depth-feed/internal/upstream/coinbase"
)

type Client struct {
	upstream *Upstream
	store    orderbook.Store
	symbol   string
	source   string

	alive     atomic.Bool
	mu        sync.Mutex
	listeners []func(alive bool)
}

// wire the configured source on upstream and return the client struct
func NewClient(cfg *config.Config, store orderbook.Store) (*Client, error) {
	c := &Client{
		store:  store,
		symbol: cfg.Feed.Symbol,
		source: cfg.Feed.Source,
	}

	var source Source

	switch cfg.Feed.Source {
	case config.SourceBinance:
		source = binance.NewSource(cfg.Upstream.Binance, cfg.Feed.Symbol, store, c.setAlive)
	case config.SourceCoinbase:
		source = coinbase.NewPoller(cfg.Upstream.Coinbase, cfg.Feed.Symbol, store, c.setAlive)
	default:
		return nil, fmt.Errorf("unknown upstream source %q", cfg.Feed.Source)
	}

	c.upstream = NewUpstream(source, c.setAlive)

	return c, nil
}

// InitClient creates the symbol's book and keeps the source running on g.
// The book is removed once the source stops, so nothing reads a book that no
// longer follows the provider.
func (c *Client) InitClient(ctx context.Context, g *errgroup.Group) {
	c.store.InitOrderBook(c.symbol)

	g.Go(func() error {
		defer c.store.RemoveOrderBook(c.symbol)

		return c.upstream.run(ctx)
	})
}

func (c *Client) Symbol() string {
	return c.symbol
}

func (c *Client) Source() string {
	return c.source
}

// Alive reports whether the book currently mirrors the provider.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// OnStatusChange registers fn to be called on every alive transition.
func (c *Client) OnStatusChange(fn func(alive bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

func (c *Client) setAlive(alive bool) {
	if c.alive.Swap(alive) == alive {
		return
	}

	logger.GetLogger().WithFields(logger.Fields{"source": c.source, "symbol": c.symbol, "alive": alive}).Info("upstream status changed")

	c.mu.Lock()
	listeners := append([]func(bool){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(alive)
	}
}
