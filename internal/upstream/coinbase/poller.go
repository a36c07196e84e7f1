// Package coinbase polls the Coinbase Exchange level 2 book over REST.
package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"depth-feed/internal/config"
	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
	"depth-feed/internal/orderbook"
)

const sourceName = "coinbase"

type BookReplacer interface {
	ReplaceSnapshot(symbol string, bids, asks []orderbook.Update)
}

// entry is [price, size, num-orders]
type entry []json.RawMessage

type bookResponse struct {
	Sequence int64   `json:"sequence"`
	Bids     []entry `json:"bids"`
	Asks     []entry `json:"asks"`
}

type Poller struct {
	url     string
	symbol  string
	client  *http.Client
	limiter *rate.Limiter
	store   BookReplacer
	report  func(alive bool)
	log     *logger.Entry
}

func NewPoller(cfg config.CoinbaseConfig, symbol string, store BookReplacer, report func(alive bool)) *Poller {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Poller{
		url:     fmt.Sprintf(cfg.BookURL, symbol),
		symbol:  symbol,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		store:   store,
		report:  report,
		log:     logger.GetLogger().WithFields(logger.Fields{"component": sourceName, "symbol": symbol}),
	}
}

func (p *Poller) Name() string {
	return sourceName
}

// Run replaces the book on every poll until ctx is done. Failed polls mark
// the feed down and are retried at the limiter's pace.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("started coinbase book poller")

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("rate limiter: %w", err)
		}

		if err := p.poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}

			metrics.UpstreamErrorsTotal.WithLabelValues(sourceName, "book").Inc()
			p.log.WithError(err).Warn("book poll failed")
			p.report(false)

			continue
		}

		p.report(true)
	}
}

func (p *Poller) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("create book request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get book: unexpected status %d", resp.StatusCode)
	}

	var book bookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return fmt.Errorf("decode book: %w", err)
	}

	bids, err := parseEntries(book.Bids)
	if err != nil {
		return fmt.Errorf("bids: %w", err)
	}

	asks, err := parseEntries(book.Asks)
	if err != nil {
		return fmt.Errorf("asks: %w", err)
	}

	p.store.ReplaceSnapshot(p.symbol, bids, asks)
	metrics.UpstreamEventsTotal.WithLabelValues(sourceName).Inc()
	p.log.WithFields(logger.Fields{"sequence": book.Sequence}).Debug("book replaced")

	return nil
}

func parseEntries(entries []entry) ([]orderbook.Update, error) {
	updates := make([]orderbook.Update, 0, len(entries))

	for i, e := range entries {
		if len(e) < 2 {
			return nil, fmt.Errorf("entry %d: expected price and size", i)
		}

		var u orderbook.Update

		if err := json.Unmarshal(e[0], &u.Price); err != nil {
			return nil, fmt.Errorf("entry %d price: %w", i, err)
		}

		if err := json.Unmarshal(e[1], &u.Quantity); err != nil {
			return nil, fmt.Errorf("entry %d size: %w", i, err)
		}

		if len(e) > 2 {
			var orders decimal.Decimal
			if err := json.Unmarshal(e[2], &orders); err != nil {
				return nil, fmt.Errorf("entry %d orders: %w", i, err)
			}

			u.Orders = orders.IntPart()
		}

		updates = append(updates, u)
	}

	return updates, nil
}
