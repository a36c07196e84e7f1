package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
)

var (
	ErrSequenceGap   = errors.New("depth update sequence gap")
	ErrPendingFull   = errors.New("too many depth updates buffered before snapshot")
	ErrRequestFailed = errors.New("binance request failed")
)

// Processor applies the diff stream of one symbol to the order book store.
// Events that arrive before the snapshot are held and replayed on it.
type Processor struct {
	symbol     string
	mdRegistry *MarketDepthRegistry
	updater    *OBUpdater
	onReady    func()

	pending    []EventUpdate
	firstEvent chan struct{}
	firstOnce  sync.Once
}

func NewProcessor(symbol string, mdRegistry *MarketDepthRegistry, updater *OBUpdater, onReady func()) *Processor {
	return &Processor{
		symbol:     symbol,
		mdRegistry: mdRegistry,
		updater:    updater,
		onReady:    onReady,
		firstEvent: make(chan struct{}),
	}
}

// FirstEvent is closed once the first depth update of the symbol is seen.
func (p *Processor) FirstEvent() <-chan struct{} {
	return p.firstEvent
}

// Run consumes websocket messages and snapshots from a single goroutine so
// the book is never touched concurrently by this source.
func (p *Processor) Run(ctx context.Context, bufferedMsgs <-chan []byte, snapshots <-chan *Snapshot) error {
	logger.GetLogger().WithComponent(sourceName).Info("started binance message processor")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snapshot := <-snapshots:
			if err := p.ApplySnapshot(snapshot); err != nil {
				return err
			}
		case message := <-bufferedMsgs:
			if err := p.ProcessMessage(message); err != nil {
				return err
			}
		}
	}
}

// ProcessMessage handles one raw frame from the websocket.
func (p *Processor) ProcessMessage(message []byte) error {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	switch {
	case env.Id != nil:
		if env.Error != nil {
			return fmt.Errorf("%w: request %d: %d %s", ErrRequestFailed, *env.Id, env.Error.Code, env.Error.Msg)
		}

		logger.GetLogger().WithFields(logger.Fields{"id": *env.Id}).Info("admin message received")

		return nil
	case env.EventType == depthUpdateEvent:
		var eventUpdate EventUpdate
		if err := json.Unmarshal(message, &eventUpdate); err != nil {
			return fmt.Errorf("decode depth update: %w", err)
		}

		return p.processMarketDepthUpdate(eventUpdate)
	default:
		logger.GetLogger().WithFields(logger.Fields{"event type": env.EventType}).Debug("ignoring message")

		return nil
	}
}

// ApplySnapshot replaces the book and replays buffered events on top of it.
func (p *Processor) ApplySnapshot(snapshot *Snapshot) error {
	p.updater.updateSnapshot(p.symbol, snapshot)
	p.mdRegistry.SetLastUpdateId(p.symbol, snapshot.LastUpdateId)
	p.mdRegistry.SetFirstEntry(p.symbol, true)
	p.mdRegistry.SetReady(p.symbol, true)
	metrics.BookRebuildsTotal.WithLabelValues(sourceName, "snapshot").Inc()

	logger.GetLogger().WithFields(logger.Fields{
		"symbol":         p.symbol,
		"last update id": snapshot.LastUpdateId,
		"buffered":       len(p.pending),
	}).Info("Snapshot applied")

	pending := p.pending
	p.pending = nil

	for i := range pending {
		if err := p.apply(&pending[i]); err != nil {
			return err
		}
	}

	if p.onReady != nil {
		p.onReady()
	}

	return nil
}

func (p *Processor) processMarketDepthUpdate(eventUpdate EventUpdate) error {
	if eventUpdate.Symbol != p.symbol {
		return nil
	}

	p.firstOnce.Do(func() {
		logger.GetLogger().WithFields(logger.Fields{"symbol": p.symbol, "first update id": eventUpdate.FirstUpdateId}).Info("first depth update received")
		close(p.firstEvent)
	})

	if !p.mdRegistry.Ready(p.symbol) {
		if len(p.pending) >= maxPendingEvents {
			return ErrPendingFull
		}

		p.pending = append(p.pending, eventUpdate)

		return nil
	}

	return p.apply(&eventUpdate)
}

// apply enforces the diff stream ordering: events already covered by the
// book are dropped, the first one after a snapshot must straddle it and every
// later one must continue exactly where the previous ended.
func (p *Processor) apply(eventUpdate *EventUpdate) error {
	last := p.mdRegistry.LastUpdateId(p.symbol)

	if eventUpdate.FinalUpdateId <= last {
		return nil
	}

	if p.mdRegistry.FirstEntry(p.symbol) {
		if eventUpdate.FirstUpdateId > last+1 {
			return fmt.Errorf("%w: first update %d after snapshot %d", ErrSequenceGap, eventUpdate.FirstUpdateId, last)
		}

		p.mdRegistry.SetFirstEntry(p.symbol, false)
	} else if eventUpdate.FirstUpdateId != last+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, last+1, eventUpdate.FirstUpdateId)
	}

	p.updater.applyDiff(p.symbol, eventUpdate)
	p.mdRegistry.SetLastUpdateId(p.symbol, eventUpdate.FinalUpdateId)
	metrics.UpstreamEventsTotal.WithLabelValues(sourceName).Inc()

	return nil
}
