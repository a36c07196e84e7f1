package binance

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"depth-feed/internal/config"
	"depth-feed/internal/logger"
)

const bufferSize = 20000

// Source keeps one symbol's book in sync with the Binance diff depth stream.
// Run returns when the session breaks, the caller reconnects.
type Source struct {
	cfg    config.BinanceConfig
	symbol string
	store  Updater
	report func(alive bool)
	idGen  *IDGenerator
	rest   *RestClient
}

func NewSource(cfg config.BinanceConfig, symbol string, store Updater, report func(alive bool)) *Source {
	return &Source{
		cfg:    cfg,
		symbol: symbol,
		store:  store,
		report: report,
		idGen:  NewIDGenerator(),
		rest:   NewRestClient(cfg.SnapshotURL, cfg.SnapshotLimit, &http.Client{Timeout: 10 * time.Second}),
	}
}

func (s *Source) Name() string {
	return sourceName
}

func (s *Source) Run(ctx context.Context) error {
	requests := make(chan []byte, 8)
	ws := NewWSClient(s.cfg.WSURL, requests)

	if err := ws.ConnectToServer(ctx); err != nil {
		return err
	}

	defer func() {
		if err := ws.CloseConnection(); err != nil {
			logger.GetLogger().WithError(err).Debug("Error on closing binance websocket")
		}
	}()

	proc := NewProcessor(s.symbol, NewMarketDepthRegistry(), NewOBUpdater(s.store), func() {
		s.report(true)
	})
	subscriber := NewSubscriber(requests, s.idGen)

	bufferedMsgs := make(chan []byte, bufferSize)
	snapshots := make(chan *Snapshot, 1)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ws.readWSMessages(gctx, bufferedMsgs)
	})

	g.Go(func() error {
		return ws.SendRequests(gctx)
	})

	g.Go(func() error {
		return proc.Run(gctx, bufferedMsgs, snapshots)
	})

	// the snapshot is taken once the stream is flowing so buffered events
	// overlap it
	g.Go(func() error {
		if err := subscriber.SubscribeToSymbol(gctx, s.symbol); err != nil {
			return err
		}

		select {
		case <-proc.FirstEvent():
		case <-gctx.Done():
			return nil
		}

		snapshot, err := s.rest.GetSnapshot(gctx, s.symbol)
		if err != nil {
			return err
		}

		snapshots <- snapshot

		return nil
	})

	return g.Wait()
}
