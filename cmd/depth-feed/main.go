package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"depth-feed/internal/config"
	"depth-feed/internal/depthfeed"
	"depth-feed/internal/depthview"
	"depth-feed/internal/downstream"
	"depth-feed/internal/downstream/wsserver"
	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
	"depth-feed/internal/orderbook"
	"depth-feed/internal/subscribers"
	"depth-feed/internal/upstream"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"source": cfg.Feed.Source,
		"symbol": cfg.Feed.Symbol,
		"depth":  cfg.Feed.Depth,
	}).Info("starting depth feed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	reg := metrics.Init()

	// initialize order book store
	storeHandler := initOrderBookStore()

	// initialize downstream client registry and hub
	subHandler := initSubscriptionHandler()
	hub := wsserver.NewHub(subHandler)

	feed, err := initDepthFeed(cfg, storeHandler, hub)
	if err != nil {
		log.WithError(err).Error("Failed to create depth feed")
		os.Exit(1)
	}

	// connect to the market data provider
	client, err := initUpstreamClient(cfg, storeHandler, feed)
	if err != nil {
		log.WithError(err).Error("Failed to create upstream client")
		os.Exit(1)
	}

	client.InitClient(ctx, g)

	g.Go(func() error {
		return hub.Run(ctx, feed)
	})

	g.Go(func() error {
		return feed.Run(ctx)
	})

	// start downstream server
	server := startDownstreamServer(cfg, storeHandler, subHandler, hub, feed, reg)

	server.Serve(ctx, g)

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Error on depth feed service")
	}

	log.Info("Exiting depth feed service")
}

// initialize order book store.
func initOrderBookStore() *orderbook.StoreHandler {
	obStore := orderbook.NewStore()

	return orderbook.NewStoreHandler(obStore)
}

// initialize downstream client registry.
func initSubscriptionHandler() *subscribers.Handler {
	subsStore := subscribers.NewUserStore()

	return subscribers.NewHandler(subsStore)
}

func initDepthFeed(cfg *config.Config, book *orderbook.StoreHandler, hub *wsserver.Hub) (*depthfeed.Service, error) {
	return depthfeed.NewService(depthfeed.Config{
		Symbol:   cfg.Feed.Symbol,
		Source:   cfg.Feed.Source,
		Interval: cfg.Feed.Interval,
		View: depthview.Config{
			Depth:        cfg.Feed.Depth,
			BidColor:     cfg.Colors.Bid,
			AskColor:     cfg.Colors.Ask,
			NeutralColor: cfg.Colors.Neutral,
			Fade:         cfg.Colors.Fade,
		},
	}, book, hub)
}

// wire the configured source and report its status to the feed.
func initUpstreamClient(cfg *config.Config, book *orderbook.StoreHandler, feed *depthfeed.Service) (*upstream.Client, error) {
	client, err := upstream.NewClient(cfg, book)
	if err != nil {
		return nil, err
	}

	client.OnStatusChange(feed.SetAlive)

	return client, nil
}

func startDownstreamServer(cfg *config.Config, book *orderbook.StoreHandler, subs *subscribers.Handler, hub *wsserver.Hub, feed *depthfeed.Service, reg *prometheus.Registry) *downstream.Handler {
	processor := wsserver.NewProcessor(hub, subs, feed)
	server := wsserver.NewWSServer(cfg.Server, processor, feed, book, subs, reg)

	return downstream.NewHandler(server)
}
