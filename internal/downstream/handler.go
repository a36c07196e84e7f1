package downstream

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"depth-feed/internal/logger"
)

const defaultShutdownTimeout = 30 * time.Second

// Server is the browser facing surface of the depth feed.
type Server interface {
	StartServer() error
	ShutDown(ctx context.Context) error
}

// Handler ties a Server to the process lifecycle.
type Handler struct {
	Server

	shutdownTimeout time.Duration
}

func NewHandler(s Server) *Handler {
	return &Handler{
		Server:          s,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Serve starts the server on g and shuts it down once ctx is done.
func (h *Handler) Serve(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		return h.StartServer()
	})

	g.Go(func() error {
		return h.shutdownOnDone(ctx)
	})
}

func (h *Handler) shutdownOnDone(ctx context.Context) error {
	log := logger.GetLogger().WithComponent("downstream")
	log.Info("Graceful shutdown is monitoring")

	<-ctx.Done()

	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	if err := h.ShutDown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")

		return err
	}

	log.Info("Server exited gracefully")

	return nil
}
