package upstream

import (
	"context"
	"errors"
	"time"

	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
)

// Source keeps the order book of one symbol in sync with a market data
// provider. Run blocks until ctx is done or the session breaks.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

type Upstream struct {
	source     Source
	setAlive   func(alive bool)
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewUpstream(source Source, setAlive func(alive bool)) *Upstream {
	return &Upstream{
		source:     source,
		setAlive:   setAlive,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// run restarts the source with exponential backoff until ctx is done.
func (u *Upstream) run(ctx context.Context) error {
	log := logger.GetLogger().WithComponent(u.source.Name())
	backoff := u.minBackoff

	for {
		started := time.Now()
		err := u.source.Run(ctx)
		u.setAlive(false)

		if ctx.Err() != nil {
			log.Info("upstream stopped")

			return nil
		}

		reason := "closed"
		if err != nil {
			reason = "error"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}
		}

		metrics.UpstreamReconnectsTotal.WithLabelValues(u.source.Name(), reason).Inc()

		// a session that stayed up for a while starts the backoff over
		if time.Since(started) > u.maxBackoff {
			backoff = u.minBackoff
		}

		log.WithError(err).WithFields(logger.Fields{"retry in": backoff.String()}).Warn("upstream session ended, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, u.maxBackoff)
	}
}
