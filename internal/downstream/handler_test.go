package downstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type fakeServer struct {
	stop        chan struct{}
	shutdownErr error
	shutdowns   int
}

func (s *fakeServer) StartServer() error {
	<-s.stop

	return nil
}

func (s *fakeServer) ShutDown(context.Context) error {
	s.shutdowns++
	close(s.stop)

	return s.shutdownErr
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	h := NewHandler(srv)

	ctx, cancel := context.WithCancel(context.Background())

	var g errgroup.Group
	h.Serve(ctx, &g)

	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}

	if srv.shutdowns != 1 {
		t.Fatalf("shutdowns = %d", srv.shutdowns)
	}
}

func TestServeReportsForcedShutdown(t *testing.T) {
	boom := errors.New("deadline exceeded")
	srv := &fakeServer{stop: make(chan struct{}), shutdownErr: boom}
	h := NewHandler(srv)
	h.shutdownTimeout = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var g errgroup.Group
	h.Serve(ctx, &g)

	if err := g.Wait(); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
