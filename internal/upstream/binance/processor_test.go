package binance

import (
	"encoding/json"
	"errors"
	"testing"

	"depth-feed/internal/orderbook"
)

func newTestProcessor(t *testing.T) (*Processor, *orderbook.OBStore, *bool) {
	t.Helper()

	store := orderbook.NewStore()
	ready := false
	proc := NewProcessor("BTCUSDT", NewMarketDepthRegistry(), NewOBUpdater(store), func() { ready = true })

	return proc, store, &ready
}

func depthEvent(t *testing.T, first, final int64, bids, asks [][]string) []byte {
	t.Helper()

	msg, err := json.Marshal(EventUpdate{
		EventType:     depthUpdateEvent,
		Symbol:        "BTCUSDT",
		FirstUpdateId: first,
		FinalUpdateId: final,
		Bids:          bids,
		Asks:          asks,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	return msg
}

func TestEventsBufferedUntilSnapshot(t *testing.T) {
	proc, store, ready := newTestProcessor(t)

	if err := proc.ProcessMessage(depthEvent(t, 95, 99, [][]string{{"100", "9"}}, nil)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := proc.ProcessMessage(depthEvent(t, 100, 102, [][]string{{"100.5", "1"}}, [][]string{{"101", "0"}})); err != nil {
		t.Fatalf("process: %v", err)
	}

	select {
	case <-proc.FirstEvent():
	default:
		t.Fatalf("first event not signalled")
	}

	if _, ok := store.Depth("BTCUSDT", 5); ok {
		t.Fatalf("book must not exist before the snapshot")
	}

	err := proc.ApplySnapshot(&Snapshot{
		LastUpdateId: 100,
		Bids:         [][]string{{"100", "2"}},
		Asks:         [][]string{{"101", "3"}, {"102", "1"}},
	})
	if err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}

	if !*ready {
		t.Fatalf("ready callback not called")
	}

	snap, _ := store.Depth("BTCUSDT", 5)
	if len(snap.Bids) != 2 || snap.Bids[0].Price != 100.5 || snap.Bids[1].Quantity != 2 {
		t.Fatalf("unexpected bids: %+v", snap.Bids)
	}

	if len(snap.Asks) != 1 || snap.Asks[0].Price != 102 {
		t.Fatalf("unexpected asks: %+v", snap.Asks)
	}
}

func TestSequenceGapAfterSnapshot(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	if err := proc.ApplySnapshot(&Snapshot{LastUpdateId: 10}); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}

	if err := proc.ProcessMessage(depthEvent(t, 9, 12, nil, nil)); err != nil {
		t.Fatalf("straddling event rejected: %v", err)
	}

	if err := proc.ProcessMessage(depthEvent(t, 13, 14, nil, nil)); err != nil {
		t.Fatalf("contiguous event rejected: %v", err)
	}

	err := proc.ProcessMessage(depthEvent(t, 16, 18, nil, nil))
	if !errors.Is(err, ErrSequenceGap) {
		t.Fatalf("expected gap, got %v", err)
	}
}

func TestStaleSnapshotIsAGap(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	if err := proc.ProcessMessage(depthEvent(t, 50, 60, nil, nil)); err != nil {
		t.Fatalf("process: %v", err)
	}

	err := proc.ApplySnapshot(&Snapshot{LastUpdateId: 40})
	if !errors.Is(err, ErrSequenceGap) {
		t.Fatalf("expected gap, got %v", err)
	}
}

func TestRequestResponses(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	if err := proc.ProcessMessage([]byte(`{"result":null,"id":1}`)); err != nil {
		t.Fatalf("ack rejected: %v", err)
	}

	err := proc.ProcessMessage([]byte(`{"error":{"code":2,"msg":"Invalid request"},"id":2}`))
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected request failure, got %v", err)
	}

	if err := proc.ProcessMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestOtherSymbolsIgnored(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	msg, _ := json.Marshal(EventUpdate{EventType: depthUpdateEvent, Symbol: "ETHUSDT", FirstUpdateId: 1, FinalUpdateId: 2})
	if err := proc.ProcessMessage(msg); err != nil {
		t.Fatalf("process: %v", err)
	}

	select {
	case <-proc.FirstEvent():
		t.Fatalf("foreign symbol must not count as first event")
	default:
	}
}
