package binance

import (
	"sync"
)

type MarketDepthState struct {
	firstEntryMap map[string]bool
	readyMap      map[string]bool
	lastUpdateIds map[string]int64
}

// MarketDepthRegistry tracks where each symbol's book stands in the diff
// stream.
type MarketDepthRegistry struct {
	state *MarketDepthState
	mutex sync.Mutex
}

func NewMarketDepthRegistry() *MarketDepthRegistry {
	mdState := &MarketDepthState{
		firstEntryMap: make(map[string]bool),
		readyMap:      make(map[string]bool),
		lastUpdateIds: make(map[string]int64),
	}

	return &MarketDepthRegistry{
		state: mdState,
	}
}

// SetFirstEntry marks that the next applied event is the first one after a
// snapshot.
func (r *MarketDepthRegistry) SetFirstEntry(symbol string, val bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.state.firstEntryMap[symbol] = val
}

func (r *MarketDepthRegistry) FirstEntry(symbol string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.state.firstEntryMap[symbol]
}

// SetReady flags that a snapshot is in the store and diffs can be applied.
func (r *MarketDepthRegistry) SetReady(symbol string, val bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.state.readyMap[symbol] = val
}

func (r *MarketDepthRegistry) Ready(symbol string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.state.readyMap[symbol]
}

func (r *MarketDepthRegistry) SetLastUpdateId(symbol string, id int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.state.lastUpdateIds[symbol] = id
}

func (r *MarketDepthRegistry) LastUpdateId(symbol string) int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.state.lastUpdateIds[symbol]
}
