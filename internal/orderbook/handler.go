package orderbook

import "depth-feed/internal/depthview"

// provides abstraction of the order book to the application
type Store interface {
	InitOrderBook(symbol string)
	RemoveOrderBook(symbol string)
	ReplaceSnapshot(symbol string, bids, asks []Update)
	UpdateBids(symbol string, bids []Update)
	UpdateAsks(symbol string, asks []Update)
	Depth(symbol string, n int) (depthview.Snapshot, bool)
	GetOrderBook(symbol string) []byte
}

type StoreHandler struct {
	Store
}

func NewStoreHandler(store Store) *StoreHandler {
	return &StoreHandler{
		Store: store,
	}
}
