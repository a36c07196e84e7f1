package orderbook

import (
	"encoding/json"
	"sync"

	tree "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/shopspring/decimal"

	"depth-feed/internal/depthview"
	"depth-feed/internal/logger"
)

// Level is the resting size at one price.
type Level struct {
	Quantity decimal.Decimal
	Orders   int64
}

// Update is one price level change. A zero quantity removes the level.
type Update struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Orders   int64
}

type OrderBook struct {
	Bids *tree.Tree
	Asks *tree.Tree
}

type OBStore struct {
	mu    sync.RWMutex
	store map[string]*OrderBook
}

func NewStore() *OBStore {
	return &OBStore{
		store: make(map[string]*OrderBook),
	}
}

// initialize an empty order book for the symbol, dropping any previous one
func (s *OBStore) InitOrderBook(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[symbol] = newOrderBook()
	logger.GetLogger().WithFields(logger.Fields{"symbol": symbol}).Info("Order book initiated")
}

func (s *OBStore) RemoveOrderBook(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.store, symbol)
}

// ReplaceSnapshot swaps the whole book for the given levels.
func (s *OBStore) ReplaceSnapshot(symbol string, bids, asks []Update) {
	ob := newOrderBook()
	apply(ob.Bids, bids)
	apply(ob.Asks, asks)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[symbol] = ob
}

// update bids of an order book, unknown symbols are ignored
func (s *OBStore) UpdateBids(symbol string, bids []Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ob, ok := s.store[symbol]; ok {
		apply(ob.Bids, bids)
	}
}

// update asks of an order book, unknown symbols are ignored
func (s *OBStore) UpdateAsks(symbol string, asks []Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ob, ok := s.store[symbol]; ok {
		apply(ob.Asks, asks)
	}
}

// Depth returns up to n best levels per side, best first.
func (s *OBStore) Depth(symbol string, n int) (depthview.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ob, ok := s.store[symbol]
	if !ok {
		return depthview.Snapshot{}, false
	}

	return depthview.Snapshot{
		Bids: top(ob.Bids, n),
		Asks: top(ob.Asks, n),
	}, true
}

type jsonLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"qty"`
	Orders   int64  `json:"orders"`
}

// return json of the full order book
func (s *OBStore) GetOrderBook(symbol string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ob, ok := s.store[symbol]
	if !ok {
		return nil
	}

	jsonStr, err := json.Marshal(struct {
		Symbol string      `json:"symbol"`
		Bids   []jsonLevel `json:"bids"`
		Asks   []jsonLevel `json:"asks"`
	}{symbol, dump(ob.Bids), dump(ob.Asks)})
	if err != nil {
		logger.GetLogger().WithError(err).Error("error on parsing order book to json")
	}

	return jsonStr
}

func newOrderBook() *OrderBook {
	return &OrderBook{
		Bids: tree.NewWith(bidComparator),
		Asks: tree.NewWith(askComparator),
	}
}

func apply(t *tree.Tree, updates []Update) {
	for _, u := range updates {
		if u.Quantity.Sign() <= 0 {
			t.Remove(u.Price)

			continue
		}

		t.Put(u.Price, Level{Quantity: u.Quantity, Orders: u.Orders})
	}
}

func top(t *tree.Tree, n int) []depthview.PriceLevel {
	n = max(n, 0)
	levels := make([]depthview.PriceLevel, 0, min(n, t.Size()))

	it := t.Iterator()
	for len(levels) < n && it.Next() {
		price := it.Key().(decimal.Decimal)
		level := it.Value().(Level)

		levels = append(levels, depthview.PriceLevel{
			Price:    price.InexactFloat64(),
			Quantity: level.Quantity.InexactFloat64(),
			Orders:   float64(level.Orders),
		})
	}

	return levels
}

func dump(t *tree.Tree) []jsonLevel {
	levels := make([]jsonLevel, 0, t.Size())

	it := t.Iterator()
	for it.Next() {
		level := it.Value().(Level)
		levels = append(levels, jsonLevel{
			Price:    it.Key().(decimal.Decimal).String(),
			Quantity: level.Quantity.String(),
			Orders:   level.Orders,
		})
	}

	return levels
}

// comparator to sort asks, lowest first
func askComparator(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

// comparator to sort bids, highest first
func bidComparator(a, b interface{}) int {
	return b.(decimal.Decimal).Cmp(a.(decimal.Decimal))
}
