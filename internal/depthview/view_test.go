package depthview

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestView(t *testing.T, depth int) *View {
	t.Helper()

	v, err := New(Config{
		Depth:        depth,
		BidColor:     "#2ecc71",
		AskColor:     "#e74c3c",
		NeutralColor: "#ecf0f1",
		Fade:         time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return v
}

func find(cells []CellUpdate, key CellKey) (CellUpdate, bool) {
	for _, c := range cells {
		if c.Key() == key {
			return c, true
		}
	}

	return CellUpdate{}, false
}

func levels(prices ...float64) []PriceLevel {
	out := make([]PriceLevel, 0, len(prices))
	for _, p := range prices {
		out = append(out, PriceLevel{Price: p, Quantity: 1, Orders: 1})
	}

	return out
}

func TestNewRejectsInvalidDepth(t *testing.T) {
	if _, err := New(Config{Depth: 0}); err != ErrInvalidDepth {
		t.Fatalf("expected ErrInvalidDepth, got %v", err)
	}
}

func TestUpdateSpread(t *testing.T) {
	v := newTestView(t, 3)

	b := v.Update(Snapshot{
		Bids: levels(100, 99, 98),
		Asks: levels(101, 102, 103),
	})

	if c, ok := find(b.Cells, CellKey{Side: Bid, Field: FieldPrice, Row: 0}); !ok || c.Value != "100.00" {
		t.Fatalf("best bid row 0 = %+v, %v", c, ok)
	}

	if c, ok := find(b.Cells, CellKey{Side: Ask, Field: FieldPrice, Row: 2}); !ok || c.Value != "101.00" {
		t.Fatalf("best ask row 2 = %+v, %v", c, ok)
	}

	if c, ok := find(b.Cells, CellKey{Field: FieldSpread}); !ok || c.Value != "1.00" {
		t.Fatalf("spread = %+v, %v", c, ok)
	}

	if last := b.Cells[len(b.Cells)-1]; last.Field != FieldSpread {
		t.Fatalf("spread should be the last instruction, got %+v", last)
	}
}

func TestSpreadUnavailableBeforeBothEdges(t *testing.T) {
	v := newTestView(t, 3)

	if _, ok := v.Spread(); ok {
		t.Fatalf("spread should be unavailable on an empty view")
	}

	b := v.Update(Snapshot{Bids: levels(100)})
	if _, ok := find(b.Cells, CellKey{Field: FieldSpread}); ok {
		t.Fatalf("spread emitted with no ask shown")
	}

	b = v.Update(Snapshot{Asks: levels(100.5)})
	if c, ok := find(b.Cells, CellKey{Field: FieldSpread}); !ok || c.Value != "0.50" {
		t.Fatalf("spread = %+v, %v", c, ok)
	}
}

func TestTruncationLeavesRowsUntouched(t *testing.T) {
	v := newTestView(t, 5)

	v.Update(Snapshot{Asks: levels(10, 11, 12, 13, 14)})

	b := v.Update(Snapshot{Asks: levels(20, 21)})

	for _, c := range b.Cells {
		if c.Field == FieldSpread {
			continue
		}

		if c.Side != Ask || (c.Row != 4 && c.Row != 3) {
			t.Fatalf("unexpected write to %+v", c)
		}
	}

	want := map[int]string{0: "14.00", 1: "13.00", 2: "12.00", 3: "21.00", 4: "20.00"}
	for row, price := range want {
		if got := v.table.row(RowKey{Side: Ask, Row: row}).price; got != price {
			t.Fatalf("ask row %d = %q, want %q", row, got, price)
		}
	}
}

func TestExcessLevelsIgnored(t *testing.T) {
	v := newTestView(t, 2)

	b := v.Update(Snapshot{Bids: levels(5, 4, 3, 2, 1)})

	for _, c := range b.Cells {
		if c.Row >= 2 {
			t.Fatalf("level beyond depth was written: %+v", c)
		}
	}
}

func TestFirstUpdateHasZeroDelta(t *testing.T) {
	v := newTestView(t, 3)

	b := v.Update(Snapshot{Bids: levels(100)})

	c, ok := find(b.Cells, CellKey{Side: Bid, Field: FieldDelta, Row: 0})
	if !ok || c.Value != "0.0000" {
		t.Fatalf("first delta = %+v, %v", c, ok)
	}
}

func TestDeltaTelescopes(t *testing.T) {
	v := newTestView(t, 3)

	prices := []float64{100.10, 100.37, 99.82, 101.05}
	for _, p := range prices {
		v.Update(Snapshot{Bids: levels(p)})
	}

	want := decimal.NewFromFloat(prices[len(prices)-1]).Sub(decimal.NewFromFloat(prices[0]))
	got := v.deltas.value(RowKey{Side: Bid, Row: 0})

	if !got.Equal(want) {
		t.Fatalf("accumulated delta = %s, want %s", got, want)
	}

	if r := v.table.row(RowKey{Side: Bid, Row: 0}); r.delta != "0.9500" {
		t.Fatalf("rendered delta = %q", r.delta)
	}
}

func TestDeltaKeyedByDisplayRow(t *testing.T) {
	v := newTestView(t, 3)

	v.Update(Snapshot{Asks: levels(101, 102, 103)})
	b := v.Update(Snapshot{Asks: levels(100.5, 102, 103)})

	// the best ask lives on row 2 and moved by -0.5
	c, ok := find(b.Cells, CellKey{Side: Ask, Field: FieldDelta, Row: 2})
	if !ok || c.Value != "-0.5000" {
		t.Fatalf("ask row 2 delta = %+v, %v", c, ok)
	}

	if _, ok := find(b.Cells, CellKey{Side: Ask, Field: FieldDelta, Row: 0}); ok {
		t.Fatalf("unchanged row 0 should not get a delta write")
	}
}

func TestRepeatedSnapshotIsNoop(t *testing.T) {
	v := newTestView(t, 3)
	snap := Snapshot{Bids: levels(100, 99, 98), Asks: levels(101, 102, 103)}

	v.Update(snap)

	if b := v.Update(snap); len(b.Cells) != 0 {
		t.Fatalf("repeated snapshot produced writes: %+v", b.Cells)
	}

	if spread, ok := v.Spread(); !ok || spread != "1.00" {
		t.Fatalf("spread = %q, %v", spread, ok)
	}
}

func TestSpreadEmittedOnlyWhenItChanges(t *testing.T) {
	v := newTestView(t, 2)

	v.Update(Snapshot{Bids: levels(100, 99), Asks: levels(101, 102)})

	// a deeper level moves, the edges do not
	b := v.Update(Snapshot{Bids: levels(100, 98), Asks: levels(101, 102)})
	if _, ok := find(b.Cells, CellKey{Field: FieldSpread}); ok {
		t.Fatalf("unchanged spread was emitted: %+v", b.Cells)
	}

	b = v.Update(Snapshot{Bids: levels(100.5, 98), Asks: levels(101, 102)})
	if c, ok := find(b.Cells, CellKey{Field: FieldSpread}); !ok || c.Value != "0.50" {
		t.Fatalf("spread = %+v, %v", c, ok)
	}
}

func TestSpreadUsesDisplayedPrices(t *testing.T) {
	v := newTestView(t, 1)

	b := v.Update(Snapshot{Bids: levels(100.004), Asks: levels(100.006)})

	if r := v.table.row(RowKey{Side: Bid, Row: 0}); r.price != "100.00" {
		t.Fatalf("bid shown as %q", r.price)
	}

	if r := v.table.row(RowKey{Side: Ask, Row: 0}); r.price != "100.01" {
		t.Fatalf("ask shown as %q", r.price)
	}

	if c, ok := find(b.Cells, CellKey{Field: FieldSpread}); !ok || c.Value != "0.01" {
		t.Fatalf("spread = %+v, %v", c, ok)
	}
}

func TestDeltaFollowsDisplayedPrice(t *testing.T) {
	v := newTestView(t, 1)

	v.Update(Snapshot{Bids: levels(100.001)})

	// the move is hidden by rounding, so neither price nor delta change
	b := v.Update(Snapshot{Bids: levels(100.004)})
	if len(b.Cells) != 0 {
		t.Fatalf("hidden move produced writes: %+v", b.Cells)
	}

	if got := v.deltas.value(RowKey{Side: Bid, Row: 0}); !got.IsZero() {
		t.Fatalf("delta moved without a visible price change: %s", got)
	}

	b = v.Update(Snapshot{Bids: levels(100.016)})
	if c, ok := find(b.Cells, CellKey{Side: Bid, Field: FieldDelta, Row: 0}); !ok || c.Value != "0.0200" {
		t.Fatalf("delta = %+v, %v", c, ok)
	}

	if c, ok := find(b.Cells, CellKey{Side: Bid, Field: FieldPrice, Row: 0}); !ok || c.Value != "100.02" {
		t.Fatalf("price = %+v, %v", c, ok)
	}
}

func TestHighlightOnlyOnOrdersAndQuantity(t *testing.T) {
	v := newTestView(t, 2)

	b := v.Update(Snapshot{Bids: []PriceLevel{{Price: 100, Quantity: 1.5, Orders: 3}}})

	for _, c := range b.Cells {
		switch c.Field {
		case FieldOrders, FieldQuantity:
			if c.Highlight == nil || c.Highlight.Color != "#2ecc71" || c.Highlight.FadeTo != "#ecf0f1" || c.Highlight.FadeMs != 1000 {
				t.Fatalf("missing bid highlight on %+v", c)
			}
		default:
			if c.Highlight != nil {
				t.Fatalf("unexpected highlight on %+v", c)
			}
		}
	}

	b = v.Update(Snapshot{Bids: []PriceLevel{{Price: 100, Quantity: 2, Orders: 3}}})

	if len(b.Cells) != 1 || b.Cells[0].Field != FieldQuantity || b.Cells[0].Value != "2.000000" {
		t.Fatalf("expected a single quantity write, got %+v", b.Cells)
	}
}

func TestNonFiniteInputSkipsCell(t *testing.T) {
	v := newTestView(t, 2)

	v.Update(Snapshot{Bids: levels(100)})

	b := v.Update(Snapshot{Bids: []PriceLevel{{Price: math.NaN(), Quantity: math.Inf(1), Orders: 4}}})

	if b.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", b.Skipped)
	}

	if r := v.table.row(RowKey{Side: Bid, Row: 0}); r.price != "100.00" || r.quantity != "1.000000" || r.orders != "4" {
		t.Fatalf("row corrupted: %+v", r)
	}

	if got := v.deltas.value(RowKey{Side: Bid, Row: 0}); !got.IsZero() {
		t.Fatalf("delta moved on a skipped price: %s", got)
	}
}

func TestResetDeltas(t *testing.T) {
	v := newTestView(t, 2)

	v.Update(Snapshot{Bids: levels(100, 99)})
	v.Update(Snapshot{Bids: levels(101, 99)})

	cells := v.ResetDeltas()
	if len(cells) != 1 || cells[0].Key() != (CellKey{Side: Bid, Field: FieldDelta, Row: 0}) || cells[0].Value != "0.0000" {
		t.Fatalf("reset cells = %+v", cells)
	}

	b := v.Update(Snapshot{Bids: levels(102, 99)})
	if c, ok := find(b.Cells, CellKey{Side: Bid, Field: FieldDelta, Row: 0}); !ok || c.Value != "1.0000" {
		t.Fatalf("delta after reset = %+v, %v", c, ok)
	}
}

func TestCellsReturnsCurrentState(t *testing.T) {
	v := newTestView(t, 2)

	v.Update(Snapshot{Bids: levels(100, 99), Asks: levels(101)})

	cells := v.Cells()

	// 2 bid rows + 1 ask row, four cells each, plus the spread
	if len(cells) != 13 {
		t.Fatalf("len(cells) = %d", len(cells))
	}

	for _, c := range cells {
		if c.Highlight != nil {
			t.Fatalf("state cell carries a highlight: %+v", c)
		}
	}

	if c, ok := find(cells, CellKey{Side: Ask, Field: FieldPrice, Row: 1}); !ok || c.Value != "101.00" {
		t.Fatalf("ask row 1 = %+v, %v", c, ok)
	}
}
