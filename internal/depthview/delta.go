package depthview

import "github.com/shopspring/decimal"

// deltaTracker keeps a running price movement per display row. It only ever
// adds; clearing is the host's decision (View.ResetDeltas).
type deltaTracker struct {
	table *rowTable
	acc   [sideCount][]decimal.Decimal
}

func newDeltaTracker(table *rowTable) *deltaTracker {
	t := &deltaTracker{table: table}
	for i := range t.acc {
		t.acc[i] = make([]decimal.Decimal, table.depth)
	}

	return t
}

// accumulate adds the move from the row's displayed price to newPrice, the
// price about to be displayed, and returns the new running delta. A row that never showed a price starts at
// zero. It must run before the row's price is overwritten.
func (t *deltaTracker) accumulate(key RowKey, newPrice decimal.Decimal) decimal.Decimal {
	priceOld := newPrice

	if r := t.table.row(key); r.hasPrice {
		priceOld = r.priceValue
	}

	acc := &t.acc[key.Side.index()][key.Row]
	*acc = acc.Add(newPrice.Sub(priceOld))

	return *acc
}

func (t *deltaTracker) value(key RowKey) decimal.Decimal {
	return t.acc[key.Side.index()][key.Row]
}

func (t *deltaTracker) reset() {
	for i := range t.acc {
		clear(t.acc[i])
	}
}
