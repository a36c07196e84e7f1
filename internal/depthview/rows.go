package depthview

import "github.com/shopspring/decimal"

// MapRow converts a snapshot index into a display row index. Bids keep
// snapshot order; asks are reversed so the best ask sits on the bottom row,
// right above the spread. Indices outside [0, depth) are not mapped.
func MapRow(side Side, index, depth int) (int, bool) {
	if !side.valid() || depth <= 0 || index < 0 || index >= depth {
		return 0, false
	}

	if side == Ask {
		return depth - 1 - index, true
	}

	return index, true
}

// displayRow holds what was last rendered for one row.
type displayRow struct {
	orders   string
	quantity string
	price    string
	delta    string

	// price as displayed (rounded to the price cell's places); hasPrice is
	// false until the first write
	priceValue decimal.Decimal
	hasPrice   bool
}

func (r *displayRow) cell(field Field) *string {
	switch field {
	case FieldOrders:
		return &r.orders
	case FieldQuantity:
		return &r.quantity
	case FieldPrice:
		return &r.price
	case FieldDelta:
		return &r.delta
	default:
		return nil
	}
}

// rowTable is the fixed arena of display rows, one slice per side.
type rowTable struct {
	depth int
	sides [sideCount][]displayRow
}

func newRowTable(depth int) *rowTable {
	t := &rowTable{depth: depth}
	for i := range t.sides {
		t.sides[i] = make([]displayRow, depth)
	}

	return t
}

func (t *rowTable) row(key RowKey) *displayRow {
	return &t.sides[key.Side.index()][key.Row]
}
