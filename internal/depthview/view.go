package depthview

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidDepth = errors.New("depth must be greater than 0")

// PriceLevel is one entry of a snapshot side, best price first.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"qty"`
	Orders   float64 `json:"orders"`
}

// Snapshot is the book as delivered on one update tick.
type Snapshot struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// Config is fixed for the lifetime of a View.
type Config struct {
	Depth        int
	BidColor     string
	AskColor     string
	NeutralColor string
	Fade         time.Duration
}

// Highlight asks the presentation to flash a cell in Color and fade it to
// FadeTo over FadeMs milliseconds.
type Highlight struct {
	Color  string `json:"color"`
	FadeTo string `json:"fade_to"`
	FadeMs int64  `json:"fade_ms"`
}

// CellUpdate is one write instruction for the presentation surface.
type CellUpdate struct {
	Side      Side       `json:"side,omitempty"`
	Field     Field      `json:"field"`
	Row       int        `json:"row"`
	Value     string     `json:"value"`
	Highlight *Highlight `json:"highlight,omitempty"`
}

func (c CellUpdate) Key() CellKey {
	return CellKey{Side: c.Side, Field: c.Field, Row: c.Row}
}

// Batch is the result of one synchronization pass.
type Batch struct {
	Cells []CellUpdate
	// Skipped counts cells left untouched because of non-finite input.
	Skipped int
}

// Layout describes the empty ladder the presentation builds once.
type Layout struct {
	Depth        int    `json:"depth"`
	BidColor     string `json:"bid_color"`
	AskColor     string `json:"ask_color"`
	NeutralColor string `json:"neutral_color"`
}

// View owns the rendered state of both ladders. It is not safe for
// concurrent use: the caller runs one pass at a time.
type View struct {
	cfg    Config
	table  *rowTable
	deltas *deltaTracker

	// last rendered spread, empty until both edge rows hold a price
	spread string
}

func New(cfg Config) (*View, error) {
	if cfg.Depth <= 0 {
		return nil, ErrInvalidDepth
	}

	table := newRowTable(cfg.Depth)

	return &View{
		cfg:    cfg,
		table:  table,
		deltas: newDeltaTracker(table),
	}, nil
}

func (v *View) Depth() int {
	return v.cfg.Depth
}

func (v *View) Layout() Layout {
	return Layout{
		Depth:        v.cfg.Depth,
		BidColor:     v.cfg.BidColor,
		AskColor:     v.cfg.AskColor,
		NeutralColor: v.cfg.NeutralColor,
	}
}

// Update synchronizes the ladders with snap and returns the cells that
// changed. The spread is recomputed on every pass and closes the batch when
// its rendering changed.
func (v *View) Update(snap Snapshot) Batch {
	var b Batch

	v.syncSide(&b, Ask, snap.Asks, v.cfg.AskColor)
	v.syncSide(&b, Bid, snap.Bids, v.cfg.BidColor)

	if spread, ok := v.Spread(); ok && spread != v.spread {
		v.spread = spread
		b.Cells = append(b.Cells, CellUpdate{Field: FieldSpread, Value: spread})
	}

	return b
}

func (v *View) syncSide(b *Batch, side Side, levels []PriceLevel, color string) {
	n := min(len(levels), v.cfg.Depth)

	for index := 0; index < n; index++ {
		row, ok := MapRow(side, index, v.cfg.Depth)
		if !ok {
			continue
		}

		level := levels[index]

		v.writeCell(b, side, row, FieldOrders, level.Orders, v.highlight(color))
		v.writeCell(b, side, row, FieldQuantity, level.Quantity, v.highlight(color))
		v.writePrice(b, side, row, level.Price)
	}
}

// writePrice moves the delta before replacing the row's price. The price
// cell itself is never highlighted.
func (v *View) writePrice(b *Batch, side Side, row int, price float64) {
	text, ok := FormatCell(FieldPrice, price)
	if !ok {
		b.Skipped++

		return
	}

	// deltas move with what the ladder shows, not with the raw feed price
	shown, err := decimal.NewFromString(text)
	if err != nil {
		b.Skipped++

		return
	}

	key := RowKey{Side: side, Row: row}
	r := v.table.row(key)

	delta := formatDelta(v.deltas.accumulate(key, shown))
	if r.delta != delta {
		r.delta = delta
		b.Cells = append(b.Cells, CellUpdate{Side: side, Field: FieldDelta, Row: row, Value: delta})
	}

	r.priceValue = shown
	r.hasPrice = true

	if r.price != text {
		r.price = text
		b.Cells = append(b.Cells, CellUpdate{Side: side, Field: FieldPrice, Row: row, Value: text})
	}
}

func (v *View) writeCell(b *Batch, side Side, row int, field Field, value float64, hl *Highlight) {
	text, ok := FormatCell(field, value)
	if !ok {
		b.Skipped++

		return
	}

	cell := v.table.row(RowKey{Side: side, Row: row}).cell(field)
	if *cell == text {
		return
	}

	*cell = text
	b.Cells = append(b.Cells, CellUpdate{Side: side, Field: field, Row: row, Value: text, Highlight: hl})
}

func (v *View) highlight(color string) *Highlight {
	if color == "" {
		return nil
	}

	return &Highlight{
		Color:  color,
		FadeTo: v.cfg.NeutralColor,
		FadeMs: v.cfg.Fade.Milliseconds(),
	}
}

// Spread is the innermost ask minus the innermost bid as currently shown,
// so it always agrees with the two displayed prices. Bid row 0 holds the
// best bid and ask row depth-1 the best ask. ok is false until both rows
// have shown a price.
func (v *View) Spread() (string, bool) {
	bid := v.table.row(RowKey{Side: Bid, Row: 0})
	ask := v.table.row(RowKey{Side: Ask, Row: v.cfg.Depth - 1})

	if !bid.hasPrice || !ask.hasPrice {
		return "", false
	}

	return formatSpread(ask.priceValue.Sub(bid.priceValue)), true
}

// Cells returns every non-empty cell without highlights, asks first, so a
// freshly attached presentation can render the current state.
func (v *View) Cells() []CellUpdate {
	var cells []CellUpdate

	for _, side := range []Side{Ask, Bid} {
		for row := 0; row < v.cfg.Depth; row++ {
			r := v.table.row(RowKey{Side: side, Row: row})

			for _, field := range []Field{FieldOrders, FieldQuantity, FieldPrice, FieldDelta} {
				if text := *r.cell(field); text != "" {
					cells = append(cells, CellUpdate{Side: side, Field: field, Row: row, Value: text})
				}
			}
		}
	}

	if spread, ok := v.Spread(); ok {
		cells = append(cells, CellUpdate{Field: FieldSpread, Value: spread})
	}

	return cells
}

// ResetDeltas zeroes every running delta and returns the delta cells that
// changed as a result.
func (v *View) ResetDeltas() []CellUpdate {
	v.deltas.reset()

	zero := formatDelta(decimal.Zero)

	var cells []CellUpdate

	for _, side := range []Side{Ask, Bid} {
		for row := 0; row < v.cfg.Depth; row++ {
			r := v.table.row(RowKey{Side: side, Row: row})
			if r.delta == "" || r.delta == zero {
				continue
			}

			r.delta = zero
			cells = append(cells, CellUpdate{Side: side, Field: FieldDelta, Row: row, Value: zero})
		}
	}

	return cells
}
