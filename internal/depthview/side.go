package depthview

import "fmt"

// Side identifies one ladder of the book. The zero value is "no side" and is
// used by cells that belong to neither ladder (the spread).
type Side int

const (
	Bid Side = iota + 1
	Ask
)

const sideCount = 2

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return ""
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "bid":
		*s = Bid
	case "ask":
		*s = Ask
	case "":
		*s = 0
	default:
		return fmt.Errorf("unknown side %q", text)
	}

	return nil
}

func (s Side) valid() bool {
	return s == Bid || s == Ask
}

func (s Side) index() int {
	return int(s) - 1
}

// Field is the column of a display row.
type Field int

const (
	FieldOrders Field = iota
	FieldQuantity
	FieldPrice
	FieldDelta
	FieldSpread
	FieldGeneric
)

func (f Field) String() string {
	switch f {
	case FieldOrders:
		return "orders"
	case FieldQuantity:
		return "qty"
	case FieldPrice:
		return "price"
	case FieldDelta:
		return "delta"
	case FieldSpread:
		return "spread"
	default:
		return "generic"
	}
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	for candidate := FieldOrders; candidate <= FieldGeneric; candidate++ {
		if candidate.String() == string(text) {
			*f = candidate

			return nil
		}
	}

	return fmt.Errorf("unknown field %q", text)
}

// RowKey addresses one display row.
type RowKey struct {
	Side Side
	Row  int
}

// CellKey addresses one cell of the presentation surface.
type CellKey struct {
	Side  Side
	Field Field
	Row   int
}
