package depthview

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	quantityPlaces = 6
	pricePlaces    = 2
	deltaPlaces    = 4
	spreadPlaces   = 2
)

// FormatCell renders value the way the ladder shows field. ok is false for
// NaN and infinities, in which case the cell must be left as it is.
func FormatCell(field Field, value float64) (string, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", false
	}

	switch field {
	case FieldQuantity:
		return decimal.NewFromFloat(value).StringFixed(quantityPlaces), true
	case FieldPrice:
		return decimal.NewFromFloat(value).StringFixed(pricePlaces), true
	case FieldOrders:
		return decimal.NewFromFloat(value).Truncate(0).String(), true
	default:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	}
}

func formatDelta(d decimal.Decimal) string {
	return d.StringFixed(deltaPlaces)
}

func formatSpread(d decimal.Decimal) string {
	return d.StringFixed(spreadPlaces)
}
