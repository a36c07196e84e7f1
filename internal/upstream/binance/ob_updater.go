package binance

import (
	"github.com/shopspring/decimal"

	"depth-feed/internal/logger"
	"depth-feed/internal/orderbook"
)

type Updater interface {
	ReplaceSnapshot(symbol string, bids, asks []orderbook.Update)
	UpdateBids(symbol string, bids []orderbook.Update)
	UpdateAsks(symbol string, asks []orderbook.Update)
}

type OBUpdater struct {
	Updater
}

func NewOBUpdater(u Updater) *OBUpdater {
	return &OBUpdater{
		Updater: u,
	}
}

func (u *OBUpdater) updateSnapshot(symbol string, snapshot *Snapshot) {
	u.ReplaceSnapshot(symbol, parseLevels(symbol, "bid", snapshot.Bids), parseLevels(symbol, "ask", snapshot.Asks))
}

func (u *OBUpdater) applyDiff(symbol string, event *EventUpdate) {
	u.UpdateBids(symbol, parseLevels(symbol, "bid", event.Bids))
	u.UpdateAsks(symbol, parseLevels(symbol, "ask", event.Asks))
}

// parseLevels turns [price, qty] string pairs into store updates. Binance
// does not report order counts. Malformed entries are logged and dropped.
func parseLevels(symbol, side string, entries [][]string) []orderbook.Update {
	updates := make([]orderbook.Update, 0, len(entries))

	for _, entry := range entries {
		if len(entry) < 2 {
			continue
		}

		price, err := decimal.NewFromString(entry[0])
		if err != nil {
			logger.GetLogger().WithFields(logger.Fields{"symbol": symbol, "side": side}).WithError(err).Error("Error on parsing entry price")

			continue
		}

		qty, err := decimal.NewFromString(entry[1])
		if err != nil {
			logger.GetLogger().WithFields(logger.Fields{"symbol": symbol, "side": side}).WithError(err).Error("Error on parsing entry quantity")

			continue
		}

		updates = append(updates, orderbook.Update{Price: price, Quantity: qty})
	}

	return updates
}
