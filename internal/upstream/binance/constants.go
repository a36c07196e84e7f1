package binance

const (
	subscribe, unsubscribe = "SUBSCRIBE", "UNSUBSCRIBE"
	depthUpdateEvent       = "depthUpdate"
	sourceName             = "binance"
)

var depthStr = "%s@depth@100ms"

// events buffered before the snapshot lands
const maxPendingEvents = 10000
