package binance

type EventUpdate struct {
	EventType     string     `json:"e"`
	EventTime     int64      `json:"E"`
	Symbol        string     `json:"s"`
	FirstUpdateId int64      `json:"U"`
	FinalUpdateId int64      `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
}

type Snapshot struct {
	LastUpdateId int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// SubscriptionRequest to Binance to subscribe or unsubscribe a stream.
type SubscriptionRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	Id     int      `json:"id"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// envelope is decoded first to tell request responses from stream events.
type envelope struct {
	EventType string    `json:"e"`
	Id        *int      `json:"id"`
	Error     *apiError `json:"error"`
}
