package binance

import "sync"

type IDGenerator struct {
	uniqueReqId int
	mutex       sync.Mutex
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// unique request id sent with every websocket request
func (g *IDGenerator) getUniqueReqId() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.uniqueReqId++

	return g.uniqueReqId
}
