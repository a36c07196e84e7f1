package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"depth-feed/internal/logger"
)

type Subscriber struct {
	requests          chan<- []byte
	uniqueIdGenerator *IDGenerator
}

func NewSubscriber(requests chan<- []byte, idGen *IDGenerator) *Subscriber {
	return &Subscriber{
		requests:          requests,
		uniqueIdGenerator: idGen,
	}
}

func (s *Subscriber) SubscribeToSymbol(ctx context.Context, symbol string) error {
	return s.send(ctx, subscribe, symbol)
}

func (s *Subscriber) UnsubscribeToSymbol(ctx context.Context, symbol string) error {
	return s.send(ctx, unsubscribe, symbol)
}

func (s *Subscriber) send(ctx context.Context, method, symbol string) error {
	request := SubscriptionRequest{
		Method: method,
		Params: []string{fmt.Sprintf(depthStr, strings.ToLower(symbol))},
		Id:     s.uniqueIdGenerator.getUniqueReqId(),
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	logger.GetLogger().WithFields(logger.Fields{"symbol": symbol, "method": method}).Info("Queueing subscription request")

	select {
	case s.requests <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
