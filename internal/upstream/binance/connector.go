package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"depth-feed/internal/logger"
)

type WSClient struct {
	url      string
	conn     *websocket.Conn
	requests chan []byte
}

func NewWSClient(url string, requests chan []byte) *WSClient {
	return &WSClient{
		url:      url,
		requests: requests,
	}
}

func (ws *WSClient) ConnectToServer(ctx context.Context) error {
	log := logger.GetLogger().WithFields(logger.Fields{"component": "binance", "url": ws.url})
	log.Info("connecting to websocket")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ws.url, nil)
	if err != nil {
		log.WithError(err).Error("Websocket connectivity issue")

		return fmt.Errorf("dial %s: %w", ws.url, err)
	}

	log.Info("Connected to websocket")

	ws.conn = conn

	return nil
}

// SendRequests writes queued requests until ctx is done.
func (ws *WSClient) SendRequests(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case request := <-ws.requests:
			logger.GetLogger().WithFields(logger.Fields{"request": string(request)}).Info("Sending websocket request")

			if err := ws.conn.WriteMessage(websocket.TextMessage, request); err != nil {
				return fmt.Errorf("send request: %w", err)
			}
		}
	}
}

func (ws *WSClient) CloseConnection() error {
	if ws.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := ws.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		logger.GetLogger().WithError(err).Debug("Error on writing close request to websocket")
	}

	return ws.conn.Close()
}

// readWSMessages forwards every non-empty frame to bufferedMsgs. Cancelling
// ctx closes the connection to unblock the read.
func (ws *WSClient) readWSMessages(ctx context.Context, bufferedMsgs chan<- []byte) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ws.conn.Close()
	})
	defer stop()

	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("read websocket: %w", err)
		}

		if len(message) == 0 {
			continue
		}

		select {
		case bufferedMsgs <- message:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
