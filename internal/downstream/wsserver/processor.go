package wsserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"depth-feed/internal/depthfeed"
	"depth-feed/internal/depthview"
	"depth-feed/internal/logger"
	"depth-feed/internal/subscribers"
)

const (
	resetDeltas = "RESET"
)

type DeltaResetter interface {
	ResetDeltas() []depthview.CellUpdate
}

type RequestProcessor struct {
	hub      *Hub
	users    *subscribers.Handler
	resetter DeltaResetter
}

func NewProcessor(hub *Hub, users *subscribers.Handler, resetter DeltaResetter) *RequestProcessor {
	return &RequestProcessor{
		hub:      hub,
		users:    users,
		resetter: resetter,
	}
}

// handleConnection attaches the connection to the hub and reads client
// commands until it goes away.
func (p *RequestProcessor) handleConnection(conn *websocket.Conn, r *http.Request) {
	user := p.users.AddNewUser(r.RemoteAddr, r.UserAgent())

	client := &Client{
		hub:  p.hub,
		conn: conn,
		send: make(chan []byte, p.hub.sendBuf),
		user: user,
	}

	if !p.hub.attachClient(client) {
		p.users.DropUser(user.ID)
		_ = conn.Close()

		return
	}

	go client.writePump()

	defer p.hub.detachClient(client)

	log := logger.GetLogger().WithFields(logger.Fields{"client": user.ID.String()})

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WithError(err).Warn("Error reading message")
			}

			return
		}

		msgArgs := strings.Fields(string(message))
		if len(msgArgs) == 0 {
			continue
		}

		log.WithFields(logger.Fields{"message": string(message)}).Debug("Message received")

		switch strings.ToUpper(msgArgs[0]) {
		case resetDeltas:
			// the zeroed cells reach every client through the hub
			p.resetter.ResetDeltas()
		default:
			log.WithFields(logger.Fields{"command": msgArgs[0]}).Info("Unknown command received")
			p.hub.reply(client, depthfeed.ErrorMessage("unknown command "+msgArgs[0]))
		}
	}
}

// writePump serializes all writes to the websocket connection. Queued
// messages are batched into one frame, newline separated.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)

				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			if _, err := w.Write(message); err != nil {
				_ = w.Close()

				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				msg, ok := <-c.send
				if !ok {
					break
				}

				if _, err := w.Write([]byte("\n")); err != nil {
					break
				}

				if _, err := w.Write(msg); err != nil {
					break
				}
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
