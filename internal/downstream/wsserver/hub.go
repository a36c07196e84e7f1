package wsserver

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
	"depth-feed/internal/subscribers"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4 * 1024
	defaultSendBuf    = 256
	defaultPublishBuf = 4096
)

// Greeter supplies the messages a client needs before live batches, and the
// seq those messages are current as of.
type Greeter interface {
	Greeting() (uint64, [][]byte, error)
}

type publishMsg struct {
	seq  uint64
	data []byte
}

type replyMsg struct {
	client *Client
	data   []byte
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	user *subscribers.User

	// batches at or below since are already part of the greeting
	since uint64
}

// Hub owns the set of attached clients. Every mutation of that set happens
// on the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	publish    chan publishMsg
	replies    chan replyMsg
	resync     chan struct{}
	done       chan struct{}

	clients map[*Client]struct{}
	users   *subscribers.Handler
	sendBuf int

	// highest seq that never reached the hub
	lost atomic.Uint64
	log  *logger.Entry
}

func NewHub(users *subscribers.Handler) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan publishMsg, defaultPublishBuf),
		replies:    make(chan replyMsg),
		resync:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		users:      users,
		sendBuf:    defaultSendBuf,
		log:        logger.GetLogger().WithComponent("ws-hub"),
	}
}

// Run runs the hub event loop until ctx is cancelled. greeter supplies the
// state sent to every newly attached client.
func (h *Hub) Run(ctx context.Context, greeter Greeter) error {
	h.log.Info("ws hub started")

	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.attach(c, greeter)

		case c := <-h.unregister:
			h.detach(c)

		case r := <-h.replies:
			if _, ok := h.clients[r.client]; ok {
				select {
				case r.client.send <- r.data:
				default:
				}
			}

		case <-h.resync:
			h.evictStale()

		case p := <-h.publish:
			for c := range h.clients {
				if p.seq != 0 && p.seq <= c.since {
					continue
				}

				select {
				case c.send <- p.data:
				default:
					// a client that misses a batch no longer mirrors the
					// ladder, it reconnects for a fresh greeting
					h.log.WithFields(logger.Fields{"client": c.user.ID.String()}).Warn("evicting slow client")
					metrics.WSDroppedTotal.Inc()
					h.detach(c)
				}
			}

		case <-ctx.Done():
			h.log.Info("ws hub shutting down")

			for c := range h.clients {
				h.detach(c)
			}

			return nil
		}
	}
}

// Publish queues data for every client without blocking the caller. A
// dropped batch with a seq leaves every client greeted before it out of
// date, so those clients are evicted on the next hub iteration.
func (h *Hub) Publish(seq uint64, data []byte) {
	select {
	case h.publish <- publishMsg{seq: seq, data: data}:
	default:
		metrics.WSPublishDropsTotal.Inc()
		h.log.WithFields(logger.Fields{"seq": seq}).Warn("publish channel full, dropping message")

		if seq != 0 {
			h.markLost(seq)
		}
	}
}

func (h *Hub) markLost(seq uint64) {
	for {
		cur := h.lost.Load()
		if seq <= cur || h.lost.CompareAndSwap(cur, seq) {
			break
		}
	}

	select {
	case h.resync <- struct{}{}:
	default:
	}
}

// evictStale detaches every client whose greeting predates a lost batch.
func (h *Hub) evictStale() {
	lost := h.lost.Load()

	for c := range h.clients {
		if c.since >= lost {
			continue
		}

		h.log.WithFields(logger.Fields{"client": c.user.ID.String(), "lost_seq": lost}).Warn("evicting client that missed a batch")
		metrics.WSDroppedTotal.Inc()
		h.detach(c)
	}
}

func (h *Hub) attach(c *Client, greeter Greeter) {
	seq, greeting, err := greeter.Greeting()
	if err != nil {
		h.log.WithError(err).Error("failed to build greeting")
		close(c.send)
		h.users.DropUser(c.user.ID)

		return
	}

	for _, msg := range greeting {
		c.send <- msg
	}

	c.since = seq
	h.clients[c] = struct{}{}
	metrics.WSClients.Set(float64(len(h.clients)))
}

func (h *Hub) detach(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)

	if c.conn != nil {
		_ = c.conn.Close()
	}

	h.users.DropUser(c.user.ID)
	metrics.WSClients.Set(float64(len(h.clients)))
}

func (h *Hub) attachClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// reply sends data to one client only.
func (h *Hub) reply(c *Client, data []byte) {
	select {
	case h.replies <- replyMsg{client: c, data: data}:
	case <-h.done:
	}
}

func (h *Hub) detachClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
