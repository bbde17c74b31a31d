// README: Websocket hub; bridges the event broker and tracking polls to clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cargoflow/internal/events"
	"cargoflow/internal/tracking"
	"cargoflow/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1024
)

// Hub upgrades connections and runs one client per socket. Every broker
// event is broadcast to every client; tracking polls are per client.
type Hub struct {
	broker   *events.Broker
	poller   *tracking.Poller
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewHub(broker *events.Broker, poller *tracking.Poller, log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		broker: broker,
		poller: poller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is token-authenticated; the socket carries only
			// broadcast data, so any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Handler is the gin endpoint performing the upgrade.
func (h *Hub) Handler(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &client{hub: h, conn: conn, send: make(chan []byte, 64)}
	client.run(c.Request.Context())
}

// clientMessage is what a connected client may send.
type clientMessage struct {
	Type      string   `json:"type"`
	BookingID types.ID `json:"booking_id"`
	DriverID  types.ID `json:"driver_id"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.Mutex
	polls map[types.ID]context.CancelFunc
}

// run wires the pumps and blocks until the connection dies. Teardown
// cancels the connection context, which stops every tracking poll and
// the broker feed on all exit paths.
func (c *client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sub := c.hub.broker.Subscribe()
	defer c.hub.broker.Unsubscribe(sub)

	c.polls = make(map[types.ID]context.CancelFunc)

	go c.writePump(ctx)
	go c.feedEvents(ctx, sub)
	c.readPump(ctx, cancel)
}

func (c *client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "track_booking":
			c.trackBooking(ctx, msg.BookingID)
		case "untrack_booking":
			c.untrackBooking(msg.BookingID)
		}
	}
}

// trackBooking starts a poll for the booking unless one is already
// running on this connection.
func (c *client) trackBooking(ctx context.Context, bookingID types.ID) {
	if bookingID <= 0 {
		return
	}
	c.mu.Lock()
	if _, running := c.polls[bookingID]; running {
		c.mu.Unlock()
		return
	}
	pollCtx, stop := context.WithCancel(ctx)
	c.polls[bookingID] = stop
	c.mu.Unlock()

	go func() {
		defer c.untrackBooking(bookingID)
		_ = c.hub.poller.Run(pollCtx, bookingID, func(snap tracking.Snapshot) {
			c.enqueue(events.Event{Kind: events.KindBookingUpdate, Payload: snap})
		})
	}()
}

func (c *client) untrackBooking(bookingID types.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stop, ok := c.polls[bookingID]; ok {
		stop()
		delete(c.polls, bookingID)
	}
}

func (c *client) feedEvents(ctx context.Context, sub *events.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.enqueue(ev)
		}
	}
}

// enqueue marshals and queues an event; a full queue drops the frame
// rather than stalling the broker or the poller.
func (c *client) enqueue(ev events.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
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
