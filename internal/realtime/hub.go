// Package realtime fans out broadcast events to websocket subscribers of a channel.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventOrderCreated is sent on a group's order channel after an order is committed.
const EventOrderCreated = "ORDER_CREATED"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// OrdersChannel returns the channel name carrying order events for a group.
func OrdersChannel(groupID string) string {
	return "orders_group-" + groupID
}

// Message is the frame delivered to subscribers.
type Message struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Gauge tracks the number of connected subscribers.
type Gauge interface {
	Inc()
	Dec()
}

// Hub keeps the subscribers of every channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*subscriber]struct{}
	closed   bool

	upgrader websocket.Upgrader
	gauge    Gauge
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin; gauge may be nil.
func NewHub(checkOrigin func(r *http.Request) bool, gauge Gauge) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		channels: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		gauge: gauge,
	}
}

// ServeWS upgrades the request and subscribes the connection to channel until
// the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, channel string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(channel, sub) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return nil
	}

	slog.Debug("realtime subscriber connected", "channel", channel, "remote_addr", r.RemoteAddr)

	go h.writeLoop(channel, sub)
	h.readLoop(channel, sub)
	return nil
}

// Broadcast sends an event to every subscriber of channel. Subscribers whose
// buffers are full are disconnected rather than blocking the caller.
func (h *Hub) Broadcast(channel, event string, payload any) error {
	data, err := json.Marshal(Message{Type: "broadcast", Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode broadcast: %w", err)
	}

	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.channels[channel] {
		select {
		case sub.send <- data:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		slog.Warn("dropping slow realtime subscriber", "channel", channel)
		h.remove(channel, sub)
	}
	return nil
}

// Subscribers returns the number of subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []struct {
		channel string
		sub     *subscriber
	}
	for channel, subs := range h.channels {
		for sub := range subs {
			all = append(all, struct {
				channel string
				sub     *subscriber
			}{channel, sub})
		}
	}
	h.mu.Unlock()

	for _, entry := range all {
		h.remove(entry.channel, entry.sub)
	}
}

func (h *Hub) add(channel string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.channels[channel] = subs
	}
	subs[sub] = struct{}{}
	if h.gauge != nil {
		h.gauge.Inc()
	}
	return true
}

// remove unsubscribes sub and closes its send channel, which ends the write loop.
func (h *Hub) remove(channel string, sub *subscriber) {
	sub.once.Do(func() {
		h.mu.Lock()
		if subs, ok := h.channels[channel]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.channels, channel)
			}
		}
		h.mu.Unlock()

		if h.gauge != nil {
			h.gauge.Dec()
		}
		close(sub.send)
	})
}

// readLoop discards client frames and returns when the connection fails.
func (h *Hub) readLoop(channel string, sub *subscriber) {
	defer h.remove(channel, sub)

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("realtime subscriber read failed", "channel", channel, "error", err)
			}
			return
		}
	}
}

// writeLoop is the only goroutine writing to the connection.
func (h *Hub) writeLoop(channel string, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(channel, sub)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(channel, sub)
				return
			}
		}
	}
}
