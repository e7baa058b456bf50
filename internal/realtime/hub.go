// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"postdeck/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 256
	checkTimeout   = 5 * time.Second
)

// TopicCheck reports whether a caller of workspace may follow topic.
type TopicCheck func(ctx context.Context, workspaceID uuid.UUID, topic string) bool

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithTopicCheck rejects subscriptions that check refuses.
func WithTopicCheck(check TopicCheck) HubOption { return func(h *Hub) { h.check = check } }

// WithObserver calls fn with every event received from the broker, before
// it is forwarded to clients.
func WithObserver(fn func(Event)) HubOption {
	return func(h *Hub) { h.observers = append(h.observers, fn) }
}

// Hub keeps the websocket clients of this instance and forwards every
// event received from the broker to the clients subscribed to its topic.
type Hub struct {
	broker    *Broker
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	check     TopicCheck
	observers []func(Event)

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Client is one websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	feed *Feed
	user string
	// workspace is uuid.Nil for callers without a workspace header.
	workspace uuid.UUID

	mu     sync.RWMutex
	topics map[string]struct{}
}

// SubscriptionRequest is the message a client sends to change its topics.
type SubscriptionRequest struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

// NewHub creates a Hub. Websocket upgrades are accepted from the given
// origins and from same-origin requests. m may be nil.
func NewHub(broker *Broker, allowedOrigins []string, m *metrics.Metrics, opts ...HubOption) *Hub {
	h := &Hub{
		broker:  broker,
		metrics: m,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run receives events from the broker until ctx is cancelled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) error {
	pubsub := h.broker.Subscribe(ctx)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime subscribe: %w", err)
	}
	slog.Info("realtime hub subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			slog.Info("realtime hub shutting down")
			return nil
		case msg, ok := <-ch:
			if !ok {
				h.closeAll()
				return fmt.Errorf("realtime subscription closed")
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("realtime event decode failed", "channel", msg.Channel, "error", err)
				continue
			}
			h.dispatch(ev)
		}
	}
}

// Subscribers returns how many clients currently follow topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.isSubscribed(topic) {
			n++
		}
	}
	return n
}

func (h *Hub) dispatch(ev Event) {
	for _, fn := range h.observers {
		fn(ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("realtime event encode failed", "type", ev.Type, "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.isSubscribed(ev.Topic) || !c.feed.Accept(ev) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Debug("dropping slow realtime client", "user", c.user)
		h.remove(c)
	}
}

// ServeWS upgrades the request and attaches a client for user acting in
// workspace. Events authored by user are not echoed back to this
// connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user string, workspace uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		feed:      NewFeed(user, DefaultFeedMemory),
		user:      user,
		workspace: workspace,
		topics:    make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncrementConnections()
	}

	go c.writePump()
	go c.readPump()
}

// remove detaches c. It is safe to call more than once.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.DecrementConnections()
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.remove(c)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "user", c.user, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var sub SubscriptionRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Debug("invalid subscription message", "user", c.user, "error", err)
		return
	}

	if sub.Type == "subscribe" {
		sub.Topics = c.allowed(sub.Topics)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch sub.Type {
	case "subscribe":
		for _, topic := range sub.Topics {
			c.topics[topic] = struct{}{}
		}
	case "unsubscribe":
		for _, topic := range sub.Topics {
			delete(c.topics, topic)
		}
	}
}

// allowed filters out the topics the hub's TopicCheck refuses.
func (c *Client) allowed(topics []string) []string {
	if c.hub.check == nil {
		return topics
	}
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	out := topics[:0]
	for _, topic := range topics {
		if !c.hub.check(ctx, c.workspace, topic) {
			slog.Debug("realtime subscription refused", "user", c.user, "topic", topic)
			continue
		}
		out = append(out, topic)
	}
	return out
}

func (c *Client) isSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}
