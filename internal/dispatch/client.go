// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package dispatch

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gatekeeper/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Message types for WebSocket communication
const (
	MessageTypeDecision = "decision"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is the WebSocket envelope.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client bridges one WebSocket connection to one Subscription. The
// subscription lives exactly as long as the connection.
type Client struct {
	sub     *Subscription
	conn    *websocket.Conn
	control chan Message
}

// NewClient subscribes conn to hub with filter.
func NewClient(hub *Hub, conn *websocket.Conn, filter Filter) *Client {
	return &Client{
		sub:     hub.Subscribe(filter),
		conn:    conn,
		control: make(chan Message, 1),
	}
}

// ID returns the underlying subscription ID.
func (c *Client) ID() uint64 {
	return c.sub.ID()
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes client frames until the connection fails, then releases
// the subscription.
func (c *Client) readPump() {
	defer func() {
		c.sub.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("subscription_id", c.sub.ID()).Msg("unexpected websocket close")
			}
			return
		}

		if msg.Type == MessageTypePing {
			select {
			case c.control <- Message{Type: MessageTypePong}:
			default:
			}
		}
	}
}

// writePump forwards subscription events and keepalives to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case entry, ok := <-c.sub.Events():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteJSON(Message{Type: MessageTypeDecision, Data: entry}); err != nil {
				logging.Debug().Err(err).Uint64("subscription_id", c.sub.ID()).Msg("failed to write decision event")
				return
			}

		case msg := <-c.control:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
