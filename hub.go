/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Notifier is the fan-out contract the core publishes through. Delivery is
// fire-and-forget: nothing blocks on, retries, or confirms receipt.
type Notifier interface {
	Publish(roomCode, event string, payload any)
	PublishTo(roomCode, token, event string, payload any)
	PublishAll(event string, payload any)
}

// Event is the wire shape of every pushed frame.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Frames clients send upward. A connection authenticates and subscribes
// independently, and must re-subscribe after any reconnect; only the
// registry remembers room membership across transport drops.
type clientFrame struct {
	Type  string `json:"type"` // "auth" or "subscribe"
	Token string `json:"token,omitempty"`
	Room  string `json:"room,omitempty"`
}

type Client struct {
	conn  *websocket.Conn
	send  chan Event
	token string
	room  string
}

// Broadcaster groups live connections by room code and pushes events to
// them. Slow consumers are dropped rather than waited on.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

func newBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

func (b *Broadcaster) register(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clients[c] = true
}

// dropLocked forgets a client everywhere and closes its send channel.
func (b *Broadcaster) dropLocked(c *Client) {
	if _, ok := b.clients[c]; !ok {
		return
	}

	delete(b.clients, c)
	if c.room != "" {
		if group, ok := b.rooms[c.room]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(b.rooms, c.room)
			}
		}
	}
	close(c.send)
}

func (b *Broadcaster) unregister(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dropLocked(c)
}

// authenticate associates the connection with an identity for directed
// delivery.
func (b *Broadcaster) authenticate(c *Client, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c.token = token
}

// subscribe points the connection at a room, replacing any prior
// subscription.
func (b *Broadcaster) subscribe(c *Client, roomCode string) {
	roomCode = normalizeRoomCode(roomCode)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[c]; !ok {
		return
	}

	if c.room != "" {
		if group, ok := b.rooms[c.room]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(b.rooms, c.room)
			}
		}
	}

	c.room = roomCode

	if roomCode == "" {
		return
	}
	group, ok := b.rooms[roomCode]
	if !ok {
		group = make(map[*Client]bool)
		b.rooms[roomCode] = group
	}
	group[c] = true
}

// offerLocked attempts a non-blocking send, dropping the client if its
// buffer is full.
func (b *Broadcaster) offerLocked(c *Client, event Event) {
	select {
	case c.send <- event:
	default:
		b.dropLocked(c)
	}
}

func (b *Broadcaster) Publish(roomCode, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.rooms[roomCode] {
		b.offerLocked(c, Event{Event: event, Payload: payload})
	}
}

// PublishTo delivers only to connections in the room authenticated as token.
func (b *Broadcaster) PublishTo(roomCode, token, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.rooms[roomCode] {
		if c.token == token {
			b.offerLocked(c, Event{Event: event, Payload: payload})
		}
	}
}

func (b *Broadcaster) PublishAll(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		b.offerLocked(c, Event{Event: event, Payload: payload})
	}
}

// closeAll disconnects every client (used at shutdown).
func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		b.dropLocked(c)
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, b *Broadcaster) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan Event, 16),
		}

		// A cookie-bearing browser is authenticated immediately; an
		// auth frame can still override later.
		if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
			client.token = c.Value
		}

		b.register(client)

		client.send <- Event{
			Event:   "serverVersion",
			Payload: map[string]string{"version": releaseVersion},
		}

		go client.writePump()
		client.readPump(b)
	}
}

func (c *Client) readPump(b *Broadcaster) {
	defer func() {
		b.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var frame clientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "auth":
			b.authenticate(c, frame.Token)
		case "subscribe":
			b.subscribe(c, frame.Room)
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}
}
